package units

import (
	"math"
	"testing"
)

func TestConvert_WeightWithinCategory(t *testing.T) {
	t.Parallel()
	got, err := Convert(1000, "g", "kg")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestConvert_CupToMilliliter(t *testing.T) {
	t.Parallel()
	got, err := Convert(1, "cup", "ml")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if math.Round(got*1000)/1000 != 236.588 {
		t.Errorf("expected 236.588, got %v", got)
	}
}

func TestCanConvert_SpecialUnitsNever(t *testing.T) {
	t.Parallel()
	if CanConvert("pinch", "dash") {
		t.Error("pinch -> dash must not be convertible")
	}
	if CanConvert("pinch", "pinch") {
		t.Error("special units are not convertible even to themselves")
	}
}

func TestCanConvert_CrossCategory(t *testing.T) {
	t.Parallel()
	if CanConvert("g", "ml") {
		t.Error("weight -> volume must not be convertible")
	}
}

func TestConvert_CrossCategoryError(t *testing.T) {
	t.Parallel()
	if _, err := Convert(1, "g", "ml"); err == nil {
		t.Fatal("expected error for cross-category conversion")
	}
}

func TestLookup_AliasesAndPlurals(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"Cup", "cup"},
		{"cups", "cup"},
		{"TBSP", "tbsp"},
		{"fl oz", "floz"},
		{"grams", "g"},
		{" to taste ", "totaste"},
	}
	for _, tc := range cases {
		d, ok := Lookup(tc.in)
		if !ok {
			t.Errorf("Lookup(%q): not found", tc.in)
			continue
		}
		if d.ID != tc.want {
			t.Errorf("Lookup(%q) = %s, want %s", tc.in, d.ID, tc.want)
		}
	}
	if _, ok := Lookup("parsec"); ok {
		t.Error("Lookup(parsec) should fail")
	}
}

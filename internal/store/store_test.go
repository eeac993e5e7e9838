package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ladle.db"), logging.Nop{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(v int) *int { return &v }

func sampleRecipe() *model.PartialRecipe {
	return &model.PartialRecipe{
		Name:            "Pancakes",
		Description:     "Fluffy weekend pancakes.",
		ImageURL:        "https://example.com/p.jpg",
		PreparationTime: intPtr(10),
		CookingTime:     intPtr(15),
		Servings:        intPtr(4),
		Category:        "Breakfast",
		Keywords:        []string{"easy", "classic"},
		Instructions:    []string{"Mix", "Fry", "Serve"},
		Ingredients: []model.IngredientRef{
			{Name: "Flour", Quantity: 2, Unit: "cup"},
			{Name: "Milk", Quantity: 300, Unit: "ml"},
			{Name: "Eggs", Quantity: 2},
		},
		IsPrivate: true,
		SourceURL: "https://example.com/pancakes",
	}
}

func TestSaveAndGetRecipe(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	id, err := s.SaveRecipe(ctx, "user-1", sampleRecipe())
	if err != nil {
		t.Fatalf("SaveRecipe: %v", err)
	}
	if id == "" {
		t.Fatal("empty recipe id")
	}

	got, err := s.GetRecipe(ctx, id)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	r := got.Recipe
	if r.Name != "Pancakes" || *r.PreparationTime != 10 || *r.Servings != 4 {
		t.Errorf("recipe = %+v", r)
	}
	if len(r.Instructions) != 3 || r.Instructions[2] != "Serve" {
		t.Errorf("instructions = %v", r.Instructions)
	}
	if len(r.Ingredients) != 3 {
		t.Fatalf("ingredients = %v", r.Ingredients)
	}
	// Position order must survive the round trip.
	if r.Ingredients[0].Name != "Flour" || r.Ingredients[2].Name != "Eggs" {
		t.Errorf("ingredient order = %v", r.Ingredients)
	}
	if !r.IsPrivate {
		t.Error("stored recipe must be private")
	}
}

func TestSaveRecipeRejectsIncomplete(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	_, err := s.SaveRecipe(context.Background(), "user-1", &model.PartialRecipe{Name: "No steps"})
	if err == nil {
		t.Fatal("expected error for recipe without instructions")
	}
}

func TestIngredientGetOrCreateIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	a, err := s.getOrCreateIngredient(ctx, "Flour")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.getOrCreateIngredient(ctx, "flour")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("ids differ: %s vs %s", a, b)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ingredients`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("ingredient rows = %d, want 1", count)
	}
}

func TestUnknownUnitIsDropped(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	r := sampleRecipe()
	r.Ingredients = []model.IngredientRef{{Name: "Butter", Quantity: 1, Unit: "glob"}}
	id, err := s.SaveRecipe(ctx, "user-1", r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRecipe(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Recipe.Ingredients[0].Unit != "" {
		t.Errorf("unit = %q, want dropped", got.Recipe.Ingredients[0].Unit)
	}
}

func TestGetRecipeNotFound(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	if _, err := s.GetRecipe(context.Background(), "missing"); err == nil {
		t.Fatal("expected ErrNotFound")
	}
}

func TestListRecipes(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		r := sampleRecipe()
		r.Name = name
		if _, err := s.SaveRecipe(ctx, "user-1", r); err != nil {
			t.Fatal(err)
		}
	}
	other := sampleRecipe()
	if _, err := s.SaveRecipe(ctx, "user-2", other); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListRecipes(ctx, "user-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("list = %d recipes, want 2", len(list))
	}
}

func TestImportHistory(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	ctx := context.Background()
	url := "https://example.com/soup"

	text, err := s.LastImportInstructions(ctx, url)
	if err != nil || text != "" {
		t.Fatalf("fresh url: text=%q err=%v", text, err)
	}

	if err := s.RecordImport(ctx, url, "structured-data", 85, "Chop\nSimmer", "r-1"); err != nil {
		t.Fatal(err)
	}
	text, err = s.LastImportInstructions(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	if text != "Chop\nSimmer" {
		t.Errorf("instructions = %q", text)
	}
}

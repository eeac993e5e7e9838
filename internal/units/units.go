// Package units provides the static measurement table used to validate and
// normalize ingredient quantities. The table is an immutable process-wide
// constant; lookups need no locking.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups units that share a base unit.
type Category string

const (
	Volume  Category = "volume"  // base: milliliter
	Weight  Category = "weight"  // base: gram
	Count   Category = "count"   // base: piece
	Special Category = "special" // never convertible, even within the category
)

// Definition describes one measurement unit. Factor converts one of this
// unit into the category's base unit.
type Definition struct {
	ID           string
	Name         string
	Abbreviation string
	Category     Category
	Factor       float64
}

var ErrNotConvertible = errors.New("units are not convertible")

// table lists every unit the importer accepts. Keep IDs stable; they are
// stored in recipe_ingredients rows.
var table = []Definition{
	{ID: "ml", Name: "milliliter", Abbreviation: "ml", Category: Volume, Factor: 1},
	{ID: "l", Name: "liter", Abbreviation: "l", Category: Volume, Factor: 1000},
	{ID: "tsp", Name: "teaspoon", Abbreviation: "tsp", Category: Volume, Factor: 4.929},
	{ID: "tbsp", Name: "tablespoon", Abbreviation: "tbsp", Category: Volume, Factor: 14.787},
	{ID: "floz", Name: "fluid ounce", Abbreviation: "fl oz", Category: Volume, Factor: 29.574},
	{ID: "cup", Name: "cup", Abbreviation: "cup", Category: Volume, Factor: 236.588},
	{ID: "pint", Name: "pint", Abbreviation: "pt", Category: Volume, Factor: 473.176},
	{ID: "quart", Name: "quart", Abbreviation: "qt", Category: Volume, Factor: 946.353},
	{ID: "gallon", Name: "gallon", Abbreviation: "gal", Category: Volume, Factor: 3785.412},

	{ID: "mg", Name: "milligram", Abbreviation: "mg", Category: Weight, Factor: 0.001},
	{ID: "g", Name: "gram", Abbreviation: "g", Category: Weight, Factor: 1},
	{ID: "kg", Name: "kilogram", Abbreviation: "kg", Category: Weight, Factor: 1000},
	{ID: "oz", Name: "ounce", Abbreviation: "oz", Category: Weight, Factor: 28.35},
	{ID: "lb", Name: "pound", Abbreviation: "lb", Category: Weight, Factor: 453.592},

	{ID: "piece", Name: "piece", Abbreviation: "pc", Category: Count, Factor: 1},
	{ID: "dozen", Name: "dozen", Abbreviation: "doz", Category: Count, Factor: 12},
	{ID: "slice", Name: "slice", Abbreviation: "slice", Category: Count, Factor: 1},
	{ID: "clove", Name: "clove", Abbreviation: "clove", Category: Count, Factor: 1},

	{ID: "pinch", Name: "pinch", Abbreviation: "pinch", Category: Special, Factor: 0},
	{ID: "dash", Name: "dash", Abbreviation: "dash", Category: Special, Factor: 0},
	{ID: "handful", Name: "handful", Abbreviation: "handful", Category: Special, Factor: 0},
	{ID: "totaste", Name: "to taste", Abbreviation: "to taste", Category: Special, Factor: 0},
}

// index maps id, name and abbreviation (lowercased) to the definition.
var index = func() map[string]*Definition {
	m := make(map[string]*Definition, len(table)*3)
	for i := range table {
		d := &table[i]
		m[strings.ToLower(d.ID)] = d
		m[strings.ToLower(d.Name)] = d
		m[strings.ToLower(d.Abbreviation)] = d
		// Common plural forms.
		m[strings.ToLower(d.Name)+"s"] = d
	}
	return m
}()

// All returns a copy of the unit table.
func All() []Definition {
	out := make([]Definition, len(table))
	copy(out, table)
	return out
}

// Lookup resolves a unit by id, name, abbreviation or simple plural.
func Lookup(unit string) (Definition, bool) {
	d, ok := index[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

// IsValid reports whether the unit is known to the table.
func IsValid(unit string) bool {
	_, ok := Lookup(unit)
	return ok
}

// CanConvert reports whether a quantity in `from` can be expressed in `to`.
// Conversion is only defined within one category, and special units are
// never convertible.
func CanConvert(from, to string) bool {
	a, okA := Lookup(from)
	b, okB := Lookup(to)
	if !okA || !okB {
		return false
	}
	if a.Category == Special || b.Category == Special {
		return false
	}
	return a.Category == b.Category
}

// Convert converts quantity from one unit to another within the same
// category. Returns ErrNotConvertible for cross-category or special units.
func Convert(quantity float64, from, to string) (float64, error) {
	if !CanConvert(from, to) {
		return 0, fmt.Errorf("%w: %s -> %s", ErrNotConvertible, from, to)
	}
	a, _ := Lookup(from)
	b, _ := Lookup(to)
	return quantity * a.Factor / b.Factor, nil
}

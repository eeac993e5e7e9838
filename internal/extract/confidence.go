package extract

import (
	"math"

	"github.com/ladle-dev/ladle/internal/model"
)

// Confidence is 0-100 across the whole system.
const (
	// ConfidenceThreshold gates the cascade short-circuit: a success below
	// it does not stop later, possibly better tiers.
	ConfidenceThreshold = 60

	// LLMConfidence is the fixed score for successful LLM extractions.
	// Generative extraction invents structure too readily for the
	// field-completeness heuristic to mean the same thing, so the score
	// stays a constant below the structured-data ceiling.
	LLMConfidence = 70
)

// fieldWeight pairs a recipe field with its contribution to the
// completeness score.
type fieldWeight struct {
	name    string
	weight  int
	present func(*model.PartialRecipe) bool
}

// Essential fields dominate the score; a recipe with only name and
// instructions lands at 55, deliberately below the threshold.
var fieldWeights = []fieldWeight{
	{"name", 30, func(r *model.PartialRecipe) bool { return r.Name != "" }},
	{"instructions", 25, func(r *model.PartialRecipe) bool { return len(cleanLines(r.Instructions)) > 0 }},
	{"description", 10, func(r *model.PartialRecipe) bool { return r.Description != "" }},
	{"cookingTime", 8, func(r *model.PartialRecipe) bool { return r.CookingTime != nil }},
	{"preparationTime", 8, func(r *model.PartialRecipe) bool { return r.PreparationTime != nil }},
	{"servings", 7, func(r *model.PartialRecipe) bool { return r.Servings != nil }},
	{"image", 5, func(r *model.PartialRecipe) bool { return r.ImageURL != "" }},
	{"category", 2, func(r *model.PartialRecipe) bool { return r.Category != "" }},
	{"cuisine", 2, func(r *model.PartialRecipe) bool { return r.Cuisine != "" }},
	{"calories", 3, func(r *model.PartialRecipe) bool { return r.Nutrition.Calories != nil }},
}

// scoreCompleteness computes the weighted field-completeness confidence:
// round(100 * present weight / total weight).
func scoreCompleteness(r *model.PartialRecipe) int {
	if r == nil {
		return 0
	}
	var present, total int
	for _, fw := range fieldWeights {
		total += fw.weight
		if fw.present(r) {
			present += fw.weight
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(present) / float64(total)))
}

// missingFields lists the weighted fields the recipe does not carry,
// heaviest first.
func missingFields(r *model.PartialRecipe) []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, fw := range fieldWeights {
		if !fw.present(r) {
			out = append(out, fw.name)
		}
	}
	return out
}

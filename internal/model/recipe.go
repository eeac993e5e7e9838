// Package model holds the value types shared across the import pipeline.
// All other packages may depend on model; model depends on nothing.
package model

// Nutrition carries per-recipe nutrition facts. All values are grams
// except Calories.
type Nutrition struct {
	Calories      *float64 `json:"calories,omitempty"`
	Fat           *float64 `json:"fat,omitempty"`
	Protein       *float64 `json:"protein,omitempty"`
	Carbohydrates *float64 `json:"carbohydrates,omitempty"`
	Fiber         *float64 `json:"fiber,omitempty"`
	Sugar         *float64 `json:"sugar,omitempty"`
	Sodium        *float64 `json:"sodium,omitempty"`
}

// IngredientRef associates an ingredient name with a quantity and unit.
// The name is resolved to a stable ingredient id at persist time.
type IngredientRef struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// PartialRecipe is the normalized shape produced by any extractor. Only
// Name and at least one instruction are required for a recipe to be
// complete enough to persist; everything else is best-effort.
type PartialRecipe struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// ImageURL is carried through as a raw reference; upload staging is
	// an external concern.
	ImageURL string `json:"image_url,omitempty"`

	// Durations are minutes.
	PreparationTime *int `json:"preparation_time,omitempty"`
	CookingTime     *int `json:"cooking_time,omitempty"`
	TotalTime       *int `json:"total_time,omitempty"`

	Servings *int `json:"servings,omitempty"`

	Nutrition Nutrition `json:"nutrition,omitempty"`

	Category   string `json:"category,omitempty"`
	Cuisine    string `json:"cuisine,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	SkillLevel string `json:"skill_level,omitempty"`

	Keywords     []string `json:"keywords,omitempty"`
	DietaryTags  []string `json:"dietary_tags,omitempty"`
	Equipment    []string `json:"equipment,omitempty"`
	Instructions []string `json:"instructions"`

	Ingredients []IngredientRef `json:"ingredients,omitempty"`

	// IsPrivate is forced true on every import regardless of source data.
	IsPrivate bool   `json:"is_private"`
	SourceURL string `json:"source_url,omitempty"`
}

// Persistable reports whether the recipe carries the hard minimum for
// storage: a name and at least one non-empty instruction step.
func (r *PartialRecipe) Persistable() bool {
	if r == nil || r.Name == "" {
		return false
	}
	for _, step := range r.Instructions {
		if step != "" {
			return true
		}
	}
	return false
}

package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/normalize"
)

// jsonLDScriptRe pulls ld+json script bodies out of raw HTML. A regex is
// enough here: JSON-LD blocks are self-contained, so a full DOM parse buys
// nothing.
var jsonLDScriptRe = regexp.MustCompile(`(?is)<script[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>(.*?)</script>`)

// JSONLDExtractor reads schema.org Recipe objects embedded as JSON-LD.
// Highest-priority tier: free, and when present almost always right.
type JSONLDExtractor struct {
	logger logging.Logger
}

// NewJSONLDExtractor creates the structured-data tier.
func NewJSONLDExtractor(logger logging.Logger) *JSONLDExtractor {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &JSONLDExtractor{logger: logger.With(logging.Field{Key: "extractor", Value: "structured-data"})}
}

func (e *JSONLDExtractor) Name() string  { return "structured-data" }
func (e *JSONLDExtractor) Priority() int { return PriorityStructuredData }

// CanHandle only checks for the script marker; parsing happens in Extract.
func (e *JSONLDExtractor) CanHandle(input *model.ExtractorInput) bool {
	return input != nil && strings.Contains(strings.ToLower(input.HTML), "application/ld+json")
}

func (e *JSONLDExtractor) Extract(ctx context.Context, input *model.ExtractorInput) *model.ExtractorResult {
	blocks := jsonLDScriptRe.FindAllStringSubmatch(input.HTML, -1)
	if len(blocks) == 0 {
		return failedResult(e.Name(), "no JSON-LD blocks found in page")
	}

	parseFailures := 0
	for _, block := range blocks {
		var data any
		if err := json.Unmarshal([]byte(strings.TrimSpace(block[1])), &data); err != nil {
			// A broken block must not abort the scan; sites routinely
			// ship several blocks of mixed quality.
			parseFailures++
			continue
		}
		if recipeObj := findRecipeNode(data); recipeObj != nil {
			recipe := e.convert(recipeObj, input.SourceURL)
			confidence := scoreCompleteness(recipe)
			e.logger.Debug("converted JSON-LD recipe",
				logging.Field{Key: "name", Value: recipe.Name},
				logging.Field{Key: "confidence", Value: confidence})
			return &model.ExtractorResult{
				Status:        model.ExtractSuccess,
				Recipe:        recipe,
				Confidence:    confidence,
				MissingFields: missingFields(recipe),
				Method:        e.Name(),
			}
		}
	}

	if parseFailures == len(blocks) {
		return failedResult(e.Name(), fmt.Sprintf("all %d JSON-LD blocks failed to parse", parseFailures))
	}
	return failedResult(e.Name(), "no schema.org Recipe object found in JSON-LD")
}

// findRecipeNode searches the parsed JSON-LD value depth-first for an object
// whose @type is (or includes) "Recipe". Handles bare objects, arrays and
// @graph containers at any nesting depth.
func findRecipeNode(v any) map[string]any {
	switch node := v.(type) {
	case map[string]any:
		if typeIsRecipe(node["@type"]) {
			return node
		}
		for _, child := range node {
			if found := findRecipeNode(child); found != nil {
				return found
			}
		}
	case []any:
		for _, child := range node {
			if found := findRecipeNode(child); found != nil {
				return found
			}
		}
	}
	return nil
}

func typeIsRecipe(t any) bool {
	switch typed := t.(type) {
	case string:
		return strings.EqualFold(typed, "Recipe")
	case []any:
		for _, item := range typed {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Recipe") {
				return true
			}
		}
	}
	return false
}

// convert maps one schema.org Recipe object onto the normalized shape.
func (e *JSONLDExtractor) convert(obj map[string]any, sourceURL string) *model.PartialRecipe {
	r := &model.PartialRecipe{
		Name:        stringField(obj["name"]),
		Description: stringField(obj["description"]),
		ImageURL:    imageField(obj["image"]),

		PreparationTime: normalize.ISO8601ToMinutes(stringField(obj["prepTime"])),
		CookingTime:     normalize.ISO8601ToMinutes(stringField(obj["cookTime"])),
		TotalTime:       normalize.ISO8601ToMinutes(stringField(obj["totalTime"])),

		Servings: yieldField(obj["recipeYield"]),

		Category: stringField(obj["recipeCategory"]),
		Cuisine:  stringField(obj["recipeCuisine"]),

		Keywords:     keywordsField(obj["keywords"]),
		Instructions: instructionsField(obj["recipeInstructions"]),

		// Privacy-by-default: imported recipes are always private no
		// matter what the source declares.
		IsPrivate: true,
		SourceURL: sourceURL,
	}

	for _, line := range stringListField(obj["recipeIngredient"]) {
		r.Ingredients = append(r.Ingredients, parseIngredientLine(line))
	}

	if nut, ok := obj["nutrition"].(map[string]any); ok {
		r.Nutrition = model.Nutrition{
			Calories:      normalize.ParseNutritionValue(stringField(nut["calories"])),
			Fat:           normalize.ParseNutritionValue(stringField(nut["fatContent"])),
			Protein:       normalize.ParseNutritionValue(stringField(nut["proteinContent"])),
			Carbohydrates: normalize.ParseNutritionValue(stringField(nut["carbohydrateContent"])),
			Fiber:         normalize.ParseNutritionValue(stringField(nut["fiberContent"])),
			Sugar:         normalize.ParseNutritionValue(stringField(nut["sugarContent"])),
			Sodium:        normalize.ParseNutritionValue(stringField(nut["sodiumContent"])),
		}
	}

	return r
}

// stringField renders scalar JSON-LD values as strings; numbers come back
// from encoding/json as float64.
func stringField(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int(typed)) {
			return fmt.Sprintf("%d", int(typed))
		}
		return fmt.Sprintf("%g", typed)
	case []any:
		if len(typed) > 0 {
			return stringField(typed[0])
		}
	}
	return ""
}

// imageField handles the common schema.org image encodings: bare URL,
// array of URLs, ImageObject, or array of ImageObjects.
func imageField(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		return stringField(typed["url"])
	case []any:
		if len(typed) > 0 {
			return imageField(typed[0])
		}
	}
	return ""
}

// yieldField extracts the first integer from recipeYield, which may be a
// number, a string ("Makes 4 servings") or an array of either.
func yieldField(v any) *int {
	switch typed := v.(type) {
	case float64:
		n := int(typed)
		if n > 0 {
			return &n
		}
	case string:
		return normalize.ParseServings(typed)
	case []any:
		for _, item := range typed {
			if got := yieldField(item); got != nil {
				return got
			}
		}
	}
	return nil
}

// instructionsField normalizes recipeInstructions to a flat ordered list.
// Accepts arrays of strings, arrays of {text} objects (HowToStep), nested
// HowToSection itemLists, or a single newline-separated string.
func instructionsField(v any) []string {
	var steps []string
	var walk func(any)
	walk = func(node any) {
		switch typed := node.(type) {
		case string:
			steps = append(steps, typed)
		case map[string]any:
			if text := stringField(typed["text"]); text != "" {
				steps = append(steps, text)
				return
			}
			walk(typed["itemListElement"])
		case []any:
			for _, item := range typed {
				walk(item)
			}
		}
	}
	if s, ok := v.(string); ok {
		return cleanLines(strings.Split(s, "\n"))
	}
	walk(v)
	return cleanLines(steps)
}

func stringListField(v any) []string {
	list, ok := v.([]any)
	if !ok {
		if s := stringField(v); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range list {
		if s := stringField(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// keywordsField accepts both the comma-separated-string and array forms.
func keywordsField(v any) []string {
	if s, ok := v.(string); ok {
		return cleanLines(strings.Split(s, ","))
	}
	return stringListField(v)
}

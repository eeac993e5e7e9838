package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ladle-dev/ladle/internal/htmlutil"
	"github.com/ladle-dev/ladle/internal/llm"
	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
)

// promptCharBudget caps the cleaned page content sent to the model.
const promptCharBudget = 8000

const systemPrompt = `You extract cooking recipes from web page text.
Respond with ONLY a JSON object, no prose, using exactly these keys:
{
  "title": string,
  "description": string or null,
  "prepTimeMinutes": integer or null,
  "cookTimeMinutes": integer or null,
  "totalTimeMinutes": integer or null,
  "servings": integer or null,
  "ingredients": array of strings (one ingredient per entry, with amounts),
  "instructions": array of strings (one step per entry, in order),
  "imageUrl": string or null
}
If the text contains no recipe, respond with {"title": null}.`

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// llmRecipe is the constrained shape the model is asked to return.
type llmRecipe struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	PrepTime     *int     `json:"prepTimeMinutes"`
	CookTime     *int     `json:"cookTimeMinutes"`
	TotalTime    *int     `json:"totalTimeMinutes"`
	Servings     *int     `json:"servings"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	ImageURL     *string  `json:"imageUrl"`
}

// LLMExtractor is the last cascade tier: generic and capable but paid and
// uncertain, so it only runs when the cheaper tiers came up short.
type LLMExtractor struct {
	generator llm.Generator
	logger    logging.Logger
}

// NewLLMExtractor creates the LLM tier on top of any Generator.
func NewLLMExtractor(generator llm.Generator, logger logging.Logger) *LLMExtractor {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &LLMExtractor{
		generator: generator,
		logger:    logger.With(logging.Field{Key: "extractor", Value: "llm"}),
	}
}

func (e *LLMExtractor) Name() string  { return "llm" }
func (e *LLMExtractor) Priority() int { return PriorityLLM }

// CanHandle accepts both call paths: URL imports carry HTML, text imports
// carry content directly.
func (e *LLMExtractor) CanHandle(input *model.ExtractorInput) bool {
	if input == nil || e.generator == nil {
		return false
	}
	return strings.TrimSpace(input.HTML) != "" || strings.TrimSpace(input.Content) != ""
}

func (e *LLMExtractor) Extract(ctx context.Context, input *model.ExtractorInput) *model.ExtractorResult {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		content = htmlutil.CleanHTML(input.HTML, input.SourceURL)
	}
	if content == "" {
		return failedResult(e.Name(), "no usable content after cleaning")
	}
	content = htmlutil.Truncate(content, promptCharBudget)

	reply, err := e.generator.Generate(ctx, systemPrompt, content, llm.GenerateOptions{
		MaxTokens:   input.Options.MaxTokens,
		Temperature: input.Options.Temperature,
	})
	if err != nil {
		return failedResult(e.Name(), "model call failed: "+err.Error())
	}

	payload, ok := extractJSON(reply)
	if !ok {
		return failedResult(e.Name(), "no JSON object found in model response")
	}

	var parsed llmRecipe
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return failedResult(e.Name(), "model response is not valid JSON: "+err.Error())
	}

	if parsed.Title == nil || strings.TrimSpace(*parsed.Title) == "" {
		return failedResult(e.Name(), "model found no recipe in the content")
	}
	if len(cleanLines(parsed.Ingredients)) == 0 || len(cleanLines(parsed.Instructions)) == 0 {
		return failedResult(e.Name(), "model response is missing ingredients or instructions")
	}

	recipe := &model.PartialRecipe{
		Name:            strings.TrimSpace(*parsed.Title),
		PreparationTime: positiveMinutes(parsed.PrepTime),
		CookingTime:     positiveMinutes(parsed.CookTime),
		TotalTime:       positiveMinutes(parsed.TotalTime),
		Instructions:    cleanLines(parsed.Instructions),
		IsPrivate:       true,
		SourceURL:       input.SourceURL,
	}
	if parsed.Description != nil {
		recipe.Description = strings.TrimSpace(*parsed.Description)
	}
	if parsed.ImageURL != nil {
		recipe.ImageURL = strings.TrimSpace(*parsed.ImageURL)
	}
	if parsed.Servings != nil && *parsed.Servings > 0 {
		recipe.Servings = parsed.Servings
	}
	for _, line := range cleanLines(parsed.Ingredients) {
		recipe.Ingredients = append(recipe.Ingredients, parseIngredientLine(line))
	}

	e.logger.Debug("llm extraction succeeded",
		logging.Field{Key: "name", Value: recipe.Name},
		logging.Field{Key: "steps", Value: len(recipe.Instructions)})

	return &model.ExtractorResult{
		Status:        model.ExtractSuccess,
		Recipe:        recipe,
		Confidence:    LLMConfidence,
		MissingFields: missingFields(recipe),
		Method:        e.Name(),
	}
}

func positiveMinutes(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// extractJSON locates the JSON object in a model reply: a fenced code block
// first, then the first balanced {...} span in the raw text.
func extractJSON(reply string) (string, bool) {
	if m := fencedJSONRe.FindStringSubmatch(reply); m != nil {
		return m[1], true
	}

	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return reply[start : i+1], true
			}
		}
	}
	return "", false
}

package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/normalize"
)

// Selector candidates per field, tried in order; the first one matching
// non-empty content wins. Microformat class names first, generic markup
// last.
var (
	titleSelectors = []string{
		`[itemprop="name"]`, ".recipe-title", ".recipe-name", ".entry-title",
		"h1.title", "h1",
	}
	descriptionSelectors = []string{
		`[itemprop="description"]`, ".recipe-description", ".recipe-summary",
		`meta[name="description"]`,
	}
	prepTimeSelectors = []string{
		`[itemprop="prepTime"]`, ".prep-time", ".recipe-prep-time",
	}
	cookTimeSelectors = []string{
		`[itemprop="cookTime"]`, ".cook-time", ".recipe-cook-time",
	}
	totalTimeSelectors = []string{
		`[itemprop="totalTime"]`, ".total-time", ".recipe-total-time",
	}
	servingsSelectors = []string{
		`[itemprop="recipeYield"]`, ".servings", ".recipe-yield", ".recipe-servings",
	}
	imageSelectors = []string{
		`[itemprop="image"]`, ".recipe-image img", ".recipe-photo img",
		`meta[property="og:image"]`,
	}
	ingredientListSelectors = []string{
		`[itemprop="recipeIngredient"]`, `[itemprop="ingredients"]`,
		".recipe-ingredients li", ".ingredients li", "ul.ingredients li",
	}
	instructionListSelectors = []string{
		`[itemprop="recipeInstructions"] li`, ".recipe-instructions li",
		".instructions li", ".recipe-directions li", ".directions li",
		"ol.instructions li", "ol li",
	}
)

// HeuristicExtractor scrapes pages without structured data using CSS
// selector candidates. Middle tier: free but fragile.
type HeuristicExtractor struct {
	logger logging.Logger
}

// NewHeuristicExtractor creates the HTML-heuristic tier.
func NewHeuristicExtractor(logger logging.Logger) *HeuristicExtractor {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &HeuristicExtractor{logger: logger.With(logging.Field{Key: "extractor", Value: "html-heuristic"})}
}

func (e *HeuristicExtractor) Name() string  { return "html-heuristic" }
func (e *HeuristicExtractor) Priority() int { return PriorityHeuristic }

func (e *HeuristicExtractor) CanHandle(input *model.ExtractorInput) bool {
	return input != nil && strings.TrimSpace(input.HTML) != ""
}

func (e *HeuristicExtractor) Extract(ctx context.Context, input *model.ExtractorInput) *model.ExtractorResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(input.HTML))
	if err != nil {
		return failedResult(e.Name(), "HTML parse failed: "+err.Error())
	}

	title := firstText(doc, titleSelectors)
	ingredientLines := allText(doc, ingredientListSelectors)
	instructions := allText(doc, instructionListSelectors)

	// Title, ingredients and instructions are the hard minimum for a
	// usable recipe; everything below is best-effort.
	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if len(ingredientLines) == 0 {
		missing = append(missing, "ingredients")
	}
	if len(instructions) == 0 {
		missing = append(missing, "instructions")
	}
	if len(missing) > 0 {
		return failedResult(e.Name(), "required content not found via selectors: "+strings.Join(missing, ", "))
	}

	recipe := &model.PartialRecipe{
		Name:            title,
		Description:     firstText(doc, descriptionSelectors),
		ImageURL:        firstImage(doc, imageSelectors),
		PreparationTime: normalize.ParseDuration(firstText(doc, prepTimeSelectors)),
		CookingTime:     normalize.ParseDuration(firstText(doc, cookTimeSelectors)),
		TotalTime:       normalize.ParseDuration(firstText(doc, totalTimeSelectors)),
		Servings:        normalize.ParseServings(firstText(doc, servingsSelectors)),
		Instructions:    instructions,
		IsPrivate:       true,
		SourceURL:       input.SourceURL,
	}
	for _, line := range ingredientLines {
		recipe.Ingredients = append(recipe.Ingredients, parseIngredientLine(line))
	}

	confidence := scoreCompleteness(recipe)
	e.logger.Debug("heuristic extraction succeeded",
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

// firstText returns the text (or content attribute for meta tags) of the
// first selector that matches non-empty content.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if goquery.NodeName(node) == "meta" {
			if content, ok := node.Attr("content"); ok && strings.TrimSpace(content) != "" {
				return strings.TrimSpace(content)
			}
			continue
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// allText collects the text of every node matched by the first selector
// that yields any non-empty entries.
func allText(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func firstImage(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		for _, attr := range []string{"src", "content", "href"} {
			if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

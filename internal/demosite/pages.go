package demosite

import "net/http"

// PageDefinition is one fixture page.
type PageDefinition struct {
	Path        string
	Description string

	// Status defaults to 200 when zero.
	Status int
	HTML   string
}

// AllPages returns the fixture pages in a stable order.
func AllPages() []PageDefinition {
	return []PageDefinition{
		{
			Path:        "/recipes/pancakes",
			Description: "well-behaved page with schema.org JSON-LD; tier 1 imports it",
			HTML:        pancakesHTML,
		},
		{
			Path:        "/recipes/tomato-soup",
			Description: "no structured data, only recipe-shaped markup; tier 2 imports it",
			HTML:        tomatoSoupHTML,
		},
		{
			Path:        "/recipes/secret-sauce",
			Description: "bot blocker that answers 403 to every request",
			Status:      http.StatusForbidden,
			HTML:        blockedHTML,
		},
	}
}

const pancakesHTML = `<!DOCTYPE html>
<html>
<head>
<title>Buttermilk Pancakes — Ladle Demo</title>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Recipe",
  "name": "Buttermilk Pancakes",
  "description": "Tall, fluffy pancakes with a tangy buttermilk crumb.",
  "image": "https://demo.ladle.dev/img/pancakes.jpg",
  "prepTime": "PT10M",
  "cookTime": "PT15M",
  "totalTime": "PT25M",
  "recipeYield": "4 servings",
  "recipeCategory": "Breakfast",
  "recipeCuisine": "American",
  "keywords": "pancakes, breakfast, buttermilk",
  "recipeIngredient": [
    "2 cups flour",
    "2 tbsp sugar",
    "1.5 cups buttermilk",
    "2 eggs",
    "1 tsp baking soda",
    "1/2 tsp salt"
  ],
  "recipeInstructions": [
    {"@type": "HowToStep", "text": "Whisk the dry ingredients together."},
    {"@type": "HowToStep", "text": "Beat in buttermilk and eggs until just combined."},
    {"@type": "HowToStep", "text": "Cook on a buttered griddle until bubbles form, then flip."}
  ],
  "nutrition": {
    "@type": "NutritionInformation",
    "calories": "320 calories"
  }
}
</script>
</head>
<body>
  <h1>Buttermilk Pancakes</h1>
  <p>A weekend classic.</p>
</body>
</html>`

const tomatoSoupHTML = `<!DOCTYPE html>
<html>
<head>
<title>Roasted Tomato Soup — Ladle Demo</title>
<meta property="og:image" content="https://demo.ladle.dev/img/tomato-soup.jpg">
</head>
<body>
  <article class="recipe">
    <h1 class="recipe-title">Roasted Tomato Soup</h1>
    <p class="recipe-description">Deep roasted flavor from slow-cooked tomatoes and garlic.</p>
    <span class="prep-time">15 minutes</span>
    <span class="cook-time">1 hour 10 minutes</span>
    <span class="recipe-yield">6 servings</span>
    <ul class="recipe-ingredients">
      <li>3 lb ripe tomatoes</li>
      <li>1 onion</li>
      <li>4 cloves garlic</li>
      <li>2 tbsp olive oil</li>
      <li>2 cups vegetable stock</li>
      <li>salt to taste</li>
    </ul>
    <ol class="recipe-instructions">
      <li>Halve the tomatoes and roast with onion and garlic until caramelized.</li>
      <li>Simmer the roasted vegetables in stock for twenty minutes.</li>
      <li>Blend until smooth and season.</li>
    </ol>
  </article>
</body>
</html>`

const blockedHTML = `<!DOCTYPE html>
<html>
<head><title>Access Denied</title></head>
<body>
  <h1>403 Forbidden</h1>
  <p>Automated access to this site is not permitted.</p>
</body>
</html>`

package model

// ExtractStatus is the outcome of a single extractor attempt.
type ExtractStatus string

const (
	ExtractSuccess ExtractStatus = "success"
	ExtractFailed  ExtractStatus = "failed"
)

// ExtractorInput is built once per import call and passed by reference down
// the cascade. It is never mutated after construction. Exactly one of HTML
// and Content is expected to be meaningful: URL imports supply HTML, text
// imports supply Content.
type ExtractorInput struct {
	HTML      string
	Content   string
	SourceURL string
	Options   ExtractOptions
}

// ExtractOptions tunes AI-backed extractors. Zero values mean "use the
// extractor's defaults".
type ExtractOptions struct {
	MaxTokens   int
	Temperature float64
}

// ExtractorResult is the outcome of one extractor attempt. A result with
// Status == ExtractSuccess always carries a non-nil Recipe.
type ExtractorResult struct {
	Status ExtractStatus `json:"status"`
	Recipe *PartialRecipe `json:"recipe,omitempty"`

	// Confidence is 0-100 across all extractors.
	Confidence int `json:"confidence"`

	Warnings      []string `json:"warnings,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`

	// Method is the stable name of the extractor that produced the result.
	Method string `json:"method,omitempty"`
}

// ImportStatus is the terminal outcome of a whole import call.
type ImportStatus string

const (
	ImportSuccess ImportStatus = "success"

	// ImportPartial means usable-but-incomplete data was recovered; the
	// caller should pre-populate a manual form with it.
	ImportPartial ImportStatus = "partial"

	ImportManualRequired ImportStatus = "manual_required"
	ImportFailed         ImportStatus = "failed"
)

// ImportResult is the orchestrator's and service's terminal outcome.
type ImportResult struct {
	Status        ImportStatus   `json:"status"`
	Recipe        *PartialRecipe `json:"recipe,omitempty"`
	Method        string         `json:"method,omitempty"`
	Confidence    int            `json:"confidence,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	MissingFields []string       `json:"missing_fields,omitempty"`

	// RecipeID is set when the recipe was persisted.
	RecipeID string `json:"recipe_id,omitempty"`
}

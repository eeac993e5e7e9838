package server

import "github.com/ladle-dev/ladle/internal/model"

type importURLRequest struct {
	URL             string  `json:"url"`
	UserID          string  `json:"user_id,omitempty"`
	SkipDirectFetch bool    `json:"skip_direct_fetch,omitempty"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type importTextRequest struct {
	Content     string  `json:"content"`
	SourceURL   string  `json:"source_url,omitempty"`
	UserID      string  `json:"user_id,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// startJobRequest starts an asynchronous import. Kind selects which of the
// two synchronous operations the job runs.
type startJobRequest struct {
	Kind string `json:"kind"` // "url" | "text"

	URL             string `json:"url,omitempty"`
	SkipDirectFetch bool   `json:"skip_direct_fetch,omitempty"`

	Content   string `json:"content,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	UserID      string  `json:"user_id,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

func (r *startJobRequest) options() model.ExtractOptions {
	return model.ExtractOptions{MaxTokens: r.MaxTokens, Temperature: r.Temperature}
}

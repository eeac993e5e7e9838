// Package fetch retrieves recipe pages for the import pipeline. It wraps a
// webclient backend with the policy the orchestrator's fallback logic
// depends on: bot-blocking detection and HTTP error classification.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/webclient"
)

// ErrBlocked marks 403/429 responses so the caller can suggest manual
// import specifically for bot-blocking sites.
var ErrBlocked = errors.New("website blocks automated access")

// ErrTooLarge re-exports the webclient cap error for callers that only
// import fetch.
var ErrTooLarge = webclient.ErrTooLarge

// Fetcher retrieves a single page within the configured bounds.
type Fetcher struct {
	wc     webclient.WebClient
	logger logging.Logger
}

// New creates a Fetcher on top of the given webclient.
func New(wc webclient.WebClient, logger logging.Logger) (*Fetcher, error) {
	if wc == nil {
		return nil, errors.New("fetch: webclient is nil")
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Fetcher{
		wc:     wc,
		logger: logger.With(logging.Field{Key: "component", Value: "fetch"}),
	}, nil
}

// Page GETs the URL and returns the page HTML. Timeout, redirects, the
// User-Agent and both size checks are enforced by the webclient backend.
func (f *Fetcher) Page(ctx context.Context, url string) (string, error) {
	resp, err := f.wc.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: url})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		f.logger.Warn("bot-blocking response",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "status", Value: resp.StatusCode})
		return "", fmt.Errorf("fetch %s: %w (HTTP %d)", url, ErrBlocked, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("fetch %s: HTTP %d: %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	f.logger.Debug("fetched page",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "bytes", Value: len(resp.Body)})
	return string(resp.Body), nil
}

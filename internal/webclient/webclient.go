// Package webclient abstracts how Ladle retrieves pages. The default
// backend is plain net/http; a chromedp backend exists for recipe sites
// that only render their content client-side.
package webclient

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrTooLarge is returned when a response exceeds the configured body cap,
// either by declared Content-Length or by actual size.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Backend names accepted by the registry.
const (
	BackendNetHTTP  = "nethttp"
	BackendChromedp = "chromedp"
)

// Config is the minimal configuration a backend constructor needs.
type Config struct {
	// Backend selects the registered backend; empty means nethttp.
	Backend string

	// Timeout bounds one request end to end.
	Timeout time.Duration

	// MaxBodyBytes caps the response body. Zero means no cap.
	MaxBodyBytes int64

	// UserAgent is sent on every request when the request itself does not
	// set one.
	UserAgent string

	// RenderIdleAfter is how long the chromedp backend waits for the
	// network to go quiet before snapshotting the DOM.
	RenderIdleAfter time.Duration
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		Backend:         BackendNetHTTP,
		Timeout:         30 * time.Second,
		MaxBodyBytes:    5 << 20,
		UserAgent:       "LadleBot/1.0 (+https://github.com/ladle-dev/ladle; recipe importer)",
		RenderIdleAfter: 2 * time.Second,
	}
}

// Request is a backend-independent request description.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the buffered result of one request.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// WebClient executes requests. Implementations enforce the configured
// timeout and body cap themselves so callers can treat all backends alike.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

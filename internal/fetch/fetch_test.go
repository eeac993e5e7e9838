package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/webclient"
)

func newTestFetcher(t *testing.T, ts *httptest.Server) *Fetcher {
	t.Helper()
	cfg := webclient.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	wc, err := webclient.NewNetHTTPClient(cfg, logging.Nop{}, ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { wc.Close() })

	f, err := New(wc, logging.Nop{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestPage_ReturnsHTML(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><h1>Soup</h1></html>")
	}))
	defer ts.Close()

	html, err := newTestFetcher(t, ts).Page(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if !strings.Contains(html, "Soup") {
		t.Errorf("html = %q", html)
	}
}

func TestPage_BlockedStatuses(t *testing.T) {
	t.Parallel()
	for _, status := range []int{http.StatusForbidden, http.StatusTooManyRequests} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		_, err := newTestFetcher(t, ts).Page(context.Background(), ts.URL)
		ts.Close()
		if !errors.Is(err, ErrBlocked) {
			t.Errorf("status %d: expected ErrBlocked, got %v", status, err)
		}
	}
}

func TestPage_GenericHTTPError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := newTestFetcher(t, ts).Page(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrBlocked) {
		t.Fatal("404 must not be classified as bot-blocking")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error = %v, want HTTP 404 classification", err)
	}
}

func TestPage_FollowsRedirects(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "arrived")
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	html, err := newTestFetcher(t, ts).Page(context.Background(), ts.URL+"/old")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if html != "arrived" {
		t.Errorf("html = %q", html)
	}
}

// Package demosite serves a small fixture cooking site. The demo command
// imports from it, and end-to-end tests use it to exercise each tier of
// the extraction cascade without touching the network.
package demosite

import (
	"fmt"
	"html/template"
	"net/http"
)

// Config holds configuration for the demo site.
type Config struct {
	// Port is the port on which the demo site listens.
	Port int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Port: 9999}
}

// Site is the fixture cooking site.
type Site struct {
	cfg   Config
	pages map[string]PageDefinition
}

// New creates a demo site instance.
func New(cfg Config) *Site {
	pageMap := make(map[string]PageDefinition)
	for _, p := range AllPages() {
		pageMap[p.Path] = p
	}
	return &Site{cfg: cfg, pages: pageMap}
}

// Handler returns the site as an http.Handler for embedding in tests.
func (s *Site) Handler() http.Handler {
	mux := http.NewServeMux()
	for path := range s.pages {
		p := path // capture for closure
		mux.HandleFunc(p, s.pageHandler(p))
	}
	mux.HandleFunc("/", s.indexHandler)
	return mux
}

// Start starts the demo site.
func (s *Site) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	fmt.Printf("Demo site starting on http://localhost%s\n", addr)
	for _, p := range AllPages() {
		fmt.Printf("  http://localhost%s%s — %s\n", addr, p.Path, p.Description)
	}
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Site) pageHandler(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, ok := s.pages[path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		status := page.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(page.HTML))
	}
}

func (s *Site) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	tmpl := template.Must(template.New("index").Parse(indexHTML))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = tmpl.Execute(w, AllPages())
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Ladle Demo Site</title>
    <style>
        body { font-family: system-ui, -apple-system, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        h1 { border-bottom: 2px solid #e8590c; padding-bottom: 10px; }
        li { margin: 10px 0; }
        .desc { color: #666; }
    </style>
</head>
<body>
    <h1>Ladle Demo Site</h1>
    <p>Each page exercises a different tier of the import cascade.</p>
    <ul>
    {{range .}}
        <li><a href="{{.Path}}">{{.Path}}</a> <span class="desc">— {{.Description}}</span></li>
    {{end}}
    </ul>
</body>
</html>`

package webclient

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ladle-dev/ladle/internal/logging"
)

// Constructor builds a WebClient for a named backend.
type Constructor func(cfg Config, logger logging.Logger) (WebClient, error)

var (
	regMu    sync.RWMutex
	backends = map[string]Constructor{}
)

// Register adds a named backend constructor. Registering an existing name
// overwrites it.
func Register(name string, ctor Constructor) {
	if name == "" || ctor == nil {
		return
	}
	regMu.Lock()
	defer regMu.Unlock()
	backends[strings.ToLower(name)] = ctor
}

// RegisterDefaults registers the nethttp and chromedp backends. Call once
// early in main.
func RegisterDefaults() {
	Register(BackendNetHTTP, func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewNetHTTPClient(cfg, logger, nil)
	})
	Register(BackendChromedp, func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewChromedpClient(cfg, logger)
	})
}

// New constructs the backend named in cfg.Backend (nethttp when empty).
func New(cfg Config, logger logging.Logger) (WebClient, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if name == "" {
		name = BackendNetHTTP
	}

	regMu.RLock()
	ctor, ok := backends[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("webclient backend %q not registered (available: %v)", name, List())
	}

	wc, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("construct webclient backend %q: %w", name, err)
	}
	if wc == nil {
		return nil, errors.New("webclient constructor returned nil")
	}
	return wc, nil
}

// List returns the registered backend names, sorted.
func List() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(backends))
	for k := range backends {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

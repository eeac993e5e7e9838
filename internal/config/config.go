// Package config loads Ladle's TOML configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ladle-dev/ladle/internal/webclient"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP API settings.
type Server struct {
	ListenAddr    string `toml:"listen_addr"`
	DefaultUserID string `toml:"default_user_id"`
}

// Storage contains the recipe database settings.
type Storage struct {
	DatabasePath string `toml:"database_path"`
}

// Fetch contains the page retrieval settings.
type Fetch struct {
	// Backend selects the webclient backend: "nethttp" or "chromedp".
	Backend        string `toml:"backend"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBodyBytes   int64  `toml:"max_body_bytes"`
	UserAgent      string `toml:"user_agent"`
	RenderIdleMS   int    `toml:"render_idle_ms"`
}

// LLM contains the language-model tier settings. The tier is disabled
// when Endpoint or APIKey is empty.
type LLM struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
}

// Config encapsulates all configuration values for Ladle.
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Fetch   Fetch   `toml:"fetch"`
	LLM     LLM     `toml:"llm"`
}

// Default returns the built-in configuration.
func Default() Config {
	wc := webclient.DefaultConfig()
	return Config{
		Server: Server{
			ListenAddr:    ":8080",
			DefaultUserID: "local",
		},
		Storage: Storage{
			DatabasePath: "~/.local/share/ladle/ladle.db",
		},
		Fetch: Fetch{
			Backend:        wc.Backend,
			TimeoutSeconds: int(wc.Timeout / time.Second),
			MaxBodyBytes:   wc.MaxBodyBytes,
			UserAgent:      wc.UserAgent,
			RenderIdleMS:   int(wc.RenderIdleAfter / time.Millisecond),
		},
		LLM: LLM{
			Model: "gpt-4o-mini",
		},
	}
}

// SampleConfig returns the annotated sample configuration file.
func SampleConfig() string { return sampleConfig }

// WebClientConfig converts the fetch section into a webclient.Config.
func (c *Config) WebClientConfig() webclient.Config {
	return webclient.Config{
		Backend:         c.Fetch.Backend,
		Timeout:         time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		MaxBodyBytes:    c.Fetch.MaxBodyBytes,
		UserAgent:       c.Fetch.UserAgent,
		RenderIdleAfter: time.Duration(c.Fetch.RenderIdleMS) * time.Millisecond,
	}
}

// LLMEnabled reports whether the language-model tier is configured.
func (c *Config) LLMEnabled() bool {
	return c.LLM.Endpoint != "" && c.LLM.APIKey != ""
}

// Load locates and parses a configuration file. A missing file is not an
// error; defaults apply. Path fields come back expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func (c *Config) normalize() error {
	expanded, err := expandPath(c.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("expand database path: %w", err)
	}
	c.Storage.DatabasePath = expanded

	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = Default().Fetch.TimeoutSeconds
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		c.Fetch.MaxBodyBytes = Default().Fetch.MaxBodyBytes
	}
	return nil
}

// EnsureStorageDir creates the database directory if needed.
func (c *Config) EnsureStorageDir() error {
	dir := filepath.Dir(c.Storage.DatabasePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/ladle/config.toml")
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ladle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(p string) (string, error) {
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
	}
	return p, nil
}

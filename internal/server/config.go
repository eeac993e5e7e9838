package server

import "github.com/ladle-dev/ladle/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server (the CLI
	// uses the importer in-process and does not require the network).
	ListenAddr string

	// DefaultUserID is attributed to imports when a request carries no
	// user id. Authentication is an outer concern.
	DefaultUserID string

	Logger logging.Logger
}

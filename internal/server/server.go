// Package server is the HTTP + WebSocket API surface for Ladle.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ladle-dev/ladle/internal/importer"
	"github.com/ladle-dev/ladle/internal/logging"
	"github.com/ladle-dev/ladle/internal/model"
	"github.com/ladle-dev/ladle/internal/store"
)

type Server struct {
	cfg      Config
	importer *importer.Importer
	store    *store.Store
	jobs     *jobManager
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer wires the importer and store behind the API routes. The store
// may be nil; recipe listing endpoints then return 503.
func NewServer(cfg Config, imp *importer.Importer, st *store.Store) (*Server, error) {
	if imp == nil {
		return nil, errors.New("server: importer is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop{}
	}
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = "local"
	}

	s := &Server{
		cfg:      cfg,
		importer: imp,
		store:    st,
		jobs:     newJobManager(logger),
		router:   chi.NewRouter(),
		logger:   logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/import/url", s.optionsHandler("POST"))
	r.Options("/api/import/text", s.optionsHandler("POST"))
	r.Options("/api/import/jobs", s.optionsHandler("GET, POST"))
	r.Options("/api/import/jobs/{jobID}", s.optionsHandler("GET, DELETE"))
	r.Options("/api/recipes", s.optionsHandler("GET"))
	r.Options("/api/recipes/{recipeID}", s.optionsHandler("GET"))

	// Synchronous imports
	r.Post("/api/import/url", s.handleImportURL)
	r.Post("/api/import/text", s.handleImportText)

	// Asynchronous import jobs
	r.Post("/api/import/jobs", s.handleStartJob)
	r.Get("/api/import/jobs", s.handleListJobs)
	r.Get("/api/import/jobs/{jobID}", s.handleGetJob)
	r.Delete("/api/import/jobs/{jobID}", s.handleCancelJob)

	// WebSocket job progress
	r.Get("/ws/import/jobs/{jobID}", s.handleJobWS)

	// Recipes
	r.Get("/api/recipes", s.handleListRecipes)
	r.Get("/api/recipes/{recipeID}", s.handleGetRecipe)

	// API documentation
	r.Get("/openapi.json", s.handleOpenAPI)
	r.Get("/swagger/*", s.swaggerHandler())
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if r.Body != nil && r.Method == http.MethodPost {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body_bytes", Value: len(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close cancels running jobs. The store is owned by the caller.
func (s *Server) Close() {
	s.jobs.Close()
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) userID(requested string) string {
	if requested != "" {
		return requested
	}
	return s.cfg.DefaultUserID
}

func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var body importURLRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	res := s.importer.ImportFromURL(r.Context(), body.URL, s.userID(body.UserID), body.SkipDirectFetch,
		model.ExtractOptions{MaxTokens: body.MaxTokens, Temperature: body.Temperature})
	s.logger.Info("url import finished",
		logging.Field{Key: "url", Value: body.URL},
		logging.Field{Key: "status", Value: string(res.Status)},
		logging.Field{Key: "method", Value: res.Method})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request) {
	var body importTextRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	res := s.importer.ImportFromText(r.Context(), body.Content, body.SourceURL, s.userID(body.UserID),
		model.ExtractOptions{MaxTokens: body.MaxTokens, Temperature: body.Temperature})
	s.logger.Info("text import finished",
		logging.Field{Key: "status", Value: string(res.Status)},
		logging.Field{Key: "method", Value: res.Method})
	writeJSON(w, http.StatusOK, res)
}

// Jobs (REST)

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var body startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	job, err := s.startJob(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("started import job",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "kind", Value: job.Kind})
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) startJob(body *startJobRequest) (*Job, error) {
	userID := s.userID(body.UserID)
	switch body.Kind {
	case "url":
		if body.URL == "" {
			return nil, errors.New("url is required for kind \"url\"")
		}
		url, skip := body.URL, body.SkipDirectFetch
		opts := body.options()
		return s.jobs.Start("url", func(ctx context.Context) *model.ImportResult {
			return s.importer.ImportFromURL(ctx, url, userID, skip, opts)
		}), nil
	case "text":
		if body.Content == "" {
			return nil, errors.New("content is required for kind \"text\"")
		}
		content, sourceURL := body.Content, body.SourceURL
		opts := body.options()
		return s.jobs.Start("text", func(ctx context.Context) *model.ImportResult {
			return s.importer.ImportFromText(ctx, content, sourceURL, userID, opts)
		}), nil
	default:
		return nil, errors.New("kind must be \"url\" or \"text\"")
	}
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.jobs.Get(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	s.jobs.Cancel(jobID)
	s.logger.Info("canceled job", logging.Field{Key: "job_id", Value: jobID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.List())
}

// WebSockets

func (s *Server) handleJobWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.jobs.Get(jobID)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	// Send the current snapshot first; a job may already be done by the
	// time the client connects.
	_ = conn.WriteJSON(job)

	for ev := range job.Events {
		if err := conn.WriteJSON(ev); err != nil {
			// Assume client disconnected; cancel job
			s.jobs.Cancel(jobID)
			return
		}
	}
}

// Recipes

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "recipe storage is not configured")
		return
	}
	userID := s.userID(r.URL.Query().Get("user_id"))
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	recipes, err := s.store.ListRecipes(r.Context(), userID, limit)
	if err != nil {
		s.logger.Warn("listing recipes", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "recipe storage is not configured")
		return
	}
	recipeID := chi.URLParam(r, "recipeID")

	recipe, err := s.store.GetRecipe(r.Context(), recipeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recipe not found")
			return
		}
		s.logger.Warn("getting recipe", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Package api serves the template library over a JSON HTTP API.
//
// Resolution over HTTP is never interactive: values come from the request
// body and anything missing falls back to its default.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/logging"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/service"
	"github.com/dpshade/prompt-manager/internal/storage"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// APIServer exposes the service over HTTP
type APIServer struct {
	service      *service.Service
	errorHandler *errors.HTTPErrorHandler
	logger       zerolog.Logger
	addr         string
	server       *http.Server
	now          func() time.Time
}

// NewAPIServer creates a server that will listen on addr
func NewAPIServer(svc *service.Service, addr string) *APIServer {
	logger := logging.GetLogger("api")
	return &APIServer{
		service:      svc,
		errorHandler: errors.NewHTTPErrorHandler(true, logger),
		logger:       logger,
		addr:         addr,
		now:          time.Now,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/templates", s.handleListTemplates)
	mux.HandleFunc("POST /api/v1/templates", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/v1/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/v1/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/v1/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/v1/templates/{id}/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/v1/categories", s.handleCategories)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)
	mux.HandleFunc("POST /api/v1/sync", s.handleSync)
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/openapi.json", s.handleOpenAPISpec)

	return s.loggingMiddleware(s.corsMiddleware(s.errorMiddleware(mux)))
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("API server starting")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("API server stopping")
		return s.server.Shutdown(shutdownCtx)
	}
}

// statusRecorder remembers the status code for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

func (s *APIServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) errorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("Panic in handler")
				s.writeError(w, errors.InternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// APIResponse is the envelope of every successful response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (s *APIServer) writeResponse(w http.ResponseWriter, data interface{}, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(APIResponse{
		Success:   statusCode < 400,
		Data:      data,
		Message:   message,
		Timestamp: s.now(),
	}); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write response")
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	s.errorHandler.WriteHTTPError(w, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "request body is not valid JSON for this endpoint")
	}
	return nil
}

// GET /api/v1/templates?category=&q=&fuzzy=
func (s *APIServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var templates []*models.Template
	switch {
	case q.Get("q") != "" && q.Get("fuzzy") == "true":
		templates = s.service.FindTemplates(q.Get("q"))
	case q.Get("q") != "":
		templates = s.service.SearchTemplates(q.Get("q"))
	default:
		templates = s.service.ListTemplates(q.Get("category"))
	}
	if templates == nil {
		templates = []*models.Template{}
	}

	s.writeResponse(w, templates, fmt.Sprintf("Found %d templates", len(templates)), http.StatusOK)
}

func (s *APIServer) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in models.CreateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, err)
		return
	}

	t, err := s.service.CreateTemplate(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, t, "Template created", http.StatusCreated)
}

func (s *APIServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTemplate(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, t, "", http.StatusOK)
}

func (s *APIServer) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, err)
		return
	}
	in.ID = r.PathValue("id")

	t, err := s.service.UpdateTemplate(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, t, "Template updated", http.StatusOK)
}

func (s *APIServer) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Template deleted", http.StatusOK)
}

// ResolveRequest is the body of POST /api/v1/templates/{id}/resolve.
// At most one of FilePath, Untitled and URI may be set.
type ResolveRequest struct {
	Selection string            `json:"selection,omitempty"`
	FilePath  string            `json:"filePath,omitempty"`
	Untitled  string            `json:"untitled,omitempty"`
	URI       string            `json:"uri,omitempty"`
	Values    map[string]string `json:"values,omitempty"`
}

func (req ResolveRequest) context() (resolver.Context, error) {
	set := 0
	for _, v := range []string{req.FilePath, req.Untitled, req.URI} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return resolver.Context{}, errors.ValidationError("only one of filePath, untitled and uri may be set")
	}

	rc := resolver.Context{Selection: req.Selection}
	switch {
	case req.FilePath != "":
		rc.File = resolver.DiskFile(req.FilePath)
	case req.Untitled != "":
		rc.File = resolver.UntitledFile(req.Untitled)
	case req.URI != "":
		rc.File = resolver.ResourceFile(req.URI)
	}
	return rc, nil
}

// ResolveResponse carries the resolved text.
type ResolveResponse struct {
	Content     string            `json:"content"`
	Substituted int               `json:"substituted"`
	Values      map[string]string `json:"values,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
}

func (s *APIServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}

	rc, err := req.context()
	if err != nil {
		s.writeError(w, err)
		return
	}

	notes := &resolver.RecordingNotifier{}
	res, err := s.service.PreviewNotify(r.Context(), r.PathValue("id"), rc, resolver.PresetCollector(req.Values), notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if res.Cancelled {
		s.writeError(w, errors.NewAppError(errors.ErrCodeCancelled, "Resolution was cancelled"))
		return
	}

	s.writeResponse(w, ResolveResponse{
		Content:     res.Content,
		Substituted: res.Substituted,
		Values:      res.Values,
		Warnings:    notes.Warnings(),
		Errors:      notes.Errors(),
	}, fmt.Sprintf("%d variables processed", res.Substituted), http.StatusOK)
}

func (s *APIServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.service.Categories()
	if categories == nil {
		categories = []string{}
	}
	s.writeResponse(w, categories, "", http.StatusOK)
}

// GET /api/v1/export?format=json|yaml returns the raw export document.
func (s *APIServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(storage.FormatJSON)
	}
	f, err := storage.ParseFormat(format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if f == storage.FormatYAML {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="prompts-export.%s"`, f))
	if err := s.service.WriteLibrary(w, f); err != nil {
		s.logger.Warn().Err(err).Msg("Export failed mid-stream")
	}
}

func (s *APIServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ForceSync(); err != nil {
		s.writeError(w, err)
		return
	}
	count := len(s.service.ListTemplates(""))
	s.writeResponse(w, map[string]int{"templates": count}, "Library reloaded", http.StatusOK)
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status":    "ok",
		"templates": len(s.service.ListTemplates("")),
		"store":     s.service.Store().Path(),
	}, "", http.StatusOK)
}

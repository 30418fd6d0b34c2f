// Package api serves the layout pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz                       liveness probe
//	POST /v1/layouts                    build a layout from detector JSON
//	GET  /v1/layouts                    list archived builds, newest first
//	GET  /v1/layouts/{id}               fetch an archived build
//	GET  /v1/layouts/{id}/diagram       render an archived build as DOT or SVG
//	POST /v1/diagrams                   build and render in one call
//
// Build parameters travel as query parameters (tolerance, iou, dedup,
// refresh); diagram parameters as format and detailed. Errors are returned
// as {"error": {"code": ..., "message": ...}} with a status derived from the
// error code.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/wiretree/pkg/cache"
	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/pipeline"
	"github.com/matzehuels/wiretree/pkg/store"
)

// Handler holds the dependencies of every route.
type Handler struct {
	runner   *pipeline.Runner
	store    store.Store
	logger   *log.Logger
	defaults pipeline.Options
}

// New creates a handler. defaults seeds the build options of every request;
// query parameters override them.
func New(runner *pipeline.Runner, s store.Store, logger *log.Logger, defaults pipeline.Options) (*Handler, error) {
	if runner == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "api: runner is required")
	}
	if s == nil {
		s = store.NewMemoryStore()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	defaults.Logger = nil
	return &Handler{
		runner:   runner,
		store:    s,
		logger:   logger,
		defaults: defaults,
	}, nil
}

// Attach registers all routes on r.
func (h *Handler) Attach(r chi.Router) {
	r.Use(observe)

	r.Get("/healthz", h.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layouts", h.handleCreateLayout)
		r.Get("/layouts", h.handleListLayouts)
		r.Get("/layouts/{id}", h.handleGetLayout)
		r.Get("/layouts/{id}/diagram", h.handleLayoutDiagram)
		r.Post("/diagrams", h.handleCreateDiagram)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Response helpers
// =============================================================================

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJson(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	err = withBackendCode(err)
	status := statusFor(err)
	code := errors.GetCode(err)
	msg := errors.UserMessage(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	writeJson(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// withBackendCode codes backend failures that reached the handler without
// one.
func withBackendCode(err error) error {
	if errors.GetCode(err) != "" {
		return err
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Wrap(errors.ErrCodeTimeout, err, "backend timed out")
	case stderrors.Is(err, cache.ErrNetwork):
		return errors.Wrap(errors.ErrCodeNetwork, err, "backend unavailable")
	}
	return err
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidPath, errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeEmptyInput:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeLayoutNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

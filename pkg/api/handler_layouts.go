package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/pipeline"
	"github.com/matzehuels/wiretree/pkg/store"
)

// List limits.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// LayoutResponse is the body of a created or fetched layout.
type LayoutResponse struct {
	ID        string             `json:"id"`
	InputHash string             `json:"input_hash"`
	CacheHit  bool               `json:"cache_hit,omitempty"`
	Stats     pipeline.Stats     `json:"stats"`
	Warnings  []pipeline.Warning `json:"warnings"`
	CreatedAt time.Time          `json:"created_at"`
	Output    *layout.Output     `json:"output"`
}

// LayoutSummary is one entry of the list response.
type LayoutSummary struct {
	ID        string    `json:"id"`
	InputHash string    `json:"input_hash"`
	ImagePath string    `json:"image_path,omitempty"`
	Nodes     int       `json:"nodes"`
	Depth     int       `json:"depth"`
	CreatedAt time.Time `json:"created_at"`
}

func recordResponse(rec *store.Record) LayoutResponse {
	warnings := rec.Warnings
	if warnings == nil {
		warnings = []pipeline.Warning{}
	}
	return LayoutResponse{
		ID:        rec.ID,
		InputHash: rec.InputHash,
		Stats:     rec.Stats,
		Warnings:  warnings,
		CreatedAt: rec.CreatedAt,
		Output:    rec.Layout,
	}
}

func (h *Handler) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := h.buildOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	in, err := layout.ReadInput(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.runner.BuildWithCacheInfo(r.Context(), in, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rec := store.NewRecord(res)
	if err := h.store.Save(r.Context(), rec); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := recordResponse(rec)
	resp.CacheHit = res.CacheHit
	w.Header().Set("Location", "/v1/layouts/"+rec.ID)
	writeJson(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rec, err := h.lookup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJson(w, http.StatusOK, recordResponse(rec))
}

func (h *Handler) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]LayoutSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, LayoutSummary{
			ID:        rec.ID,
			InputHash: rec.InputHash,
			ImagePath: rec.ImagePath,
			Nodes:     rec.Stats.Nodes,
			Depth:     rec.Stats.Depth,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJson(w, http.StatusOK, map[string]any{"layouts": out})
}

func (h *Handler) lookup(r *http.Request) (*store.Record, error) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateLayoutID(id); err != nil {
		return nil, err
	}
	return h.store.Get(r.Context(), id)
}

// buildOptions applies query parameters on top of the handler defaults.
func (h *Handler) buildOptions(r *http.Request) (pipeline.Options, error) {
	opts := h.defaults
	q := r.URL.Query()

	if v := q.Get("tolerance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "tolerance: %q is not a number", v)
		}
		opts.Tolerance = f
	}
	if v := q.Get("iou"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "iou: %q is not a number", v)
		}
		opts.IoUThreshold = f
	}
	if v := q.Get("dedup"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "dedup: %q is not a boolean", v)
		}
		opts.SkipDedup = !b
	}
	if v := q.Get("refresh"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "refresh: %q is not a boolean", v)
		}
		opts.Refresh = b
	}
	opts.Logger = h.logger
	if err := opts.ValidateForBuild(); err != nil {
		return opts, err
	}
	return opts, nil
}

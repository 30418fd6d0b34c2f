package api

import (
	"net/http"
	"strconv"

	"github.com/matzehuels/wiretree/pkg/errors"
	"github.com/matzehuels/wiretree/pkg/layout"
	"github.com/matzehuels/wiretree/pkg/pipeline"
)

var contentTypes = map[string]string{
	pipeline.FormatDOT: "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatSVG: "image/svg+xml",
}

func (h *Handler) handleLayoutDiagram(w http.ResponseWriter, r *http.Request) {
	opts, err := diagramOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rec, err := h.lookup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDiagram(w, r, rec.Layout, opts)
}

func (h *Handler) handleCreateDiagram(w http.ResponseWriter, r *http.Request) {
	dopts, err := diagramOptions(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
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
	h.writeDiagram(w, r, res.Output, dopts)
}

func (h *Handler) writeDiagram(w http.ResponseWriter, r *http.Request, out *layout.Output, opts pipeline.Options) {
	opts.Logger = h.logger
	artifacts, err := h.runner.Render(r.Context(), out, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	format := opts.Formats[0]
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	w.Write(artifacts[format])
}

// diagramOptions reads format (default svg) and detailed from the query.
func diagramOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := errors.ValidateFormat(format, pipeline.ValidFormats...); err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{Formats: []string{format}}
	if v := q.Get("detailed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "detailed: %q is not a boolean", v)
		}
		opts.Detailed = b
	}
	return opts, nil
}

// Package api provides the HTTP surface of the conversion service. Handlers
// are thin shells over the engine package and hold no conversion logic.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"mdx2dax/internal/config"
	"mdx2dax/internal/engine"
	"mdx2dax/internal/explain"
	"mdx2dax/internal/lint"
	"mdx2dax/internal/mdx"
	"mdx2dax/internal/middleware"
)

// Handler serves the conversion endpoints.
type Handler struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewHandler builds the API handler.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{cfg: cfg, logger: logger}
}

// Router assembles the chi router with middleware and all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(h.logger))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: h.cfg.RateLimitRPS,
		Burst:             h.cfg.RateLimitBurst,
	}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", h.handleConvert)
		r.Post("/convert/batch", h.handleConvertBatch)
		r.Post("/lint", h.handleLint)
		r.Post("/explain", h.handleExplain)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// convertRequest is the body of POST /api/convert.
type convertRequest struct {
	Query             string `json:"query"`
	OptimizationLevel string `json:"optimization_level,omitempty"`
	SkipLint          bool   `json:"skip_lint,omitempty"`
	FormatOutput      bool   `json:"format_output,omitempty"`
	IncludeReport     bool   `json:"include_report,omitempty"`
}

type convertResponse struct {
	ID       string       `json:"id"`
	DAX      string       `json:"dax"`
	Warnings []string     `json:"warnings,omitempty"`
	Report   *lint.Report `json:"report,omitempty"`
}

// engineOptions builds pipeline options from the request fields.
func (h *Handler) engineOptions(level string, skipLint, formatOutput bool) (engine.Options, error) {
	opts := engine.DefaultOptions()
	opts.SkipLint = skipLint
	opts.DAX.FormatOutput = formatOutput
	if level != "" {
		parsed, err := lint.ParseLevel(level)
		if err != nil {
			return opts, err
		}
		opts.Lint.Level = parsed
	}
	return opts, nil
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if !h.decode(w, r, &req) {
		return
	}

	opts, err := h.engineOptions(req.OptimizationLevel, req.SkipLint, req.FormatOutput)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := engine.Convert(r.Context(), req.Query, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := convertResponse{ID: result.ID, DAX: result.DAX, Warnings: result.Warnings}
	if req.IncludeReport {
		resp.Report = result.LintReport
	}
	writeJSON(w, http.StatusOK, resp)
}

type batchRequest struct {
	Queries           []string `json:"queries"`
	OptimizationLevel string   `json:"optimization_level,omitempty"`
	MaxParallel       int      `json:"max_parallel,omitempty"`
}

type batchItemResponse struct {
	Index    int      `json:"index"`
	DAX      string   `json:"dax,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
	Kind     string   `json:"error_kind,omitempty"`
}

func (h *Handler) handleConvertBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Queries) == 0 {
		h.writeError(w, r, &engine.ValidationError{Field: "queries", Message: "no queries supplied"})
		return
	}
	if len(req.Queries) > h.cfg.MaxBatchQueries {
		h.writeError(w, r, &engine.ValidationError{Field: "queries", Message: "too many queries in batch"})
		return
	}

	opts, err := h.engineOptions(req.OptimizationLevel, false, false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	items, err := engine.ConvertBatch(r.Context(), req.Queries, opts, req.MaxParallel)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]batchItemResponse, len(items))
	for i, item := range items {
		resp := batchItemResponse{Index: item.Index}
		if item.Err != nil {
			resp.Error = item.Err.Error()
			resp.Kind = errorKind(item.Err)
		} else if item.Result != nil {
			resp.DAX = item.Result.DAX
			resp.Warnings = item.Result.Warnings
		}
		out[i] = resp
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

type lintRequest struct {
	Query             string          `json:"query"`
	OptimizationLevel string          `json:"optimization_level,omitempty"`
	Rules             map[string]bool `json:"rules,omitempty"`
}

type lintResponse struct {
	MDX    string       `json:"mdx"`
	Report *lint.Report `json:"report"`
}

func (h *Handler) handleLint(w http.ResponseWriter, r *http.Request) {
	var req lintRequest
	if !h.decode(w, r, &req) {
		return
	}

	cfg := lint.DefaultConfig()
	if req.OptimizationLevel != "" {
		level, err := lint.ParseLevel(req.OptimizationLevel)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		cfg.Level = level
	}
	cfg.Rules = req.Rules

	tree, err := mdx.Parse(req.Query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	linted, report, err := lint.Lint(tree, req.Query, cfg)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lintResponse{MDX: mdx.FormatQuery(linted), Report: report})
}

type explainRequest struct {
	Query           string `json:"query"`
	Format          string `json:"format,omitempty"`
	Detail          int    `json:"detail,omitempty"`
	IncludeDAX      bool   `json:"include_dax,omitempty"`
	IncludeMetadata bool   `json:"include_metadata,omitempty"`
}

func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if !h.decode(w, r, &req) {
		return
	}

	format, err := explain.ParseFormat(req.Format)
	if err != nil {
		h.writeError(w, r, &engine.ValidationError{Field: "format", Message: err.Error()})
		return
	}

	result, err := engine.Convert(r.Context(), req.Query, engine.DefaultOptions())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	text, err := explain.Explain(result.Query, explain.Config{
		Format:          format,
		Detail:          explain.DetailLevel(req.Detail),
		IncludeDAX:      req.IncludeDAX,
		IncludeMetadata: req.IncludeMetadata,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explanation": text})
}

// decode reads a JSON body, enforcing the configured size limit. Returns
// false after writing an error response.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxQueryBytes))
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.writeError(w, r, &engine.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Line  int    `json:"line,omitempty"`
	Col   int    `json:"col,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	resp := errorResponse{Error: err.Error(), Kind: errorKind(err)}

	var parseErr *mdx.ParseError
	if errors.As(err, &parseErr) {
		resp.Line = parseErr.Line
		resp.Col = parseErr.Col
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"error", err,
			"request_id", middleware.RequestIDFromContext(r.Context()),
		)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

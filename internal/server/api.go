package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/pipeline"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
)

const (
	MinLimit = 1
	MaxLimit = 50
)

// APIHandler serves the /api endpoints.
type APIHandler struct {
	engine   *tasks.CurationEngine
	pipeline pipeline.Config
	runs     RunLister
	token    TokenChecker
	logger   *log.Logger
}

type healthResponse struct {
	OK    bool `json:"ok"`
	Token bool `json:"token"`
	Moods int  `json:"moods"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness, whether the catalog can authenticate, and the preset count.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{OK: true, Token: true}
	if h.token != nil {
		if err := h.token.CheckToken(); err != nil {
			h.logger.Warn("token check failed", "error", err)
			resp.Token = false
		}
	}
	if h.engine != nil {
		resp.Moods = len(h.engine.Resolver().Presets())
	}
	writeJSON(w, http.StatusOK, resp)
}

// Moods lists preset keys in sorted order.
func (h *APIHandler) Moods(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusOK, []string{})
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Resolver().Presets().Keys())
}

// Recommend runs the pipeline for ?mood with limit (1..50), seed (>= 0) and variant (>= 0).
// Missing parameters take the configured playlist size, seed and variant; budgets, candidates
// and the genre cap always come from the config.
func (h *APIHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "curation engine not configured")
		return
	}

	q := r.URL.Query()
	mood := strings.TrimSpace(q.Get("mood"))
	if mood == "" {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}

	cfg := h.pipeline

	limit, err := intParam(q.Get("limit"), int64(min(max(cfg.PlaylistSize, MinLimit), MaxLimit)), MinLimit, MaxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	seed, err := intParam(q.Get("seed"), cfg.Seed, 0, -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "seed: "+err.Error())
		return
	}
	variant, err := intParam(q.Get("variant"), int64(cfg.Variant), 0, -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "variant: "+err.Error())
		return
	}

	cfg.PlaylistSize = int(limit)
	cfg.Seed = seed
	cfg.Variant = int(variant)

	out, err := h.engine.Curate(r.Context(), mood, cfg, nil)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("recommend failed", "mood", mood, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, out.Recommendation)
}

// Runs lists recent runs, newest first. Accepts ?limit (default 20) and ?mood.
func (h *APIHandler) Runs(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	limit, err := intParam(r.URL.Query().Get("limit"), 20, 1, 500)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}

	runs, err := h.runs.List(r.Context(), repositories.ListOpts{
		Mood:  strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mood"))),
		Limit: int(limit),
	})
	if err != nil {
		h.logger.Error("list runs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// TraceHandler serves trace files from a directory under /traces/.
type TraceHandler struct {
	dir string
	fs  http.Handler
}

// NewTraceHandler serves dir. Only .jsonl files are exposed.
func NewTraceHandler(dir string) *TraceHandler {
	return &TraceHandler{
		dir: dir,
		fs:  http.StripPrefix("/traces/", http.FileServer(http.Dir(dir))),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *TraceHandler) Routes() []string {
	return []string{"/traces/"}
}

func (h *TraceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/traces/")
	if name == "" || strings.Contains(name, "/") || filepath.Ext(name) != ".jsonl" {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}
	if _, err := os.Stat(filepath.Join(h.dir, name)); err != nil {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	h.fs.ServeHTTP(w, r)
}

// intParam parses an optional integer query parameter. A negative hi means no upper bound.
func intParam(raw string, def, lo, hi int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	if v < lo || (hi >= 0 && v > hi) {
		if hi >= 0 {
			return 0, fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return 0, fmt.Errorf("must be >= %d", lo)
	}
	return v, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	case errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

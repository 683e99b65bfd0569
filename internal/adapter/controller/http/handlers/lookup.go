package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
	"github.com/kr1s57/vigilancex-lookup/internal/usecase/lookup"
)

// LookupHandler handles analysis HTTP requests
type LookupHandler struct {
	service *lookup.Service
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(service *lookup.Service) *LookupHandler {
	return &LookupHandler{service: service}
}

// AnalyzeRequest is the POST body of an analysis
type AnalyzeRequest struct {
	Key     string          `json:"key"`
	Options *RequestOptions `json:"options,omitempty"`
}

// RequestOptions mirrors entity.Options; omitted tiers stay enabled
type RequestOptions struct {
	ForceRefresh       bool  `json:"force_refresh"`
	IncludeBasic       *bool `json:"include_basic,omitempty"`
	IncludeDetailed    *bool `json:"include_detailed,omitempty"`
	IncludeThreatIntel *bool `json:"include_threat_intel,omitempty"`
}

func (o *RequestOptions) toOptions() entity.Options {
	opts := entity.DefaultOptions()
	if o == nil {
		return opts
	}
	opts.ForceRefresh = o.ForceRefresh
	if o.IncludeBasic != nil {
		opts.IncludeBasic = *o.IncludeBasic
	}
	if o.IncludeDetailed != nil {
		opts.IncludeDetailed = *o.IncludeDetailed
	}
	if o.IncludeThreatIntel != nil {
		opts.IncludeThreatIntel = *o.IncludeThreatIntel
	}
	return opts
}

// optionsFromQuery reads force_refresh, basic, detailed and threat_intel flags
func optionsFromQuery(r *http.Request) entity.Options {
	q := r.URL.Query()
	opts := entity.DefaultOptions()

	flag := func(name string, def bool) bool {
		v := q.Get(name)
		if v == "" {
			return def
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}

	opts.ForceRefresh = flag("force_refresh", false)
	opts.IncludeBasic = flag("basic", true)
	opts.IncludeDetailed = flag("detailed", true)
	opts.IncludeThreatIntel = flag("threat_intel", true)
	return opts
}

// Analyze runs an analysis for the key query parameter
// GET /api/v1/analyze?key=...
func (h *LookupHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		ErrorResponse(w, http.StatusBadRequest, "Query parameter 'key' required", nil)
		return
	}

	h.analyze(w, r, key, optionsFromQuery(r))
}

// AnalyzePost runs an analysis described by a JSON body
// POST /api/v1/analyze
func (h *LookupHandler) AnalyzePost(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Key == "" {
		ErrorResponse(w, http.StatusBadRequest, "Field 'key' required", nil)
		return
	}

	h.analyze(w, r, req.Key, req.Options.toOptions())
}

// AnalyzeIP is the path-parameter shorthand for IP keys
// GET /api/v1/ip/{ip}
func (h *LookupHandler) AnalyzeIP(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if ip == "" {
		ErrorResponse(w, http.StatusBadRequest, "IP address required", nil)
		return
	}

	opts := optionsFromQuery(r)
	key, err := entity.ParseKey(ip)
	if err == nil && key.Kind != entity.KindIP {
		err = entity.ErrInvalidKeyFormat
	}
	if err != nil {
		lookupError(w, err)
		return
	}

	h.analyze(w, r, key.Value, opts)
}

func (h *LookupHandler) analyze(w http.ResponseWriter, r *http.Request, key string, opts entity.Options) {
	env, err := h.service.Analyze(r.Context(), key, opts)
	if err != nil {
		lookupError(w, err)
		return
	}

	JSONResponse(w, http.StatusOK, env)
}

// GetStats returns cache and query counters
// GET /api/v1/stats
func (h *LookupHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, h.service.Stats())
}

// GetProviders lists adapters per engine
// GET /api/v1/providers
func (h *LookupHandler) GetProviders(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, h.service.Providers())
}

// GetHistory returns past analyses of a key
// GET /api/v1/history?key=...&limit=20
func (h *LookupHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if !h.service.HistoryEnabled() {
		ErrorResponse(w, http.StatusServiceUnavailable, "History is disabled", nil)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		ErrorResponse(w, http.StatusBadRequest, "Query parameter 'key' required", nil)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	history, err := h.service.History(r.Context(), key, limit)
	if err != nil {
		lookupError(w, err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"key":     key,
		"history": history,
		"count":   len(history),
	})
}

// FlushCache empties every engine cache
// DELETE /api/v1/cache
func (h *LookupHandler) FlushCache(w http.ResponseWriter, r *http.Request) {
	h.service.FlushCache()
	SuccessResponse(w, "Cache flushed", nil)
}

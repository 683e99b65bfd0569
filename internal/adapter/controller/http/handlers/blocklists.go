package handlers

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/blocklist"
)

// BlocklistsHandler handles blocklist-related HTTP requests
type BlocklistsHandler struct {
	ingester *blocklist.FeedIngester
}

// NewBlocklistsHandler creates a new blocklists handler
func NewBlocklistsHandler(ingester *blocklist.FeedIngester) *BlocklistsHandler {
	return &BlocklistsHandler{ingester: ingester}
}

// GetCategories returns the category registry
// GET /api/v1/blocklists/categories
func (h *BlocklistsHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	reg := h.ingester.Registry()

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"categories": reg.Categories,
		"names":      reg.CategoryNames(),
		"feeds":      reg.Feeds,
	})
}

// CheckIP reports the feeds listing an IP
// GET /api/v1/blocklists/check/{ip}
func (h *BlocklistsHandler) CheckIP(w http.ResponseWriter, r *http.Request) {
	addr, err := netip.ParseAddr(chi.URLParam(r, "ip"))
	if err != nil || addr.Zone() != "" {
		ErrorResponse(w, http.StatusBadRequest, "Invalid IP address", err)
		return
	}
	if !h.ingester.Loaded() {
		ErrorResponse(w, http.StatusServiceUnavailable, "Blocklists not loaded yet", nil)
		return
	}

	JSONResponse(w, http.StatusOK, h.ingester.Check(addr))
}

// GetStatus returns status of all enabled feeds
// GET /api/v1/blocklists/status
func (h *BlocklistsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	statuses := h.ingester.FeedStatuses()

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"feeds":   statuses,
		"count":   len(statuses),
		"entries": h.ingester.EntryCount(),
	})
}

// Refresh downloads every feed now
// POST /api/v1/blocklists/refresh
func (h *BlocklistsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	results := h.ingester.Refresh(r.Context())

	successCount := 0
	for _, res := range results {
		if res.Success {
			successCount++
		}
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":       "Refresh completed",
		"total_feeds":   len(results),
		"success_count": successCount,
		"results":       results,
	})
}

package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/blocklist"
	"github.com/kr1s57/vigilancex-lookup/internal/config"
	"github.com/kr1s57/vigilancex-lookup/internal/usecase/lookup"
)

var startTime = time.Now()

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	Uptime      string            `json:"uptime"`
	Environment string            `json:"environment"`
	Timestamp   time.Time         `json:"timestamp"`
	Checks      map[string]string `json:"checks"`
	System      SystemInfo        `json:"system"`
}

// SystemInfo represents system information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
}

// HealthCheck returns a handler for health check endpoint.
// ingester may be nil when blocklists are disabled.
func HealthCheck(cfg *config.Config, service *lookup.Service, ingester *blocklist.FeedIngester) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		checks := map[string]string{
			"api":     "ok",
			"history": "disabled",
		}
		if service.HistoryEnabled() {
			checks["history"] = "ok"
		}

		status := "healthy"
		switch {
		case ingester == nil:
			checks["blocklists"] = "disabled"
		case ingester.Loaded():
			checks["blocklists"] = "ok"
		default:
			checks["blocklists"] = "loading"
			status = "degraded"
		}

		response := HealthResponse{
			Status:      status,
			Version:     "1.0.0",
			Uptime:      time.Since(startTime).Round(time.Second).String(),
			Environment: cfg.App.Env,
			Timestamp:   time.Now().UTC(),
			Checks:      checks,
			System: SystemInfo{
				GoVersion:    runtime.Version(),
				NumCPU:       runtime.NumCPU(),
				NumGoroutine: runtime.NumGoroutine(),
				MemAllocMB:   m.Alloc / 1024 / 1024,
			},
		}

		JSONResponse(w, http.StatusOK, response)
	}
}

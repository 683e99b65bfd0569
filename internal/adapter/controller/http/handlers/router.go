package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/controller/http/middleware"
	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/blocklist"
	"github.com/kr1s57/vigilancex-lookup/internal/config"
	"github.com/kr1s57/vigilancex-lookup/internal/usecase/lookup"
)

// RouterConfig wires the REST surface
type RouterConfig struct {
	Config  *config.Config
	Service *lookup.Service
	// Ingester is nil when blocklists are disabled
	Ingester *blocklist.FeedIngester
	// WebSocket serves /ws; the route is omitted when nil
	WebSocket http.HandlerFunc
	Logger    *slog.Logger
}

// NewRouter builds the chi router with global middleware and all routes
func NewRouter(rc RouterConfig) chi.Router {
	cfg := rc.Config
	logger := rc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger, "/health"))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.RateLimit.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit.RequestsPerMinute, time.Minute))
	}

	r.Get("/health", HealthCheck(cfg, rc.Service, rc.Ingester))

	lookupHandler := NewLookupHandler(rc.Service)

	var blocklistsHandler *BlocklistsHandler
	if rc.Ingester != nil {
		blocklistsHandler = NewBlocklistsHandler(rc.Ingester)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/analyze", lookupHandler.Analyze)
		r.Post("/analyze", lookupHandler.AnalyzePost)
		r.Get("/ip/{ip}", lookupHandler.AnalyzeIP)
		r.Get("/stats", lookupHandler.GetStats)
		r.Get("/providers", lookupHandler.GetProviders)
		r.Get("/history", lookupHandler.GetHistory)

		if blocklistsHandler != nil {
			r.Route("/blocklists", func(r chi.Router) {
				r.Get("/categories", blocklistsHandler.GetCategories)
				r.Get("/check/{ip}", blocklistsHandler.CheckIP)
				r.Get("/status", blocklistsHandler.GetStatus)
			})
		}

		// Admin routes are only mounted when a signing secret is configured
		if cfg.AdminEnabled() {
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(middleware.NewTokenVerifier(cfg.JWT.Secret)))
				r.Use(middleware.RequireAdmin())

				r.Delete("/cache", lookupHandler.FlushCache)
				if blocklistsHandler != nil {
					r.Post("/blocklists/refresh", blocklistsHandler.Refresh)
				}
			})
		}
	})

	if rc.WebSocket != nil {
		r.Get("/ws", rc.WebSocket)
	}

	return r
}

// Package app assembles the lookup engines and their providers from configuration.
package app

import (
	"fmt"
	"log/slog"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/blocklist"
	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/geoip"
	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/threatintel"
	"github.com/kr1s57/vigilancex-lookup/internal/config"
	"github.com/kr1s57/vigilancex-lookup/internal/usecase/lookup"
)

// Engines holds the two aggregation engines
type Engines struct {
	IP  *lookup.Engine
	URL *lookup.Engine
}

// NewIngester loads the blocklist registry. It returns nil when blocklists are disabled.
func NewIngester(cfg *config.Config, logger *slog.Logger) (*blocklist.FeedIngester, error) {
	if !cfg.Blocklist.Enabled {
		return nil, nil
	}

	registry := blocklist.DefaultRegistry()
	if path := cfg.Blocklist.RegistryPath; path != "" {
		loaded, err := blocklist.LoadRegistry(path)
		if err != nil {
			return nil, fmt.Errorf("blocklist registry %s: %w", path, err)
		}
		registry = loaded
	}

	return blocklist.NewFeedIngester(blocklist.IngesterConfig{
		Registry:      registry,
		MaxConcurrent: cfg.Blocklist.MaxConcurrent,
		UserAgent:     cfg.Lookup.UserAgent,
		Logger:        logger.With("component", "blocklist"),
	}), nil
}

// NewEngines builds the IP and URL engines. ingester may be nil.
func NewEngines(cfg *config.Config, logger *slog.Logger, ingester *blocklist.FeedIngester) Engines {
	ua := cfg.Lookup.UserAgent

	// ip-api.com shares one limiter between both engines
	ipAPI := geoip.NewIPAPIClient(geoip.IPAPIConfig{
		UserAgent:     ua,
		RatePerMinute: cfg.Providers.IPAPIRatePerMinute,
	})

	// ThreatFox indexes both ip:port and url IOCs
	threatFox := threatintel.NewThreatFoxClient(threatintel.ThreatFoxConfig{
		APIKey:    cfg.Providers.ThreatFoxKey,
		UserAgent: ua,
	})

	ipAdapters := []lookup.Adapter{
		ipAPI,
		geoip.NewIPWhoisClient(geoip.IPWhoisConfig{UserAgent: ua}),
		geoip.NewIPInfoClient(geoip.IPInfoConfig{
			Token:     cfg.Providers.IPInfoToken,
			UserAgent: ua,
		}),
		threatintel.NewAbuseIPDBClient(threatintel.AbuseIPDBConfig{
			APIKey:    cfg.Providers.AbuseIPDBKey,
			UserAgent: ua,
		}),
		threatintel.NewShodanInternetDBClient(threatintel.ShodanInternetDBConfig{UserAgent: ua}),
		threatintel.NewGreyNoiseClient(threatintel.GreyNoiseConfig{
			APIKey:    cfg.Providers.GreyNoiseKey,
			UserAgent: ua,
		}),
		threatFox,
	}
	if ingester != nil {
		ipAdapters = append(ipAdapters, blocklist.NewAdapter(ingester))
	}

	urlAdapters := []lookup.Adapter{
		ipAPI,
		threatintel.NewURLhausClient(threatintel.URLhausConfig{
			APIKey:    cfg.Providers.URLhausKey,
			UserAgent: ua,
		}),
		threatFox,
	}

	return Engines{
		IP: lookup.NewEngine(lookup.EngineConfig{
			Name:     "ip",
			TTL:      cfg.Lookup.GeoCacheTTL,
			Timeout:  cfg.Lookup.ProviderTimeout,
			Adapters: ipAdapters,
			Logger:   logger,
		}),
		URL: lookup.NewEngine(lookup.EngineConfig{
			Name:     "url",
			TTL:      cfg.Lookup.URLCacheTTL,
			Timeout:  cfg.Lookup.ProviderTimeout,
			Adapters: urlAdapters,
			Logger:   logger,
		}),
	}
}

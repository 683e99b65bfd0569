package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// EngineConfig holds configuration for an aggregation engine
type EngineConfig struct {
	Name     string
	TTL      time.Duration
	Timeout  time.Duration
	Adapters []Adapter
	Logger   *slog.Logger
	// Now overrides the clock, mostly for tests
	Now func() time.Time
}

// Engine runs the provider aggregation pipeline for one family of keys
type Engine struct {
	name     string
	adapters []Adapter
	cache    *Cache
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	flights  singleflight.Group

	totalQueries atomic.Int64
	successful   atomic.Int64
}

// NewEngine creates a new aggregation engine
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		name:     cfg.Name,
		adapters: cfg.Adapters,
		cache:    NewCache(cfg.TTL, cfg.Now),
		timeout:  cfg.Timeout,
		logger:   cfg.Logger.With("engine", cfg.Name),
		now:      cfg.Now,
	}
}

// Name returns the engine name
func (e *Engine) Name() string {
	return e.name
}

// Analyze returns the envelope for key, from cache when fresh.
// The bool result is true when the envelope was served from cache or by another caller's
// in-flight aggregation; only the caller that ran the aggregation sees false.
func (e *Engine) Analyze(ctx context.Context, key entity.Key, opts entity.Options) (*entity.Envelope, bool, error) {
	if key.Value == "" {
		return nil, false, fmt.Errorf("%w: empty key", entity.ErrInvalidKeyFormat)
	}

	adapters := e.selectAdapters(key.Kind, opts)
	if len(adapters) == 0 {
		return nil, false, fmt.Errorf("%w: %s (tiers %s)", entity.ErrNoAdapters, key.Kind, opts.TierMask())
	}

	e.totalQueries.Add(1)
	cacheKey := key.Value + "|" + opts.TierMask()

	if !opts.ForceRefresh {
		if cached, found := e.cache.Get(cacheKey); found {
			e.logger.Debug("Cache hit", "key", key.Value)
			e.recordOutcome(cached)
			return cached, true, nil
		}
	}

	flightKey := cacheKey
	if opts.ForceRefresh {
		flightKey += "|force"
	}

	executed := false
	v, err, _ := e.flights.Do(flightKey, func() (any, error) {
		if !opts.ForceRefresh {
			if cached, found := e.cache.peek(cacheKey); found {
				return cached, nil
			}
		}

		executed = true
		// Shared by every waiter on this key, so one caller going away must not cancel it
		env := e.aggregate(context.WithoutCancel(ctx), key, adapters)
		e.cache.Put(cacheKey, env)
		return env, nil
	})
	if err != nil {
		return nil, false, err
	}

	env := v.(*entity.Envelope)
	e.recordOutcome(env)
	return env, !executed, nil
}

func (e *Engine) aggregate(ctx context.Context, key entity.Key, adapters []Adapter) *entity.Envelope {
	start := e.now()
	settled := Dispatch(ctx, key, adapters, e.timeout)

	for _, s := range settled {
		if s.Err != nil {
			e.logger.Warn("Provider failed",
				"provider", s.Provider,
				"key", key.Value,
				"kind", s.Err.Kind,
				"error", s.Err.Cause,
			)
		}
	}

	env := BuildEnvelope(key, settled, e.now())

	e.logger.Info("Analysis complete",
		"key", key.Value,
		"providers", len(adapters),
		"succeeded", env.Succeeded(),
		"confidence", env.Confidence.Overall,
		"duration", e.now().Sub(start),
	)

	return env
}

func (e *Engine) recordOutcome(env *entity.Envelope) {
	if env.Succeeded() > 0 {
		e.successful.Add(1)
	}
}

func (e *Engine) selectAdapters(kind entity.KeyKind, opts entity.Options) []Adapter {
	var selected []Adapter
	for _, a := range e.adapters {
		if a.Supports(kind) && opts.Includes(a.Tier()) {
			selected = append(selected, a)
		}
	}
	return selected
}

// Supports reports whether at least one adapter handles kind
func (e *Engine) Supports(kind entity.KeyKind) bool {
	for _, a := range e.adapters {
		if a.Supports(kind) {
			return true
		}
	}
	return false
}

// Flush empties the cache
func (e *Engine) Flush() {
	e.cache.Clear()
	e.logger.Info("Cache flushed")
}

// Stats returns engine counters
func (e *Engine) Stats() entity.EngineStats {
	hits, misses := e.cache.Counters()
	// successful is bumped after totalQueries, so read it first
	successful := e.successful.Load()
	total := e.totalQueries.Load()

	rate := 0.0
	if total > 0 {
		rate = min(1, float64(successful)/float64(total))
	}

	return entity.EngineStats{
		Name:         e.name,
		CacheSize:    e.cache.Len(),
		CacheHits:    hits,
		CacheMisses:  misses,
		TotalQueries: total,
		SuccessRate:  rate,
		TTL:          e.cache.TTL().String(),
	}
}

// Providers describes the engine's adapters
func (e *Engine) Providers() []entity.ProviderInfo {
	kinds := []entity.KeyKind{entity.KindIP, entity.KindURL}

	infos := make([]entity.ProviderInfo, 0, len(e.adapters))
	for _, a := range e.adapters {
		info := entity.ProviderInfo{
			Name:       a.Name(),
			Tier:       a.Tier(),
			Kinds:      []entity.KeyKind{},
			Configured: a.IsConfigured(),
		}
		for _, k := range kinds {
			if a.Supports(k) {
				info.Kinds = append(info.Kinds, k)
			}
		}
		infos = append(infos, info)
	}
	return infos
}

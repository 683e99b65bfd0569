package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// HistoryRepository persists summaries of fresh envelopes
type HistoryRepository interface {
	Save(ctx context.Context, history *entity.LookupHistory) error
	ListByKey(ctx context.Context, key string, limit int) ([]entity.LookupHistory, error)
}

// Notifier publishes fresh envelopes to live subscribers
type Notifier interface {
	BroadcastToTopic(topic, msgType string, payload interface{})
}

// ServiceConfig wires the lookup service
type ServiceConfig struct {
	IPEngine  *Engine
	URLEngine *Engine
	History   HistoryRepository
	Notifier  Notifier
	Logger    *slog.Logger
}

// Service is the query API: it validates keys and routes them to the right engine
type Service struct {
	engines  map[entity.KeyKind]*Engine
	ordered  []*Engine
	history  HistoryRepository
	notifier Notifier
	logger   *slog.Logger
}

// NewService creates a new lookup service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		engines:  make(map[entity.KeyKind]*Engine),
		history:  cfg.History,
		notifier: cfg.Notifier,
		logger:   logger,
	}
	if cfg.IPEngine != nil {
		s.engines[entity.KindIP] = cfg.IPEngine
		s.ordered = append(s.ordered, cfg.IPEngine)
	}
	if cfg.URLEngine != nil {
		s.engines[entity.KindURL] = cfg.URLEngine
		s.ordered = append(s.ordered, cfg.URLEngine)
	}
	return s
}

// Analyze validates raw and returns its envelope.
// Only key validation and an empty adapter selection are reported as errors;
// provider failures are listed in the envelope.
func (s *Service) Analyze(ctx context.Context, raw string, opts entity.Options) (*entity.Envelope, error) {
	key, err := entity.ParseKey(raw)
	if err != nil {
		return nil, err
	}

	engine, ok := s.engines[key.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no engine for %s keys", entity.ErrNoAdapters, key.Kind)
	}

	env, cacheHit, err := engine.Analyze(ctx, key, opts)
	if err != nil {
		return nil, err
	}

	if !cacheHit {
		s.publish(env)
	}

	return env, nil
}

func (s *Service) publish(env *entity.Envelope) {
	if s.history != nil {
		go s.saveHistory(env)
	}

	if s.notifier != nil {
		s.notifier.BroadcastToTopic("analysis", "analysis", Summarize(env))
	}
}

// saveHistory persists the envelope summary to the history store
func (s *Service) saveHistory(env *entity.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.history.Save(ctx, Summarize(env)); err != nil {
		s.logger.Error("Failed to save lookup history", "key", env.Key, "error", err)
	}
}

// Summarize reduces an envelope to its history row
func Summarize(env *entity.Envelope) *entity.LookupHistory {
	h := &entity.LookupHistory{
		ID:           env.ID,
		Key:          env.Key,
		Kind:         string(env.Kind),
		CheckedAt:    env.Timestamp,
		Providers:    []string{},
		Failed:       []string{},
		Country:      entity.Deref(env.Aggregated.Location.CountryCode),
		City:         entity.Deref(env.Aggregated.Location.City),
		ASN:          entity.Deref(env.Aggregated.Network.ASN),
		Confidence:   env.Confidence.Overall,
		ThreatCount:  uint32(len(env.Threats)),
		ServiceCount: uint32(len(env.Services)),
	}
	if h.Country == "" {
		h.Country = entity.Deref(env.Aggregated.Location.Country)
	}

	for name := range env.ProviderRecords {
		h.Providers = append(h.Providers, name)
	}
	for _, e := range env.Errors {
		h.Failed = append(h.Failed, e.Provider)
	}
	slices.Sort(h.Providers)
	slices.Sort(h.Failed)

	return h
}

// History returns past summaries for a key, newest first
func (s *Service) History(ctx context.Context, raw string, limit int) ([]entity.LookupHistory, error) {
	if s.history == nil {
		return []entity.LookupHistory{}, nil
	}

	key, err := entity.ParseKey(raw)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	return s.history.ListByKey(ctx, key.Value, limit)
}

// HistoryEnabled reports whether a history store is wired
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// Stats combines the counters of all engines
func (s *Service) Stats() entity.LookupStats {
	stats := entity.LookupStats{Engines: []entity.EngineStats{}}

	var successful float64
	for _, e := range s.ordered {
		es := e.Stats()
		stats.Engines = append(stats.Engines, es)
		stats.CacheSize += es.CacheSize
		stats.TotalQueries += es.TotalQueries
		successful += es.SuccessRate * float64(es.TotalQueries)
	}
	if stats.TotalQueries > 0 {
		stats.SuccessRate = successful / float64(stats.TotalQueries)
	}

	return stats
}

// FlushCache empties every engine cache
func (s *Service) FlushCache() {
	for _, e := range s.ordered {
		e.Flush()
	}
}

// Providers lists the adapters of every engine
func (s *Service) Providers() map[string][]entity.ProviderInfo {
	out := make(map[string][]entity.ProviderInfo, len(s.ordered))
	for _, e := range s.ordered {
		out[e.Name()] = e.Providers()
	}
	return out
}

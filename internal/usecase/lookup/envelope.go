package lookup

import (
	"time"

	"github.com/google/uuid"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// BuildEnvelope assembles the final result from settled adapter calls.
// Threats and services are flattened in adapter order without deduplication.
func BuildEnvelope(key entity.Key, settled []Settled, now time.Time) *entity.Envelope {
	env := &entity.Envelope{
		ID:              uuid.NewString(),
		Key:             key.Value,
		Kind:            key.Kind,
		Timestamp:       now.UTC(),
		ProviderRecords: make(map[string]*entity.ProviderRecord),
		Threats:         []entity.Threat{},
		Services:        []entity.Service{},
		Errors:          []entity.ProviderError{},
	}

	var records []*entity.ProviderRecord
	for _, s := range settled {
		if s.Err != nil {
			env.Errors = append(env.Errors, entity.ProviderError{
				Provider: s.Provider,
				Kind:     s.Err.Kind,
				Message:  s.Err.Cause.Error(),
			})
			continue
		}

		records = append(records, s.Record)
		env.ProviderRecords[s.Provider] = s.Record

		for _, t := range s.Record.Threats {
			if t.Provider == "" {
				t.Provider = s.Provider
			}
			env.Threats = append(env.Threats, t)
		}
		for _, svc := range s.Record.Services {
			if svc.Provider == "" {
				svc.Provider = s.Provider
			}
			env.Services = append(env.Services, svc)
		}
	}

	env.Aggregated = Aggregate(records)
	env.Confidence = Score(records)

	return env
}

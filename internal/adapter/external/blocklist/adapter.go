package blocklist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// Adapter exposes loaded blocklists as a threat intelligence provider
type Adapter struct {
	ingester *FeedIngester
}

// NewAdapter wraps an ingester
func NewAdapter(ingester *FeedIngester) *Adapter {
	return &Adapter{ingester: ingester}
}

// Fetch reports one threat per feed listing the key's address
func (a *Adapter) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !a.ingester.Loaded() {
		return nil, errors.New("no blocklist feed loaded yet")
	}

	addr, ok := key.Addr()
	if !ok {
		return nil, fmt.Errorf("%s is not an IP address", key.Value)
	}

	result := a.ingester.Check(addr)

	record := &entity.ProviderRecord{Threats: []entity.Threat{}}
	for _, m := range result.Matches {
		threatType := "blocklisted"
		if len(m.Categories) > 0 {
			threatType = m.Categories[0]
		}
		record.Threats = append(record.Threats, entity.Threat{
			Type:     threatType,
			Severity: confidenceSeverity(m.Confidence),
			Description: fmt.Sprintf("Listed in %s (%s) categories: %s",
				m.DisplayName, m.Entry, strings.Join(m.Categories, ", ")),
		})
	}

	return record, nil
}

func confidenceSeverity(confidence int) string {
	switch {
	case confidence >= 90:
		return "high"
	case confidence >= 75:
		return "medium"
	default:
		return "low"
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return "blocklists"
}

// Tier returns the provider tier
func (a *Adapter) Tier() entity.Tier {
	return entity.TierThreatIntel
}

// Supports returns true for IP keys only
func (a *Adapter) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP
}

// IsConfigured returns true when at least one feed is enabled
func (a *Adapter) IsConfigured() bool {
	return len(a.ingester.Registry().EnabledFeeds()) > 0
}

package entity

import (
	"encoding/json"
	"time"
)

// Tier groups providers by the kind of data they return
type Tier string

const (
	TierBasic       Tier = "basic"
	TierDetailed    Tier = "detailed"
	TierThreatIntel Tier = "threat_intel"
)

// Options controls a single analysis
type Options struct {
	ForceRefresh       bool `json:"force_refresh"`
	IncludeBasic       bool `json:"include_basic"`
	IncludeDetailed    bool `json:"include_detailed"`
	IncludeThreatIntel bool `json:"include_threat_intel"`
}

// DefaultOptions enables every provider tier
func DefaultOptions() Options {
	return Options{
		IncludeBasic:       true,
		IncludeDetailed:    true,
		IncludeThreatIntel: true,
	}
}

// Includes reports whether adapters of tier t take part in the analysis
func (o Options) Includes(t Tier) bool {
	switch t {
	case TierBasic:
		return o.IncludeBasic
	case TierDetailed:
		return o.IncludeDetailed
	case TierThreatIntel:
		return o.IncludeThreatIntel
	default:
		return false
	}
}

// TierMask is a compact representation of the included tiers, e.g. "bdt"
func (o Options) TierMask() string {
	mask := []byte("---")
	if o.IncludeBasic {
		mask[0] = 'b'
	}
	if o.IncludeDetailed {
		mask[1] = 'd'
	}
	if o.IncludeThreatIntel {
		mask[2] = 't'
	}
	return string(mask)
}

// ProviderRecord is the normalized output of one provider for one key.
// Nil fields were not supplied by the provider.
type ProviderRecord struct {
	Provider    string          `json:"provider"`
	Accuracy    string          `json:"accuracy"`
	Country     *string         `json:"country,omitempty"`
	CountryCode *string         `json:"country_code,omitempty"`
	Region      *string         `json:"region,omitempty"`
	City        *string         `json:"city,omitempty"`
	Latitude    *float64        `json:"latitude,omitempty"`
	Longitude   *float64        `json:"longitude,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	ISP         *string         `json:"isp,omitempty"`
	Org         *string         `json:"org,omitempty"`
	ASN         *string         `json:"asn,omitempty"`
	Threats     []Threat        `json:"threats,omitempty"`
	Services    []Service       `json:"services,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Threat is a security annotation lifted from a provider record
type Threat struct {
	Provider    string `json:"provider"`
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// Service is an exposed network service reported by a provider
type Service struct {
	Provider  string `json:"provider"`
	Port      int    `json:"port"`
	Transport string `json:"transport"`
	Name      string `json:"name,omitempty"`
}

// Location is the consensus location of a key
type Location struct {
	Country     *string  `json:"country,omitempty"`
	CountryCode *string  `json:"country_code,omitempty"`
	Region      *string  `json:"region,omitempty"`
	City        *string  `json:"city,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`
}

// Network is the consensus network ownership of a key
type Network struct {
	ISP *string `json:"isp,omitempty"`
	Org *string `json:"org,omitempty"`
	ASN *string `json:"asn,omitempty"`
}

// Aggregated holds the merged fields of all successful providers
type Aggregated struct {
	Location Location `json:"location"`
	Network  Network  `json:"network"`
}

// Confidence scores are bounded in [0,1]
type Confidence struct {
	Overall  float64 `json:"overall"`
	Location float64 `json:"location"`
	Network  float64 `json:"network"`
	Security float64 `json:"security"`
}

// ProviderError records a provider that did not produce a record
type ProviderError struct {
	Provider string           `json:"provider"`
	Kind     AdapterErrorKind `json:"kind"`
	Message  string           `json:"message"`
}

// Envelope is the final, immutable result of an analysis.
// ProviderRecords only holds providers that succeeded; failures are in Errors.
type Envelope struct {
	ID              string                     `json:"id"`
	Key             string                     `json:"key"`
	Kind            KeyKind                    `json:"kind"`
	Timestamp       time.Time                  `json:"timestamp"`
	ProviderRecords map[string]*ProviderRecord `json:"provider_records"`
	Aggregated      Aggregated                 `json:"aggregated"`
	Confidence      Confidence                 `json:"confidence"`
	Threats         []Threat                   `json:"threats"`
	Services        []Service                  `json:"services"`
	Errors          []ProviderError            `json:"errors"`
}

// Succeeded returns the number of providers that produced a record
func (e *Envelope) Succeeded() int {
	return len(e.ProviderRecords)
}

// ProviderInfo describes an adapter known to an engine
type ProviderInfo struct {
	Name       string    `json:"name"`
	Tier       Tier      `json:"tier"`
	Kinds      []KeyKind `json:"kinds"`
	Configured bool      `json:"configured"`
}

// EngineStats are the observability counters of one engine
type EngineStats struct {
	Name         string  `json:"name"`
	CacheSize    int     `json:"cache_size"`
	CacheHits    int64   `json:"cache_hits"`
	CacheMisses  int64   `json:"cache_misses"`
	TotalQueries int64   `json:"total_queries"`
	SuccessRate  float64 `json:"success_rate"`
	TTL          string  `json:"ttl"`
}

// LookupStats combines the stats of every engine
type LookupStats struct {
	CacheSize    int           `json:"cache_size"`
	TotalQueries int64         `json:"total_queries"`
	SuccessRate  float64       `json:"success_rate"`
	Engines      []EngineStats `json:"engines"`
}

// LookupHistory is a persisted summary of a fresh envelope
type LookupHistory struct {
	ID           string    `json:"id" ch:"id"`
	Key          string    `json:"key" ch:"key"`
	Kind         string    `json:"kind" ch:"kind"`
	CheckedAt    time.Time `json:"checked_at" ch:"checked_at"`
	Providers    []string  `json:"providers" ch:"providers"`
	Failed       []string  `json:"failed" ch:"failed"`
	Country      string    `json:"country" ch:"country"`
	City         string    `json:"city" ch:"city"`
	ASN          string    `json:"asn" ch:"asn"`
	Confidence   float64   `json:"confidence" ch:"confidence"`
	ThreatCount  uint32    `json:"threat_count" ch:"threat_count"`
	ServiceCount uint32    `json:"service_count" ch:"service_count"`
}

// OptString returns nil for an empty string
func OptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// OptFloat returns a pointer to f
func OptFloat(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

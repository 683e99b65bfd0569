package threatintel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// ThreatFoxConfig holds configuration for ThreatFox client
type ThreatFoxConfig struct {
	APIKey    string // Auth-Key from auth.abuse.ch
	BaseURL   string
	UserAgent string
}

// ThreatFoxClient queries abuse.ch ThreatFox for indicators of compromise.
// IPs match "ip:port" IOCs, URLs match url IOCs.
type ThreatFoxClient struct {
	apiKey string
	client *provider.Client
}

// ThreatFoxResponse represents the API response.
// Data is an array of IOCs when found and a string otherwise.
type ThreatFoxResponse struct {
	QueryStatus string          `json:"query_status"`
	Data        []ThreatFoxIOC  `json:"-"`
	DataRaw     json.RawMessage `json:"data"`
}

// UnmarshalJSON handles the variable data field type
func (r *ThreatFoxResponse) UnmarshalJSON(data []byte) error {
	type Alias ThreatFoxResponse
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(r),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(r.DataRaw) > 0 && r.DataRaw[0] == '[' {
		if err := json.Unmarshal(r.DataRaw, &r.Data); err != nil {
			return err
		}
	}
	return nil
}

// ThreatFoxIOC represents an indicator of compromise
type ThreatFoxIOC struct {
	ID               string   `json:"id"`
	IOC              string   `json:"ioc"`
	IOCType          string   `json:"ioc_type"`
	ThreatType       string   `json:"threat_type"`
	ThreatTypeDesc   string   `json:"threat_type_desc"`
	Malware          string   `json:"malware"`
	MalwarePrintable string   `json:"malware_printable"`
	Confidence       int      `json:"confidence_level"`
	FirstSeen        string   `json:"first_seen"`
	LastSeen         string   `json:"last_seen"`
	Reference        string   `json:"reference"`
	Tags             []string `json:"tags"`
}

// NewThreatFoxClient creates a new ThreatFox client
func NewThreatFoxClient(cfg ThreatFoxConfig) *ThreatFoxClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://threatfox-api.abuse.ch/api/v1"
	}

	return &ThreatFoxClient{
		apiKey: cfg.APIKey,
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// Fetch searches ThreatFox for the key
func (c *ThreatFoxClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("ThreatFox Auth-Key: %w", entity.ErrMissingCredential)
	}

	header := http.Header{}
	header.Set("Auth-Key", c.apiKey)

	payload := map[string]string{
		"query":       "search_ioc",
		"search_term": key.Value,
	}

	resp, err := c.client.PostJSON(ctx, "/", payload, header)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var tfResp ThreatFoxResponse
	if err := resp.Decode(&tfResp); err != nil {
		return nil, err
	}

	record := &entity.ProviderRecord{Raw: resp.Raw()}

	switch tfResp.QueryStatus {
	case "ok":
	case "no_result":
		return record, nil
	default:
		return nil, fmt.Errorf("ThreatFox query failed: %s", tfResp.QueryStatus)
	}

	// One threat per distinct (threat type, malware) pair
	seen := make(map[string]bool)
	for _, ioc := range tfResp.Data {
		id := ioc.ThreatType + "|" + ioc.Malware
		if seen[id] {
			continue
		}
		seen[id] = true

		record.Threats = append(record.Threats, entity.Threat{
			Type:        iocThreatType(ioc.ThreatType),
			Severity:    iocSeverity(ioc),
			Description: iocDescription(ioc),
		})
	}

	return record, nil
}

func iocThreatType(threatType string) string {
	switch strings.ToLower(threatType) {
	case "botnet_cc", "cc":
		return "c2"
	case "payload_delivery":
		return "malware_distribution"
	case "":
		return "ioc"
	default:
		return strings.ToLower(threatType)
	}
}

func iocSeverity(ioc ThreatFoxIOC) string {
	switch {
	case slices.Contains([]string{"botnet_cc", "cc"}, strings.ToLower(ioc.ThreatType)):
		return "critical"
	case ioc.Confidence >= 75:
		return "high"
	default:
		return "medium"
	}
}

func iocDescription(ioc ThreatFoxIOC) string {
	malware := ioc.MalwarePrintable
	if malware == "" {
		malware = ioc.Malware
	}
	desc := fmt.Sprintf("ThreatFox IOC %s (%s, confidence %d%%)", ioc.IOC, malware, ioc.Confidence)
	if len(ioc.Tags) > 0 {
		desc += ", tags: " + strings.Join(ioc.Tags, ", ")
	}
	return desc
}

// Name returns the provider name
func (c *ThreatFoxClient) Name() string {
	return "threatfox"
}

// Tier returns the provider tier
func (c *ThreatFoxClient) Tier() entity.Tier {
	return entity.TierThreatIntel
}

// Supports returns true for IP and URL keys
func (c *ThreatFoxClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP || kind == entity.KindURL
}

// IsConfigured returns true if Auth-Key is configured
func (c *ThreatFoxClient) IsConfigured() bool {
	return c.apiKey != ""
}

package threatintel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// GreyNoiseClient queries the GreyNoise Community API.
// GreyNoise identifies IPs that are mass-scanning the internet and known benign
// services (RIOT). The key is optional: anonymous calls get a lower daily quota.
type GreyNoiseClient struct {
	apiKey string
	client *provider.Client
}

// GreyNoiseConfig holds GreyNoise client configuration
type GreyNoiseConfig struct {
	APIKey    string
	BaseURL   string
	UserAgent string
}

// NewGreyNoiseClient creates a new GreyNoise client
func NewGreyNoiseClient(cfg GreyNoiseConfig) *GreyNoiseClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.greynoise.io/v3/community"
	}

	return &GreyNoiseClient{
		apiKey: cfg.APIKey,
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// GreyNoiseResponse represents the Community API response
type GreyNoiseResponse struct {
	IP             string `json:"ip"`
	Noise          bool   `json:"noise"`          // Is the IP scanning the internet?
	Riot           bool   `json:"riot"`           // Is it a known benign service (RIOT dataset)?
	Classification string `json:"classification"` // "benign", "malicious", "unknown"
	Name           string `json:"name"`           // Name of benign service (if riot=true)
	Link           string `json:"link"`
	LastSeen       string `json:"last_seen"`
	Message        string `json:"message"`
}

// Fetch queries GreyNoise for an IP address
func (c *GreyNoiseClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	var header http.Header
	if c.apiKey != "" {
		header = http.Header{}
		header.Set("key", c.apiKey)
	}

	resp, err := c.client.Get(ctx, "/"+key.Value, header)
	if err != nil {
		return nil, err
	}

	// 404 means the IP was never observed - normal for most addresses
	if resp.Status == http.StatusNotFound {
		return &entity.ProviderRecord{Raw: resp.Raw()}, nil
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var apiResp GreyNoiseResponse
	if err := resp.Decode(&apiResp); err != nil {
		return nil, err
	}

	record := &entity.ProviderRecord{Raw: resp.Raw()}

	// RIOT = Rule It Out: the name is the owning service (Googlebot, Microsoft...)
	if apiResp.Riot {
		record.Org = entity.OptString(apiResp.Name)
		return record, nil
	}

	switch apiResp.Classification {
	case "malicious":
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "malicious_scanner",
			Severity:    "high",
			Description: greyNoiseDescription("Classified malicious by GreyNoise", apiResp),
		})
	case "benign":
		// Known benign scanner (Shodan, Censys, researchers)
	default:
		if apiResp.Noise {
			record.Threats = append(record.Threats, entity.Threat{
				Type:        "scanner",
				Severity:    "low",
				Description: greyNoiseDescription("Observed mass-scanning the internet", apiResp),
			})
		}
	}

	return record, nil
}

func greyNoiseDescription(prefix string, r GreyNoiseResponse) string {
	if r.LastSeen == "" {
		return prefix
	}
	return fmt.Sprintf("%s (last seen %s)", prefix, r.LastSeen)
}

// Name returns the provider name
func (c *GreyNoiseClient) Name() string {
	return "greynoise"
}

// Tier returns the provider tier
func (c *GreyNoiseClient) Tier() entity.Tier {
	return entity.TierThreatIntel
}

// Supports returns true for IP keys only
func (c *GreyNoiseClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP
}

// IsConfigured returns true; the community endpoint works without a key
func (c *GreyNoiseClient) IsConfigured() bool {
	return true
}

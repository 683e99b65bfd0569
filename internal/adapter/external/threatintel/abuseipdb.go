package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// abuseReportThreshold is the minimum confidence score reported as a threat
const abuseReportThreshold = 25

// AbuseIPDBClient handles communication with AbuseIPDB API
type AbuseIPDBClient struct {
	apiKey string
	client *provider.Client
}

// AbuseIPDBConfig holds AbuseIPDB client configuration
type AbuseIPDBConfig struct {
	APIKey    string
	BaseURL   string
	UserAgent string
}

// NewAbuseIPDBClient creates a new AbuseIPDB client
func NewAbuseIPDBClient(cfg AbuseIPDBConfig) *AbuseIPDBClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.abuseipdb.com/api/v2"
	}

	return &AbuseIPDBClient{
		apiKey: cfg.APIKey,
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// AbuseIPDBResponse represents the API response for IP check
type AbuseIPDBResponse struct {
	Data AbuseIPDBData `json:"data"`
}

// AbuseIPDBData contains the IP information
type AbuseIPDBData struct {
	IPAddress            string   `json:"ipAddress"`
	IsPublic             bool     `json:"isPublic"`
	IsWhitelisted        bool     `json:"isWhitelisted"`
	AbuseConfidenceScore int      `json:"abuseConfidenceScore"`
	CountryCode          string   `json:"countryCode"`
	CountryName          string   `json:"countryName"`
	UsageType            string   `json:"usageType"`
	ISP                  string   `json:"isp"`
	Domain               string   `json:"domain"`
	Hostnames            []string `json:"hostnames"`
	TotalReports         int      `json:"totalReports"`
	NumDistinctUsers     int      `json:"numDistinctUsers"`
	LastReportedAt       string   `json:"lastReportedAt"`
	IsTor                bool     `json:"isTor"`
}

// Fetch queries AbuseIPDB for IP reputation
func (c *AbuseIPDBClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("AbuseIPDB API key: %w", entity.ErrMissingCredential)
	}

	header := http.Header{}
	header.Set("Key", c.apiKey)

	path := fmt.Sprintf("/check?ipAddress=%s&maxAgeInDays=90", url.QueryEscape(key.Value))
	resp, err := c.client.Get(ctx, path, header)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var apiResp AbuseIPDBResponse
	if err := resp.Decode(&apiResp); err != nil {
		return nil, err
	}
	data := apiResp.Data

	record := &entity.ProviderRecord{
		Accuracy:    "country",
		Country:     entity.OptString(data.CountryName),
		CountryCode: entity.OptString(data.CountryCode),
		ISP:         entity.OptString(data.ISP),
		Raw:         resp.Raw(),
	}

	if data.AbuseConfidenceScore >= abuseReportThreshold && !data.IsWhitelisted {
		record.Threats = append(record.Threats, entity.Threat{
			Type:     "abuse",
			Severity: abuseSeverity(data.AbuseConfidenceScore),
			Description: fmt.Sprintf("Abuse confidence %d%% from %d reports by %d users",
				data.AbuseConfidenceScore, data.TotalReports, data.NumDistinctUsers),
		})
	}
	if data.IsTor {
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "tor",
			Severity:    "high",
			Description: "Address is a Tor exit node",
		})
	}

	return record, nil
}

func abuseSeverity(score int) string {
	switch {
	case score >= 90:
		return "critical"
	case score >= 75:
		return "high"
	case score >= 50:
		return "medium"
	default:
		return "low"
	}
}

// Name returns the provider name
func (c *AbuseIPDBClient) Name() string {
	return "abuseipdb"
}

// Tier returns the provider tier
func (c *AbuseIPDBClient) Tier() entity.Tier {
	return entity.TierThreatIntel
}

// Supports returns true for IP keys only
func (c *AbuseIPDBClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP
}

// IsConfigured returns true if the client has an API key
func (c *AbuseIPDBClient) IsConfigured() bool {
	return c.apiKey != ""
}

package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// URLhausConfig holds configuration for URLhaus client
type URLhausConfig struct {
	APIKey    string // Auth-Key from auth.abuse.ch
	BaseURL   string
	UserAgent string
}

// URLhausClient queries abuse.ch URLhaus API for malicious URLs
// Requires Auth-Key header (free key from auth.abuse.ch)
type URLhausClient struct {
	apiKey string
	client *provider.Client
}

// URLhausURLResponse represents the URL lookup response
type URLhausURLResponse struct {
	QueryStatus string            `json:"query_status"`
	ID          string            `json:"id"`
	URL         string            `json:"url"`
	URLStatus   string            `json:"url_status"`
	Host        string            `json:"host"`
	DateAdded   string            `json:"date_added"`
	Threat      string            `json:"threat"`
	Blacklists  URLhausBlacklists `json:"blacklists"`
	Tags        []string          `json:"tags"`
	URLhausLink string            `json:"urlhaus_reference"`
}

// URLhausBlacklists contains blacklist status
type URLhausBlacklists struct {
	SpamhausDbl string `json:"spamhaus_dbl"`
	SurblMulti  string `json:"surbl"`
}

// NewURLhausClient creates a new URLhaus client
func NewURLhausClient(cfg URLhausConfig) *URLhausClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://urlhaus-api.abuse.ch/v1"
	}

	return &URLhausClient{
		apiKey: cfg.APIKey,
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// Fetch queries URLhaus for a URL
func (c *URLhausClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("URLhaus Auth-Key: %w", entity.ErrMissingCredential)
	}

	form := url.Values{}
	form.Set("url", key.Value)

	header := http.Header{}
	header.Set("Auth-Key", c.apiKey)

	resp, err := c.client.PostForm(ctx, "/url/", form, header)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var uhResp URLhausURLResponse
	if err := resp.Decode(&uhResp); err != nil {
		return nil, err
	}

	record := &entity.ProviderRecord{Raw: resp.Raw()}

	switch uhResp.QueryStatus {
	case "no_results":
		return record, nil
	case "ok":
	default:
		return nil, fmt.Errorf("URLhaus query failed: %s", uhResp.QueryStatus)
	}

	record.Threats = append(record.Threats, entity.Threat{
		Type:        urlThreatType(uhResp.Threat),
		Severity:    urlSeverity(uhResp),
		Description: urlDescription(uhResp),
	})

	if uhResp.Blacklists.SpamhausDbl != "" && uhResp.Blacklists.SpamhausDbl != "not listed" {
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "blacklisted",
			Severity:    "medium",
			Description: "Host listed on Spamhaus DBL: " + uhResp.Blacklists.SpamhausDbl,
		})
	}
	if uhResp.Blacklists.SurblMulti == "listed" {
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "blacklisted",
			Severity:    "medium",
			Description: "Host listed on SURBL",
		})
	}

	return record, nil
}

func urlThreatType(threat string) string {
	if threat == "" {
		return "malicious_url"
	}
	return threat
}

func urlSeverity(r URLhausURLResponse) string {
	if r.URLStatus == "online" {
		return "critical"
	}
	if r.Threat == "malware_download" {
		return "high"
	}
	return "medium"
}

func urlDescription(r URLhausURLResponse) string {
	desc := fmt.Sprintf("Listed by URLhaus (status %s)", r.URLStatus)
	if len(r.Tags) > 0 {
		desc += ", tags: " + strings.Join(r.Tags, ", ")
	}
	return desc
}

// Name returns the provider name
func (c *URLhausClient) Name() string {
	return "urlhaus"
}

// Tier returns the provider tier
func (c *URLhausClient) Tier() entity.Tier {
	return entity.TierThreatIntel
}

// Supports returns true for URL keys only
func (c *URLhausClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindURL
}

// IsConfigured returns true if Auth-Key is configured
func (c *URLhausClient) IsConfigured() bool {
	return c.apiKey != ""
}

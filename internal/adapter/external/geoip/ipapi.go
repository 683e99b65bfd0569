package geoip

import (
	"context"
	"fmt"
	"net/url"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

const ipAPIFields = "status,message,country,countryCode,regionName,city,lat,lon,timezone,isp,org,as,query,proxy,hosting"

// IPAPIClient queries ip-api.com (free tier: 45 requests/minute, no key).
// Accepts hostnames as well as IPs, so it also serves URL keys.
type IPAPIClient struct {
	client *provider.Client
}

// IPAPIConfig holds ip-api.com client configuration
type IPAPIConfig struct {
	BaseURL       string
	UserAgent     string
	RatePerMinute int
}

// NewIPAPIClient creates a new ip-api.com client
func NewIPAPIClient(cfg IPAPIConfig) *IPAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://ip-api.com/json"
	}
	if cfg.RatePerMinute == 0 {
		cfg.RatePerMinute = 45
	}

	return &IPAPIClient{
		client: provider.NewClient(provider.Config{
			BaseURL:       cfg.BaseURL,
			UserAgent:     cfg.UserAgent,
			RatePerMinute: cfg.RatePerMinute,
		}),
	}
}

// ipAPIResponse represents the response from ip-api.com
type ipAPIResponse struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	Org         string  `json:"org"`
	AS          string  `json:"as"`
	Query       string  `json:"query"`
	Proxy       bool    `json:"proxy"`
	Hosting     bool    `json:"hosting"`
}

// Fetch performs a geolocation lookup for the key's IP or host
func (c *IPAPIClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	host := key.Host()
	if host == "" {
		return nil, fmt.Errorf("no host in key %q", key.Value)
	}

	resp, err := c.client.Get(ctx, "/"+url.PathEscape(host)+"?fields="+ipAPIFields, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var apiResp ipAPIResponse
	if err := resp.Decode(&apiResp); err != nil {
		return nil, err
	}
	if apiResp.Status != "success" {
		return nil, fmt.Errorf("geoip lookup failed: %s", apiResp.Message)
	}

	record := &entity.ProviderRecord{
		Accuracy:    "city",
		Country:     entity.OptString(apiResp.Country),
		CountryCode: entity.OptString(apiResp.CountryCode),
		Region:      entity.OptString(apiResp.RegionName),
		City:        entity.OptString(apiResp.City),
		Latitude:    entity.OptFloat(apiResp.Lat),
		Longitude:   entity.OptFloat(apiResp.Lon),
		Timezone:    entity.OptString(apiResp.Timezone),
		ISP:         entity.OptString(apiResp.ISP),
		Org:         entity.OptString(apiResp.Org),
		ASN:         entity.OptString(provider.NormalizeASN(apiResp.AS)),
		Raw:         resp.Raw(),
	}

	if apiResp.Proxy {
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "proxy",
			Severity:    "medium",
			Description: "Address is a known proxy, VPN or Tor exit",
		})
	}
	if apiResp.Hosting {
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "hosting",
			Severity:    "low",
			Description: "Address belongs to a hosting or datacenter provider",
		})
	}

	return record, nil
}

// Name returns the provider name
func (c *IPAPIClient) Name() string {
	return "ip-api"
}

// Tier returns the provider tier
func (c *IPAPIClient) Tier() entity.Tier {
	return entity.TierBasic
}

// Supports returns true for IP and URL keys
func (c *IPAPIClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP || kind == entity.KindURL
}

// IsConfigured returns true (this client doesn't require API keys)
func (c *IPAPIClient) IsConfigured() bool {
	return true
}

package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// IPWhoisClient queries ipwho.is (free, no key)
type IPWhoisClient struct {
	client *provider.Client
}

// IPWhoisConfig holds ipwho.is client configuration
type IPWhoisConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NewIPWhoisClient creates a new ipwho.is client
func NewIPWhoisClient(cfg IPWhoisConfig) *IPWhoisClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ipwho.is"
	}

	return &IPWhoisClient{
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.Timeout,
		}),
	}
}

type ipWhoisResponse struct {
	IP          string   `json:"ip"`
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Region      string   `json:"region"`
	City        string   `json:"city"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Connection  struct {
		ASN int    `json:"asn"`
		Org string `json:"org"`
		ISP string `json:"isp"`
	} `json:"connection"`
	Timezone struct {
		ID string `json:"id"`
	} `json:"timezone"`
}

// Fetch performs a geolocation lookup for an IP key
func (c *IPWhoisClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	resp, err := c.client.Get(ctx, "/"+key.Value, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var apiResp ipWhoisResponse
	if err := resp.Decode(&apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Success {
		return nil, fmt.Errorf("ipwho.is lookup failed: %s", apiResp.Message)
	}

	return &entity.ProviderRecord{
		Accuracy:    "city",
		Country:     entity.OptString(apiResp.Country),
		CountryCode: entity.OptString(apiResp.CountryCode),
		Region:      entity.OptString(apiResp.Region),
		City:        entity.OptString(apiResp.City),
		Latitude:    apiResp.Latitude,
		Longitude:   apiResp.Longitude,
		Timezone:    entity.OptString(apiResp.Timezone.ID),
		ISP:         entity.OptString(apiResp.Connection.ISP),
		Org:         entity.OptString(apiResp.Connection.Org),
		ASN:         entity.OptString(provider.FormatASN(apiResp.Connection.ASN)),
		Raw:         resp.Raw(),
	}, nil
}

// Name returns the provider name
func (c *IPWhoisClient) Name() string {
	return "ipwho.is"
}

// Tier returns the provider tier
func (c *IPWhoisClient) Tier() entity.Tier {
	return entity.TierBasic
}

// Supports returns true for IP keys only
func (c *IPWhoisClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP
}

// IsConfigured returns true (no API key needed)
func (c *IPWhoisClient) IsConfigured() bool {
	return true
}

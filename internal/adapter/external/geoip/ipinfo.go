package geoip

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// IPInfoClient queries ipinfo.io; requires a token
type IPInfoClient struct {
	token  string
	client *provider.Client
}

// IPInfoConfig holds ipinfo.io client configuration
type IPInfoConfig struct {
	Token     string
	BaseURL   string
	UserAgent string
}

// NewIPInfoClient creates a new ipinfo.io client
func NewIPInfoClient(cfg IPInfoConfig) *IPInfoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ipinfo.io"
	}

	return &IPInfoClient{
		token: cfg.Token,
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

type ipInfoResponse struct {
	IP       string `json:"ip"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Loc      string `json:"loc"` // "lat,lon"
	Org      string `json:"org"` // "AS15169 Google LLC"
	Timezone string `json:"timezone"`
	Bogon    bool   `json:"bogon"`
	ASN      *struct {
		ASN  string `json:"asn"`
		Name string `json:"name"`
	} `json:"asn"`
	Company *struct {
		Name string `json:"name"`
	} `json:"company"`
	Privacy *struct {
		VPN     bool `json:"vpn"`
		Proxy   bool `json:"proxy"`
		Tor     bool `json:"tor"`
		Relay   bool `json:"relay"`
		Hosting bool `json:"hosting"`
	} `json:"privacy"`
}

// Fetch performs a detailed lookup for an IP key
func (c *IPInfoClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	if c.token == "" {
		return nil, fmt.Errorf("ipinfo.io token: %w", entity.ErrMissingCredential)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Get(ctx, "/"+key.Value+"/json", header)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var apiResp ipInfoResponse
	if err := resp.Decode(&apiResp); err != nil {
		return nil, err
	}
	if apiResp.Bogon {
		return nil, fmt.Errorf("ipinfo.io: %s is a bogon address", key.Value)
	}

	record := &entity.ProviderRecord{
		Accuracy:    "high",
		CountryCode: entity.OptString(apiResp.Country),
		Region:      entity.OptString(apiResp.Region),
		City:        entity.OptString(apiResp.City),
		Timezone:    entity.OptString(apiResp.Timezone),
		Raw:         resp.Raw(),
	}

	if lat, lon, ok := parseLoc(apiResp.Loc); ok {
		record.Latitude = entity.OptFloat(lat)
		record.Longitude = entity.OptFloat(lon)
	}

	// Paid plans return structured asn/company; the free plan folds them into org
	if apiResp.ASN != nil {
		record.ASN = entity.OptString(provider.NormalizeASN(apiResp.ASN.ASN))
		record.ISP = entity.OptString(apiResp.ASN.Name)
	} else if apiResp.Org != "" {
		record.ASN = entity.OptString(provider.NormalizeASN(apiResp.Org))
		if _, name, found := strings.Cut(apiResp.Org, " "); found {
			record.ISP = entity.OptString(name)
		}
	}
	if apiResp.Company != nil {
		record.Org = entity.OptString(apiResp.Company.Name)
	} else {
		record.Org = record.ISP
	}

	if p := apiResp.Privacy; p != nil {
		flags := []struct {
			set      bool
			kind     string
			severity string
			desc     string
		}{
			{p.VPN, "vpn", "medium", "Address is a VPN endpoint"},
			{p.Proxy, "proxy", "medium", "Address is an open or anonymous proxy"},
			{p.Tor, "tor", "high", "Address is a Tor exit node"},
			{p.Relay, "relay", "low", "Address is a privacy relay"},
			{p.Hosting, "hosting", "low", "Address belongs to a hosting provider"},
		}
		for _, f := range flags {
			if f.set {
				record.Threats = append(record.Threats, entity.Threat{
					Type:        f.kind,
					Severity:    f.severity,
					Description: f.desc,
				})
			}
		}
	}

	return record, nil
}

func parseLoc(loc string) (float64, float64, bool) {
	latStr, lonStr, found := strings.Cut(loc, ",")
	if !found {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// Name returns the provider name
func (c *IPInfoClient) Name() string {
	return "ipinfo"
}

// Tier returns the provider tier
func (c *IPInfoClient) Tier() entity.Tier {
	return entity.TierDetailed
}

// Supports returns true for IP keys only
func (c *IPInfoClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP
}

// IsConfigured returns true if the client has a token
func (c *IPInfoClient) IsConfigured() bool {
	return c.token != ""
}

package threatintel

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kr1s57/vigilancex-lookup/internal/adapter/external/provider"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// ShodanInternetDBClient queries Shodan's free InternetDB API
// Free API - no authentication required
// Provides: open ports, hostnames, tags, CPEs, vulnerabilities
type ShodanInternetDBClient struct {
	client *provider.Client
}

// ShodanInternetDBConfig holds InternetDB client configuration
type ShodanInternetDBConfig struct {
	BaseURL   string
	UserAgent string
}

// ShodanInternetDBResponse represents the API response
type ShodanInternetDBResponse struct {
	Hostnames []string `json:"hostnames"`
	IP        string   `json:"ip"`
	Ports     []int    `json:"ports"`
	Tags      []string `json:"tags"`
	CPEs      []string `json:"cpes"`
	Vulns     []string `json:"vulns"`
}

// Known critical CVEs reported with critical severity
var criticalVulns = []string{
	"2021-44228", // Log4Shell
	"2021-26855", // ProxyLogon
	"2017-0144",  // EternalBlue
	"2019-19781", // Citrix
}

// Tag fragments mapped to threat type and severity
var tagThreats = []struct {
	fragment string
	kind     string
	severity string
}{
	{"vpn", "vpn", "medium"},
	{"proxy", "proxy", "medium"},
	{"tor", "tor", "high"},
	{"c2", "c2", "critical"},
	{"compromised", "compromised", "high"},
}

// NewShodanInternetDBClient creates a new Shodan InternetDB client
func NewShodanInternetDBClient(cfg ShodanInternetDBConfig) *ShodanInternetDBClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://internetdb.shodan.io"
	}

	return &ShodanInternetDBClient{
		client: provider.NewClient(provider.Config{
			BaseURL:   cfg.BaseURL,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// Fetch queries Shodan InternetDB for an IP address
func (c *ShodanInternetDBClient) Fetch(ctx context.Context, key entity.Key) (*entity.ProviderRecord, error) {
	resp, err := c.client.Get(ctx, "/"+key.Value, nil)
	if err != nil {
		return nil, err
	}

	// 404 means IP not found in InternetDB (not an error, just no data)
	if resp.Status == http.StatusNotFound {
		return &entity.ProviderRecord{}, nil
	}
	if err := resp.Expect(); err != nil {
		return nil, err
	}

	var shodanResp ShodanInternetDBResponse
	if err := resp.Decode(&shodanResp); err != nil {
		return nil, err
	}

	record := &entity.ProviderRecord{Raw: resp.Raw()}

	for _, port := range shodanResp.Ports {
		record.Services = append(record.Services, entity.Service{
			Port:      port,
			Transport: "tcp",
		})
	}

	for _, vuln := range shodanResp.Vulns {
		record.Threats = append(record.Threats, entity.Threat{
			Type:        "known_vulnerability",
			Severity:    vulnSeverity(vuln),
			Description: vuln,
		})
	}

	for _, tag := range shodanResp.Tags {
		tagLower := strings.ToLower(tag)
		for _, t := range tagThreats {
			if strings.Contains(tagLower, t.fragment) {
				record.Threats = append(record.Threats, entity.Threat{
					Type:        t.kind,
					Severity:    t.severity,
					Description: fmt.Sprintf("Tagged %q by Shodan", tag),
				})
				break
			}
		}
	}

	return record, nil
}

func vulnSeverity(vuln string) string {
	for _, cve := range criticalVulns {
		if strings.Contains(vuln, cve) {
			return "critical"
		}
	}
	return "high"
}

// Name returns the provider name
func (c *ShodanInternetDBClient) Name() string {
	return "shodan-internetdb"
}

// Tier returns the provider tier
func (c *ShodanInternetDBClient) Tier() entity.Tier {
	return entity.TierThreatIntel
}

// Supports returns true for IP keys only
func (c *ShodanInternetDBClient) Supports(kind entity.KeyKind) bool {
	return kind == entity.KindIP
}

// IsConfigured returns true (InternetDB is always available - no API key needed)
func (c *ShodanInternetDBClient) IsConfigured() bool {
	return true
}

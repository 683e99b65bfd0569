package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/vigilancex-lookup/internal/config"
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

func testConfig() *config.Config {
	return &config.Config{
		Lookup: config.LookupConfig{
			GeoCacheTTL:     24 * time.Hour,
			URLCacheTTL:     time.Hour,
			ProviderTimeout: 12 * time.Second,
			UserAgent:       "test/1.0",
		},
		Blocklist: config.BlocklistConfig{Enabled: true},
	}
}

func providerNames(infos []entity.ProviderInfo) []string {
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
	}
	return names
}

func TestNewEngines(t *testing.T) {
	cfg := testConfig()
	logger := slog.Default()

	ingester, err := NewIngester(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, ingester)

	engines := NewEngines(cfg, logger, ingester)

	assert.Equal(t,
		[]string{"ip-api", "ipwho.is", "ipinfo", "abuseipdb", "shodan-internetdb", "greynoise", "threatfox", "blocklists"},
		providerNames(engines.IP.Providers()))
	assert.Equal(t, []string{"ip-api", "urlhaus", "threatfox"}, providerNames(engines.URL.Providers()))

	assert.Equal(t, "24h0m0s", engines.IP.Stats().TTL)
	assert.Equal(t, "1h0m0s", engines.URL.Stats().TTL)

	for _, info := range engines.IP.Providers() {
		switch info.Name {
		case "ipinfo", "abuseipdb", "threatfox":
			assert.False(t, info.Configured, info.Name)
		case "greynoise":
			assert.True(t, info.Configured)
		}
	}
}

func TestNewIngesterDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Blocklist.Enabled = false

	ingester, err := NewIngester(cfg, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, ingester)

	engines := NewEngines(cfg, slog.Default(), nil)
	assert.NotContains(t, providerNames(engines.IP.Providers()), "blocklists")
}

func TestNewIngesterRegistryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  botnet: [feodo]
feeds:
  - name: feodo
    display_name: Feodo
    url: https://example.invalid/feodo.txt
    format: ip_list
    confidence: 95
    enabled: true
`), 0o600))

	cfg := testConfig()
	cfg.Blocklist.RegistryPath = path

	ingester, err := NewIngester(cfg, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"botnet"}, ingester.Registry().CategoryNames())

	cfg.Blocklist.RegistryPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewIngester(cfg, slog.Default())
	assert.Error(t, err)
}

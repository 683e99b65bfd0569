package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

func ipKey(v string) entity.Key {
	return entity.Key{Kind: entity.KindIP, Value: v}
}

func jsonServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIPAPIFetch(t *testing.T) {
	server := jsonServer(t, `{
		"status":"success","country":"Germany","countryCode":"DE","regionName":"Hesse",
		"city":"Frankfurt am Main","lat":50.11,"lon":8.68,"timezone":"Europe/Berlin",
		"isp":"Hetzner Online GmbH","org":"Hetzner","as":"AS24940 Hetzner Online GmbH",
		"proxy":false,"hosting":true
	}`, func(r *http.Request) {
		assert.Equal(t, "/198.51.100.7", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "countryCode")
	})

	client := NewIPAPIClient(IPAPIConfig{BaseURL: server.URL})
	record, err := client.Fetch(context.Background(), ipKey("198.51.100.7"))
	require.NoError(t, err)

	assert.Equal(t, "Germany", *record.Country)
	assert.Equal(t, "DE", *record.CountryCode)
	assert.Equal(t, "Frankfurt am Main", *record.City)
	assert.InDelta(t, 50.11, *record.Latitude, 1e-9)
	assert.Equal(t, "AS24940", *record.ASN)
	require.Len(t, record.Threats, 1)
	assert.Equal(t, "hosting", record.Threats[0].Type)
	assert.NotEmpty(t, record.Raw)
}

func TestIPAPIFetchURLUsesHost(t *testing.T) {
	server := jsonServer(t, `{"status":"success","country":"France","countryCode":"FR"}`, func(r *http.Request) {
		assert.Equal(t, "/example.test", r.URL.Path)
	})

	client := NewIPAPIClient(IPAPIConfig{BaseURL: server.URL})
	assert.True(t, client.Supports(entity.KindURL))

	record, err := client.Fetch(context.Background(), entity.Key{Kind: entity.KindURL, Value: "https://example.test:8443/a?b=c"})
	require.NoError(t, err)
	assert.Equal(t, "FR", *record.CountryCode)
	assert.Nil(t, record.City)
}

func TestIPAPIFetchFailureStatus(t *testing.T) {
	server := jsonServer(t, `{"status":"fail","message":"reserved range"}`, nil)

	_, err := NewIPAPIClient(IPAPIConfig{BaseURL: server.URL}).Fetch(context.Background(), ipKey("10.0.0.1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved range")
}

func TestIPWhoisFetch(t *testing.T) {
	server := jsonServer(t, `{
		"ip":"8.8.8.8","success":true,"country":"United States","country_code":"US",
		"region":"California","city":"Mountain View","latitude":37.38,"longitude":-122.08,
		"connection":{"asn":15169,"org":"Google LLC","isp":"Google LLC"},
		"timezone":{"id":"America/Los_Angeles"}
	}`, func(r *http.Request) {
		assert.Equal(t, "/8.8.8.8", r.URL.Path)
	})

	client := NewIPWhoisClient(IPWhoisConfig{BaseURL: server.URL})
	record, err := client.Fetch(context.Background(), ipKey("8.8.8.8"))
	require.NoError(t, err)

	assert.Equal(t, "US", *record.CountryCode)
	assert.Equal(t, "AS15169", *record.ASN)
	assert.Equal(t, "America/Los_Angeles", *record.Timezone)
	assert.InDelta(t, -122.08, *record.Longitude, 1e-9)
	assert.False(t, client.Supports(entity.KindURL))
}

func TestIPWhoisFetchUnsuccessful(t *testing.T) {
	server := jsonServer(t, `{"success":false,"message":"Invalid IP address"}`, nil)

	_, err := NewIPWhoisClient(IPWhoisConfig{BaseURL: server.URL}).Fetch(context.Background(), ipKey("8.8.8.8"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid IP address")
}

func TestIPInfoMissingTokenMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := jsonServer(t, `{}`, func(*http.Request) { calls.Add(1) })

	client := NewIPInfoClient(IPInfoConfig{BaseURL: server.URL})
	assert.False(t, client.IsConfigured())

	_, err := client.Fetch(context.Background(), ipKey("8.8.8.8"))
	assert.ErrorIs(t, err, entity.ErrMissingCredential)
	assert.Zero(t, calls.Load())
}

func TestIPInfoFetch(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantASN     string
		wantISP     string
		wantOrg     string
		wantThreats []string
	}{
		{
			name:    "free plan folds asn into org",
			body:    `{"ip":"8.8.8.8","city":"Mountain View","country":"US","loc":"37.4056,-122.0775","org":"AS15169 Google LLC"}`,
			wantASN: "AS15169",
			wantISP: "Google LLC",
			wantOrg: "Google LLC",
		},
		{
			name: "structured asn company and privacy",
			body: `{"ip":"8.8.8.8","country":"US","loc":"37.4,-122.0",
				"asn":{"asn":"AS15169","name":"Google LLC"},
				"company":{"name":"Google Public DNS"},
				"privacy":{"vpn":true,"tor":true,"hosting":true}}`,
			wantASN:     "AS15169",
			wantISP:     "Google LLC",
			wantOrg:     "Google Public DNS",
			wantThreats: []string{"vpn", "tor", "hosting"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := jsonServer(t, tt.body, func(r *http.Request) {
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				assert.Equal(t, "/8.8.8.8/json", r.URL.Path)
			})

			client := NewIPInfoClient(IPInfoConfig{BaseURL: server.URL, Token: "secret"})
			record, err := client.Fetch(context.Background(), ipKey("8.8.8.8"))
			require.NoError(t, err)

			assert.Equal(t, "US", *record.CountryCode)
			assert.Nil(t, record.Country)
			require.NotNil(t, record.Latitude)
			assert.Equal(t, tt.wantASN, *record.ASN)
			assert.Equal(t, tt.wantISP, *record.ISP)
			assert.Equal(t, tt.wantOrg, *record.Org)

			var got []string
			for _, th := range record.Threats {
				got = append(got, th.Type)
			}
			assert.Equal(t, tt.wantThreats, got)
		})
	}
}

func TestIPInfoBogon(t *testing.T) {
	server := jsonServer(t, `{"ip":"10.0.0.1","bogon":true}`, nil)

	_, err := NewIPInfoClient(IPInfoConfig{BaseURL: server.URL, Token: "secret"}).Fetch(context.Background(), ipKey("10.0.0.1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogon")
}

func TestParseLoc(t *testing.T) {
	lat, lon, ok := parseLoc("48.8534,2.3488")
	require.True(t, ok)
	assert.InDelta(t, 48.8534, lat, 1e-9)
	assert.InDelta(t, 2.3488, lon, 1e-9)

	for _, bad := range []string{"", "48.8", "a,b", "1,b"} {
		_, _, ok := parseLoc(bad)
		assert.False(t, ok, bad)
	}
}

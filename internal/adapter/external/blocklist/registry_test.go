package blocklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistryYAML = `
categories:
  botnet: [feodo]
  c2: [feodo, drop]
  spam: [drop]
feeds:
  - name: feodo
    display_name: Feodo Tracker
    url: https://feeds.example/feodo.txt
    confidence: 95
    format: ip_list
    enabled: true
  - name: drop
    display_name: Spamhaus DROP
    url: https://feeds.example/drop.txt
    confidence: 95
    format: spamhaus
    enabled: true
  - name: old
    url: https://feeds.example/old.txt
    confidence: 40
    format: netset
    enabled: false
`

func TestParseRegistry(t *testing.T) {
	reg, err := ParseRegistry([]byte(testRegistryYAML))
	require.NoError(t, err)

	assert.Len(t, reg.Feeds, 3)
	assert.Len(t, reg.EnabledFeeds(), 2)
	assert.Equal(t, []string{"botnet", "c2", "spam"}, reg.CategoryNames())
	assert.Equal(t, []string{"botnet", "c2"}, reg.CategoriesOf("feodo"))
	assert.Equal(t, []string{}, reg.CategoriesOf("old"))

	feed, ok := reg.Feed("drop")
	require.True(t, ok)
	assert.Equal(t, FormatSpamhaus, feed.Format)

	_, ok = reg.Feed("missing")
	assert.False(t, ok)
}

func TestRegistryValidate(t *testing.T) {
	valid := func() *Registry {
		return &Registry{
			Categories: map[string][]string{"botnet": {"a"}},
			Feeds: []FeedSource{
				{Name: "a", URL: "https://x/a", Confidence: 90, Format: FormatIPList, Enabled: true},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *Registry)
		wantErr string
	}{
		{"valid", func(*Registry) {}, ""},
		{"no feeds", func(r *Registry) { r.Feeds = nil }, "no feeds"},
		{"empty name", func(r *Registry) { r.Feeds[0].Name = "" }, "without name"},
		{"duplicate", func(r *Registry) { r.Feeds = append(r.Feeds, r.Feeds[0]) }, "duplicate"},
		{"no url", func(r *Registry) { r.Feeds[0].URL = "" }, "no url"},
		{"bad format", func(r *Registry) { r.Feeds[0].Format = "csv" }, "unknown format"},
		{"confidence", func(r *Registry) { r.Feeds[0].Confidence = 101 }, "out of range"},
		{"unknown member", func(r *Registry) { r.Categories["c2"] = []string{"ghost"} }, "unknown feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid()
			tt.mutate(reg)
			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultRegistryIsValid(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.Validate())
	assert.NotEmpty(t, reg.EnabledFeeds())
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testRegistryYAML), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Feeds, 3)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseRegistry([]byte("feeds: [not: valid: yaml"))
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeFlagsOptions(t *testing.T) {
	tests := []struct {
		name  string
		flags analyzeFlags
		want  string
		force bool
	}{
		{"no tier flags selects all", analyzeFlags{}, "bdt", false},
		{"basic only", analyzeFlags{basic: true}, "b--", false},
		{"detailed and threat intel", analyzeFlags{detailed: true, threatIntel: true}, "-dt", false},
		{"force keeps tiers", analyzeFlags{force: true}, "bdt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.flags.options()
			assert.Equal(t, tt.want, opts.TierMask())
			assert.Equal(t, tt.force, opts.ForceRefresh)
		})
	}
}

func TestAnalyzeRejectsInvalidKey(t *testing.T) {
	t.Setenv("BLOCKLIST_ENABLED", "false")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"analyze", "not a key"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key format")
}

func TestProvidersCommand(t *testing.T) {
	t.Setenv("BLOCKLIST_ENABLED", "false")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"providers"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "ip-api")
	assert.Contains(t, out.String(), "urlhaus")
	assert.NotContains(t, out.String(), "blocklists")
}

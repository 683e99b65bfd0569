package lookup

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

func TestBuildEnvelope(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	a := &entity.ProviderRecord{
		Provider: "a",
		Country:  entity.OptString("France"),
		Threats:  []entity.Threat{{Type: "proxy", Severity: "medium"}},
	}
	b := &entity.ProviderRecord{
		Provider: "b",
		Country:  entity.OptString("France"),
		Threats:  []entity.Threat{{Type: "proxy", Severity: "medium"}},
		Services: []entity.Service{{Port: 22, Transport: "tcp"}},
	}
	settled := []Settled{
		{Provider: "a", Record: a},
		{Provider: "c", Err: entity.NewAdapterError("c", errors.New("down"))},
		{Provider: "b", Record: b},
	}

	env := BuildEnvelope(testKey, settled, now)

	assert.NotEmpty(t, env.ID)
	assert.Equal(t, testKey.Value, env.Key)
	assert.Equal(t, entity.KindIP, env.Kind)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
	assert.True(t, env.Timestamp.Equal(now))

	assert.Len(t, env.ProviderRecords, 2)
	assert.NotContains(t, env.ProviderRecords, "c")
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "c", env.Errors[0].Provider)
	assert.Equal(t, entity.AdapterFetchFailed, env.Errors[0].Kind)
	assert.Equal(t, "down", env.Errors[0].Message)

	// Flattened in provider order, duplicates kept
	require.Len(t, env.Threats, 2)
	assert.Equal(t, "a", env.Threats[0].Provider)
	assert.Equal(t, "b", env.Threats[1].Provider)
	require.Len(t, env.Services, 1)
	assert.Equal(t, "b", env.Services[0].Provider)

	assert.Equal(t, "France", *env.Aggregated.Location.Country)
	assert.InDelta(t, 0.5, env.Confidence.Overall, 1e-9)
}

func TestBuildEnvelopeAllFailed(t *testing.T) {
	settled := []Settled{
		{Provider: "a", Err: entity.NewAdapterError("a", errors.New("x"))},
		{Provider: "b", Err: entity.NewAdapterError("b", errors.New("y"))},
	}

	env := BuildEnvelope(testKey, settled, time.Now())

	assert.Empty(t, env.ProviderRecords)
	assert.NotNil(t, env.Threats)
	assert.NotNil(t, env.Services)
	assert.Len(t, env.Errors, 2)
	assert.Zero(t, env.Confidence.Overall)
	assert.Nil(t, env.Aggregated.Location.Country)
}

func TestBuildEnvelopeUniqueIDs(t *testing.T) {
	first := BuildEnvelope(testKey, nil, time.Now())
	second := BuildEnvelope(testKey, nil, time.Now())
	assert.NotEqual(t, first.ID, second.ID)
}

package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

func TestAggregateMajority(t *testing.T) {
	records := []*entity.ProviderRecord{
		geoRecord("France", "Paris", 48.0, 2.0),
		geoRecord("France", "Paris", 49.0, 3.0),
		geoRecord("Germany", "Berlin", 52.0, 13.0),
	}

	agg := Aggregate(records)

	require.NotNil(t, agg.Location.Country)
	assert.Equal(t, "France", *agg.Location.Country)
	assert.Equal(t, "Paris", *agg.Location.City)
	assert.InDelta(t, 49.6667, *agg.Location.Latitude, 0.001)
	assert.InDelta(t, 6.0, *agg.Location.Longitude, 0.001)
}

func TestAggregateTieGoesToFirstSeen(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"two way tie", []string{"A", "B"}, "A"},
		{"reversed", []string{"B", "A"}, "B"},
		{"late majority", []string{"A", "B", "B"}, "B"},
		{"tie after interleave", []string{"B", "A", "A", "B"}, "B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []*entity.ProviderRecord
			for _, v := range tt.values {
				records = append(records, &entity.ProviderRecord{ASN: entity.OptString(v)})
			}

			agg := Aggregate(records)
			require.NotNil(t, agg.Network.ASN)
			assert.Equal(t, tt.want, *agg.Network.ASN)
		})
	}
}

func TestAggregateSkipsMissingValues(t *testing.T) {
	records := []*entity.ProviderRecord{
		{City: entity.OptString("Lyon")},
		{Latitude: entity.OptFloat(45.0)},
		{},
	}

	agg := Aggregate(records)

	assert.Equal(t, "Lyon", *agg.Location.City)
	assert.Equal(t, 45.0, *agg.Location.Latitude)
	assert.Nil(t, agg.Location.Longitude)
	assert.Nil(t, agg.Location.Country)
	assert.Nil(t, agg.Network.ISP)
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	assert.Equal(t, entity.Aggregated{}, agg)
}

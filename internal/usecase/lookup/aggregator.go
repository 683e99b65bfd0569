package lookup

import (
	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

// Aggregate merges successful records into one consensus view.
// Categorical fields take the most frequent value, ties going to the value seen
// first in record order. Coordinates are averaged. Fields no provider supplied stay nil.
func Aggregate(records []*entity.ProviderRecord) entity.Aggregated {
	pick := func(field func(*entity.ProviderRecord) *string) *string {
		var values []string
		for _, r := range records {
			if v := field(r); v != nil && *v != "" {
				values = append(values, *v)
			}
		}
		return majority(values)
	}

	mean := func(field func(*entity.ProviderRecord) *float64) *float64 {
		var sum float64
		var n int
		for _, r := range records {
			if v := field(r); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return entity.OptFloat(sum / float64(n))
	}

	return entity.Aggregated{
		Location: entity.Location{
			Country:     pick(func(r *entity.ProviderRecord) *string { return r.Country }),
			CountryCode: pick(func(r *entity.ProviderRecord) *string { return r.CountryCode }),
			Region:      pick(func(r *entity.ProviderRecord) *string { return r.Region }),
			City:        pick(func(r *entity.ProviderRecord) *string { return r.City }),
			Latitude:    mean(func(r *entity.ProviderRecord) *float64 { return r.Latitude }),
			Longitude:   mean(func(r *entity.ProviderRecord) *float64 { return r.Longitude }),
			Timezone:    pick(func(r *entity.ProviderRecord) *string { return r.Timezone }),
		},
		Network: entity.Network{
			ISP: pick(func(r *entity.ProviderRecord) *string { return r.ISP }),
			Org: pick(func(r *entity.ProviderRecord) *string { return r.Org }),
			ASN: pick(func(r *entity.ProviderRecord) *string { return r.ASN }),
		},
	}
}

// majority returns the most frequent value; the earliest wins a tie
func majority(values []string) *string {
	if len(values) == 0 {
		return nil
	}

	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	best := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}

	return &best
}

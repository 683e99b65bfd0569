package lookup

import (
	"math"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

const (
	// perProviderConfidence is what each successful provider adds to the overall score
	perProviderConfidence = 0.25
	// securityDiscount reflects that not every provider supplies threat data
	securityDiscount = 0.8
)

// Score derives confidence from the number of successful providers.
// It rewards provider count, not agreement between providers.
func Score(records []*entity.ProviderRecord) entity.Confidence {
	overall := math.Min(1.0, perProviderConfidence*float64(len(records)))

	return entity.Confidence{
		Overall:  overall,
		Location: overall,
		Network:  overall,
		Security: overall * securityDiscount,
	}
}

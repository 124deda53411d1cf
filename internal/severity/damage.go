package severity

import "github.com/your-org/td/internal/models"

// Severity contributions per damage class, on a 0-1 scale. Fixed by the
// damage taxonomy, not learned.
const (
	WeightBlistering  = 0.70
	WeightMicroCracks = 0.50
	WeightGrain       = 0.40
	WeightCuts        = 0.80
	WeightFlatSpots   = 0.90
	WeightChunking    = 1.00

	// WeightUnknown is applied to labels outside the taxonomy.
	WeightUnknown = 0.50
)

var damageTypeWeights = map[models.DamageType]float64{
	models.DamageBlistering:  WeightBlistering,
	models.DamageMicroCracks: WeightMicroCracks,
	models.DamageGrain:       WeightGrain,
	models.DamageCuts:        WeightCuts,
	models.DamageFlatSpots:   WeightFlatSpots,
	models.DamageChunking:    WeightChunking,
}

// DamageTypeSeverity reduces a set of damage labels to a single 0-1
// contribution by taking the worst (maximum) weight, never an average:
// one chunking reading must not be diluted by co-occurring minor classes.
// An empty set contributes 0.0.
func DamageTypeSeverity(types []models.DamageType) float64 {
	severity := 0.0
	for _, t := range types {
		w, ok := damageTypeWeights[t]
		if !ok {
			w = WeightUnknown
		}
		if w > severity {
			severity = w
		}
	}
	return severity
}

// Package severity reduces per-frame tyre damage metrics to a single 0-100
// severity score, an angular damage timeline and a recommended action.
package severity

import (
	"github.com/your-org/td/internal/models"
)

// Weights of the three severity components. They must sum to 1.0.
const (
	CrackDensityWeight = 0.40
	DepthWeight        = 0.30
	DamageTypeWeight   = 0.30
)

// Default calibration ceilings for component normalization.
const (
	DefaultMaxCrackDensity = 10.0
	DefaultMaxDepthMM      = 5.0
)

// NormalizeCrackDensity maps a crack density percentage onto [0,1], saturating
// at the ceiling. Beyond the calibration ceiling all extreme damage is equally
// severe, so values above it clamp to 1.0 instead of erroring.
func NormalizeCrackDensity(value, maxDensity float64) float64 {
	return satNorm(value, maxDensity)
}

// NormalizeDepth maps a depth estimate in millimetres onto [0,1], saturating
// at the ceiling.
func NormalizeDepth(value, maxDepth float64) float64 {
	return satNorm(value, maxDepth)
}

func satNorm(value, ceiling float64) float64 {
	v := value / ceiling
	if v > 1.0 {
		return 1.0
	}
	return v
}

// ComponentScores is the per-component severity breakdown, each on a 0-100
// scale.
type ComponentScores struct {
	CrackDensityScore float64 `json:"crack_density_score"`
	DepthScore        float64 `json:"depth_score"`
	DamageTypeScore   float64 `json:"damage_type_score"`
}

// Scorer computes severity scores from raw damage metrics. The zero value
// uses the default calibration ceilings; the two ceilings are independent
// knobs (density is a percentage, depth is millimetres).
type Scorer struct {
	MaxCrackDensity float64
	MaxDepthMM      float64
}

func (s Scorer) ceilings() (maxDensity, maxDepth float64) {
	maxDensity = s.MaxCrackDensity
	if maxDensity == 0 {
		maxDensity = DefaultMaxCrackDensity
	}
	maxDepth = s.MaxDepthMM
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepthMM
	}
	return maxDensity, maxDepth
}

// Components normalizes the three raw inputs and scales each to 0-100.
func (s Scorer) Components(crackDensity, depthMM float64, damageTypes []models.DamageType) ComponentScores {
	maxDensity, maxDepth := s.ceilings()
	return ComponentScores{
		CrackDensityScore: NormalizeCrackDensity(crackDensity, maxDensity) * 100,
		DepthScore:        NormalizeDepth(depthMM, maxDepth) * 100,
		DamageTypeScore:   DamageTypeSeverity(damageTypes) * 100,
	}
}

// Score combines the three components into one 0-100 severity value.
// The same function serves per-frame scoring (timeline points) and the
// aggregate headline score; the two granularities are not expected to agree.
func (s Scorer) Score(crackDensity, depthMM float64, damageTypes []models.DamageType) float64 {
	return combine(s.Components(crackDensity, depthMM, damageTypes))
}

func combine(c ComponentScores) float64 {
	return CrackDensityWeight*c.CrackDensityScore +
		DepthWeight*c.DepthScore +
		DamageTypeWeight*c.DamageTypeScore
}

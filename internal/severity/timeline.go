package severity

import "github.com/your-org/td/internal/models"

// TimelinePoint is a severity reading at an angular position around the
// tyre, assuming the frame sequence covers one full rotation uniformly.
type TimelinePoint struct {
	RotationAngle     float64 `json:"rotation_angle"`
	Severity          float64 `json:"severity"`
	CrackDensityScore float64 `json:"crack_density_score"`
	DepthScore        float64 `json:"depth_score"`
	DamageTypeScore   float64 `json:"damage_type_score"`
}

// BuildTimeline walks the three per-frame metric sequences in parallel and
// scores each frame. The sequences are joined positionally (the i-th element
// of each belongs to the i-th analyzed frame) and truncated to the shortest
// length, so the timeline only covers frames all three analyses agree exist.
// Zero usable frames yields an empty timeline, not an error.
func (s Scorer) BuildTimeline(
	crack []models.CrackFrameMetrics,
	depth []models.DepthFrameMetrics,
	damage []models.DamageFrameMetrics,
) []TimelinePoint {
	n := len(crack)
	if len(depth) < n {
		n = len(depth)
	}
	if len(damage) < n {
		n = len(damage)
	}

	timeline := make([]TimelinePoint, 0, n)
	for i := 0; i < n; i++ {
		comps := s.Components(crack[i].CrackDensity, depth[i].MaxDepthMM, damage[i].DamageTypes)
		timeline = append(timeline, TimelinePoint{
			RotationAngle:     float64(i) / float64(n) * 360.0,
			Severity:          combine(comps),
			CrackDensityScore: comps.CrackDensityScore,
			DepthScore:        comps.DepthScore,
			DamageTypeScore:   comps.DamageTypeScore,
		})
	}
	return timeline
}

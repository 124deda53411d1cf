package severity

import "github.com/your-org/td/internal/models"

// TimelineStatistics summarizes the per-frame severities of a timeline.
type TimelineStatistics struct {
	MaxSeverity     float64 `json:"max_severity"`
	MinSeverity     float64 `json:"min_severity"`
	AverageSeverity float64 `json:"average_severity"`
}

// InputMetrics echoes the raw aggregate inputs for traceability.
type InputMetrics struct {
	AverageCrackDensity float64             `json:"average_crack_density"`
	MaxDepthMM          float64             `json:"max_depth_mm"`
	DamageTypes         []models.DamageType `json:"damage_types"`
}

// Report is the terminal severity analysis artifact, immutable once built.
// The overall score comes from aggregate inputs (average density, single max
// depth, full damage-type set) while timeline points come from per-frame
// inputs; the two granularities serve different purposes and are not
// required to agree.
type Report struct {
	OverallSeverityScore float64            `json:"overall_severity_score"`
	RecommendedAction    Action             `json:"recommended_action"`
	ComponentScores      ComponentScores    `json:"component_scores"`
	SeverityTimeline     []TimelinePoint    `json:"severity_timeline"`
	TimelineStatistics   TimelineStatistics `json:"timeline_statistics"`
	InputMetrics         InputMetrics       `json:"input_metrics"`
}

// timelineStatistics computes max/min/mean severity over the timeline. An
// empty timeline falls back to the overall score for all three values, so
// missing timeline data never reads as zero damage.
func timelineStatistics(timeline []TimelinePoint, overall float64) TimelineStatistics {
	if len(timeline) == 0 {
		return TimelineStatistics{
			MaxSeverity:     overall,
			MinSeverity:     overall,
			AverageSeverity: overall,
		}
	}

	stats := TimelineStatistics{
		MaxSeverity: timeline[0].Severity,
		MinSeverity: timeline[0].Severity,
	}
	sum := 0.0
	for _, p := range timeline {
		if p.Severity > stats.MaxSeverity {
			stats.MaxSeverity = p.Severity
		}
		if p.Severity < stats.MinSeverity {
			stats.MinSeverity = p.Severity
		}
		sum += p.Severity
	}
	stats.AverageSeverity = sum / float64(len(timeline))
	return stats
}

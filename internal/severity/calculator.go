package severity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/your-org/td/internal/models"
)

// ReportFile is the persisted report artifact name.
const ReportFile = "severity_analysis_results.json"

// Calculator assembles severity reports from the three stage aggregates and
// persists them. It holds no mutable state, so one instance may serve
// concurrent invocations with disjoint output directories.
type Calculator struct {
	Scorer    Scorer
	OutputDir string
}

func NewCalculator(outputDir string) *Calculator {
	return &Calculator{OutputDir: outputDir}
}

// CalculateOverallSeverity builds the severity report for one inspection:
// aggregate component scores and headline score, per-frame timeline, timeline
// statistics, recommended action. The report is written to
// <OutputDir>/severity_analysis_results.json before being returned.
// Zero-valued aggregate fields pass through as neutral inputs; the only
// failure mode is report persistence.
func (c *Calculator) CalculateOverallSeverity(
	crack models.CrackAnalysis,
	depth models.DepthAnalysis,
	damage models.DamageAnalysis,
) (*Report, error) {
	comps := c.Scorer.Components(
		crack.AverageCrackDensity,
		depth.MaxDepthEstimateMM,
		damage.DetectedDamageTypes,
	)
	overall := combine(comps)

	timeline := c.Scorer.BuildTimeline(crack.FrameResults, depth.FrameResults, damage.FrameResults)

	damageTypes := damage.DetectedDamageTypes
	if damageTypes == nil {
		damageTypes = []models.DamageType{}
	}

	report := &Report{
		OverallSeverityScore: overall,
		RecommendedAction:    RecommendAction(overall),
		ComponentScores:      comps,
		SeverityTimeline:     timeline,
		TimelineStatistics:   timelineStatistics(timeline, overall),
		InputMetrics: InputMetrics{
			AverageCrackDensity: crack.AverageCrackDensity,
			MaxDepthMM:          depth.MaxDepthEstimateMM,
			DamageTypes:         damageTypes,
		},
	}

	if err := c.persist(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Calculator) persist(report *Report) error {
	if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(c.OutputDir, ReportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

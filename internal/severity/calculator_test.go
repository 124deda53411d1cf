package severity

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/td/internal/models"
)

func crackAnalysis(n int) models.CrackAnalysis {
	frames := crackFrames(n)
	var total int
	var density float64
	for _, f := range frames {
		total += f.CrackCount
		density += f.CrackDensity
	}
	a := models.CrackAnalysis{
		TotalFramesAnalyzed: n,
		TotalCrackCount:     total,
		FrameResults:        frames,
	}
	if n > 0 {
		a.AverageCrackCountPerFrame = float64(total) / float64(n)
		a.AverageCrackDensity = density / float64(n)
	}
	return a
}

func depthAnalysis(n int) models.DepthAnalysis {
	frames := depthFrames(n)
	var max, sum float64
	for _, f := range frames {
		if f.MaxDepthMM > max {
			max = f.MaxDepthMM
		}
		sum += f.MaxDepthMM
	}
	a := models.DepthAnalysis{
		TotalFramesAnalyzed: n,
		MaxDepthEstimateMM:  max,
		FrameResults:        frames,
	}
	if n > 0 {
		a.AverageMaxDepthMM = sum / float64(n)
	}
	return a
}

func damageAnalysis(n int, detected ...models.DamageType) models.DamageAnalysis {
	return models.DamageAnalysis{
		TotalFramesAnalyzed: n,
		DetectedDamageTypes: detected,
		FrameResults:        damageFrames(n),
	}
}

func TestCalculateOverallSeverity(t *testing.T) {
	calc := NewCalculator(t.TempDir())

	report, err := calc.CalculateOverallSeverity(
		crackAnalysis(10),
		depthAnalysis(10),
		damageAnalysis(10, models.DamageMicroCracks, models.DamageGrain, models.DamageCuts),
	)
	require.NoError(t, err)

	// Aggregate inputs: density 3.35, depth 4.3, worst type cuts.
	assert.InDelta(t, 33.5, report.ComponentScores.CrackDensityScore, 1e-9)
	assert.InDelta(t, 86.0, report.ComponentScores.DepthScore, 1e-9)
	assert.InDelta(t, 80.0, report.ComponentScores.DamageTypeScore, 1e-9)
	assert.InDelta(t, 63.2, report.OverallSeverityScore, 1e-9)
	assert.Equal(t, ActionMonitorNextStint, report.RecommendedAction)

	require.Len(t, report.SeverityTimeline, 10)
	assert.InDelta(t, 68.6, report.TimelineStatistics.MaxSeverity, 1e-9)
	assert.InDelta(t, 38.0, report.TimelineStatistics.MinSeverity, 1e-9)
	assert.InDelta(t, 53.3, report.TimelineStatistics.AverageSeverity, 1e-9)

	assert.InDelta(t, 3.35, report.InputMetrics.AverageCrackDensity, 1e-9)
	assert.InDelta(t, 4.3, report.InputMetrics.MaxDepthMM, 1e-9)
	assert.Len(t, report.InputMetrics.DamageTypes, 3)
}

func TestOverallScoreIsNotTimelineAverage(t *testing.T) {
	calc := NewCalculator(t.TempDir())

	report, err := calc.CalculateOverallSeverity(
		crackAnalysis(10),
		depthAnalysis(10),
		damageAnalysis(10, models.DamageMicroCracks, models.DamageGrain, models.DamageCuts),
	)
	require.NoError(t, err)

	// The overall score reduces aggregates (mean density, max depth, union of
	// types); averaging per-frame scores answers a different question.
	diff := math.Abs(report.OverallSeverityScore - report.TimelineStatistics.AverageSeverity)
	assert.Greater(t, diff, 1e-6)
}

func TestCalculateOverallSeverityNoFrames(t *testing.T) {
	calc := NewCalculator(t.TempDir())

	report, err := calc.CalculateOverallSeverity(
		models.CrackAnalysis{},
		models.DepthAnalysis{},
		models.DamageAnalysis{},
	)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.OverallSeverityScore)
	assert.Equal(t, ActionSafeQualifyingOnly, report.RecommendedAction)
	require.NotNil(t, report.SeverityTimeline)
	assert.Empty(t, report.SeverityTimeline)

	// Without a timeline the statistics mirror the overall score.
	assert.Equal(t, report.OverallSeverityScore, report.TimelineStatistics.MaxSeverity)
	assert.Equal(t, report.OverallSeverityScore, report.TimelineStatistics.MinSeverity)
	assert.Equal(t, report.OverallSeverityScore, report.TimelineStatistics.AverageSeverity)

	require.NotNil(t, report.InputMetrics.DamageTypes)
	assert.Empty(t, report.InputMetrics.DamageTypes)
}

func TestEmptyTimelineStatisticsMatchOverall(t *testing.T) {
	calc := NewCalculator(t.TempDir())

	// Aggregates are present but per-frame results are not, e.g. when a stage
	// only persisted summary metrics.
	crack := models.CrackAnalysis{TotalFramesAnalyzed: 4, AverageCrackDensity: 6.0}
	depth := models.DepthAnalysis{TotalFramesAnalyzed: 4, MaxDepthEstimateMM: 3.0}
	damage := models.DamageAnalysis{
		TotalFramesAnalyzed: 4,
		DetectedDamageTypes: []models.DamageType{models.DamageFlatSpots},
	}

	report, err := calc.CalculateOverallSeverity(crack, depth, damage)
	require.NoError(t, err)

	assert.Greater(t, report.OverallSeverityScore, 0.0)
	assert.Empty(t, report.SeverityTimeline)
	assert.Equal(t, report.OverallSeverityScore, report.TimelineStatistics.AverageSeverity)
	assert.Equal(t, report.OverallSeverityScore, report.TimelineStatistics.MaxSeverity)
	assert.Equal(t, report.OverallSeverityScore, report.TimelineStatistics.MinSeverity)
}

func TestReportPersistedToDisk(t *testing.T) {
	dir := t.TempDir()
	calc := NewCalculator(dir)

	_, err := calc.CalculateOverallSeverity(
		crackAnalysis(10),
		depthAnalysis(10),
		damageAnalysis(10, models.DamageMicroCracks, models.DamageCuts),
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{
		"overall_severity_score",
		"recommended_action",
		"component_scores",
		"severity_timeline",
		"timeline_statistics",
		"input_metrics",
	} {
		assert.Contains(t, doc, key)
	}

	var comps map[string]float64
	require.NoError(t, json.Unmarshal(doc["component_scores"], &comps))
	assert.Contains(t, comps, "crack_density_score")
	assert.Contains(t, comps, "depth_score")
	assert.Contains(t, comps, "damage_type_score")

	var timeline []map[string]float64
	require.NoError(t, json.Unmarshal(doc["severity_timeline"], &timeline))
	require.Len(t, timeline, 10)
	assert.Contains(t, timeline[0], "rotation_angle")
	assert.Contains(t, timeline[0], "severity")
}

func TestReportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	calc := NewCalculator(dir)

	want, err := calc.CalculateOverallSeverity(
		crackAnalysis(8),
		depthAnalysis(8),
		damageAnalysis(8, models.DamageGrain),
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)

	var got Report
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, want.OverallSeverityScore, got.OverallSeverityScore)
	assert.Equal(t, want.RecommendedAction, got.RecommendedAction)
	assert.Equal(t, want.ComponentScores, got.ComponentScores)
	assert.Len(t, got.SeverityTimeline, len(want.SeverityTimeline))
}

func TestEndToEndSeverityBands(t *testing.T) {
	cases := []struct {
		name    string
		density float64
		depth   float64
		types   []models.DamageType
		minWant float64
		maxWant float64
	}{
		{
			name:    "light wear",
			density: 1.0, depth: 0.8,
			types:   []models.DamageType{models.DamageGrain},
			minWant: 0.0, maxWant: 30.0,
		},
		{
			name:    "moderate wear",
			density: 4.0, depth: 2.5,
			types:   []models.DamageType{models.DamageMicroCracks, models.DamageGrain},
			minWant: 40.0, maxWant: 70.0,
		},
		{
			name:    "critical damage",
			density: 8.0, depth: 4.5,
			types:   []models.DamageType{models.DamageCuts, models.DamageChunking, models.DamageFlatSpots},
			minWant: 70.0, maxWant: 100.0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calc := NewCalculator(t.TempDir())

			crack := models.CrackAnalysis{TotalFramesAnalyzed: 1, AverageCrackDensity: tc.density}
			depth := models.DepthAnalysis{TotalFramesAnalyzed: 1, MaxDepthEstimateMM: tc.depth}
			damage := models.DamageAnalysis{TotalFramesAnalyzed: 1, DetectedDamageTypes: tc.types}

			report, err := calc.CalculateOverallSeverity(crack, depth, damage)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, report.OverallSeverityScore, tc.minWant)
			assert.LessOrEqual(t, report.OverallSeverityScore, tc.maxWant)
			assert.Equal(t, RecommendAction(report.OverallSeverityScore), report.RecommendedAction)
		})
	}
}

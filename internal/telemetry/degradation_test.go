package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/td/pkg/dto"
)

func stint(times ...float64) dto.StintRequest {
	req := dto.StintRequest{Compound: "MEDIUM"}
	for i, t := range times {
		req.Laps = append(req.Laps, dto.LapTelemetry{
			LapNumber: i + 1,
			LapTime:   t,
			TyreLife:  float64(i + 1),
		})
	}
	return req
}

func TestAnalyzeFuelCorrection(t *testing.T) {
	c := NewDegradationCalculator()

	resp, err := c.Analyze(stint(90.0, 90.0, 90.0))
	require.NoError(t, err)
	require.Len(t, resp.Laps, 3)

	assert.InDelta(t, 1*FuelEffectPerLap, resp.Laps[0].FuelCorrection, 1e-9)
	assert.InDelta(t, 2*FuelEffectPerLap, resp.Laps[1].FuelCorrection, 1e-9)
	assert.InDelta(t, 3*FuelEffectPerLap, resp.Laps[2].FuelCorrection, 1e-9)
	assert.InDelta(t, 3*FuelEffectPerLap, resp.TotalFuelEffect, 1e-9)
}

func TestAnalyzeBaselineIsFastestCorrectedLap(t *testing.T) {
	c := NewDegradationCalculator()

	// Constant raw times: fuel correction makes lap 1 the corrected baseline
	// and later laps accrue 0.035s per lap of tyre life.
	resp, err := c.Analyze(stint(90.0, 90.0, 90.0))
	require.NoError(t, err)

	assert.Equal(t, 0.0, resp.Laps[0].EnhancedDegradation)
	assert.InDelta(t, 0.035, resp.Laps[1].EnhancedDegradation, 1e-9)
	assert.InDelta(t, 0.070, resp.Laps[2].EnhancedDegradation, 1e-9)

	// Raw times are flat, so simple degradation is zero everywhere.
	for _, lap := range resp.Laps {
		assert.Equal(t, 0.0, lap.SimpleDegradation)
	}
}

func TestAnalyzeDegradationFlooredAtZero(t *testing.T) {
	c := NewDegradationCalculator()

	// Lap 2 is fastest both raw and corrected; lap 1 must not go negative.
	resp, err := c.Analyze(stint(91.0, 89.0, 92.0))
	require.NoError(t, err)
	for _, lap := range resp.Laps {
		assert.GreaterOrEqual(t, lap.EnhancedDegradation, 0.0)
		assert.GreaterOrEqual(t, lap.SimpleDegradation, 0.0)
	}
	assert.Equal(t, 0.0, resp.Laps[1].EnhancedDegradation)
}

func TestAnalyzeOptimalPitLap(t *testing.T) {
	c := NewDegradationCalculator()

	// Degradation crosses 2.0s on lap 4.
	resp, err := c.Analyze(stint(90.0, 90.5, 91.5, 92.5, 93.5))
	require.NoError(t, err)
	assert.Equal(t, 4, resp.OptimalPitLap)
}

func TestAnalyzeOptimalPitLapBeyondStint(t *testing.T) {
	c := NewDegradationCalculator()

	// Nothing close to the threshold: pit window is past the last lap.
	resp, err := c.Analyze(stint(90.0, 90.1, 90.2))
	require.NoError(t, err)
	assert.Equal(t, 4, resp.OptimalPitLap)
}

func TestAnalyzeSkipsInvalidLaps(t *testing.T) {
	c := NewDegradationCalculator()

	req := stint(90.0, 0, 91.0) // lap 2 has no time (in-lap / red flag)
	resp, err := c.Analyze(req)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.StintLength)
	assert.Equal(t, 1, resp.Laps[0].LapNumber)
	assert.Equal(t, 3, resp.Laps[1].LapNumber)
}

func TestAnalyzeErrors(t *testing.T) {
	c := NewDegradationCalculator()

	_, err := c.Analyze(dto.StintRequest{Compound: "SOFT"})
	assert.Error(t, err)

	_, err = c.Analyze(stint(0, 0))
	assert.Error(t, err)
}

func TestPredictorFallbackSmoothing(t *testing.T) {
	p, err := NewPredictor("")
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.Predict(stint(90.0, 90.0, 90.0, 90.0))
	require.NoError(t, err)
	assert.Equal(t, "fallback-moving-average", resp.ModelVersion)
	require.Len(t, resp.Predictions, 4)

	// Moving average of 0, 0.035, 0.070, 0.105 with window 3.
	assert.InDelta(t, 0.0, resp.Predictions[0], 1e-9)
	assert.InDelta(t, 0.018, resp.Predictions[1], 1e-3)
	assert.InDelta(t, 0.035, resp.Predictions[2], 1e-3)
	assert.InDelta(t, 0.070, resp.Predictions[3], 1e-3)

	for _, v := range resp.Predictions {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestLapFeaturesCompoundEncoding(t *testing.T) {
	req := dto.StintRequest{Compound: "HARD", StintNumber: 2}
	lap := dto.LapTelemetry{TyreLife: 10}

	features := lapFeatures(req, lap)
	require.Len(t, features, featureCount)
	assert.Equal(t, float32(10), features[0])
	assert.Equal(t, float32(2), features[1]) // HARD
	assert.Equal(t, float32(2), features[2])
	assert.InDelta(t, float32(10*FuelEffectPerLap), features[3], 1e-6)

	// Unknown compounds fall back to the MEDIUM encoding.
	req.Compound = "PROTOTYPE"
	assert.Equal(t, float32(1), lapFeatures(req, lap)[1])
}

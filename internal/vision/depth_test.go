package vision

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/models"
)

func depthConfig() config.DepthConfig {
	return config.DepthConfig{
		MMPerUnit:    0.05,
		MaxDisparity: 16,
		BlockSize:    15,
	}
}

func TestEstimateFrameIdenticalFramesIsZero(t *testing.T) {
	e := NewDepthEstimator(depthConfig())

	frame := grayImage(64, 64, 150)
	m := e.EstimateFrame(0, frame, frame)
	assert.Equal(t, 0.0, m.MaxDepthMM)
	assert.Equal(t, 0.0, m.MeanDepthMM)
}

func TestEstimateFrameDetectsIntrusion(t *testing.T) {
	e := NewDepthEstimator(depthConfig())

	ref := grayImage(64, 64, 150)
	dam := grayImage(64, 64, 150)
	// Dark pit in the damaged frame.
	for y := 20; y < 36; y++ {
		for x := 20; x < 36; x++ {
			dam.SetGray(x, y, color.Gray{Y: 10})
		}
	}

	m := e.EstimateFrame(0, ref, dam)
	assert.Greater(t, m.MaxDepthMM, 0.0)
	assert.Greater(t, m.MeanDepthMM, 0.0)
	assert.Greater(t, m.MaxDepthMM, m.MeanDepthMM)
}

func TestEstimateFrameScalesWithMMPerUnit(t *testing.T) {
	ref := grayImage(64, 64, 150)
	dam := grayImage(64, 64, 30)

	base := NewDepthEstimator(depthConfig()).EstimateFrame(0, ref, dam)

	doubled := depthConfig()
	doubled.MMPerUnit = 0.10
	scaled := NewDepthEstimator(doubled).EstimateFrame(0, ref, dam)

	assert.InDelta(t, base.MaxDepthMM*2, scaled.MaxDepthMM, 1e-9)
}

func TestEstimateFrameMismatchedSizes(t *testing.T) {
	e := NewDepthEstimator(depthConfig())

	ref := grayImage(32, 32, 150)
	dam := grayImage(64, 64, 150)
	m := e.EstimateFrame(0, ref, dam)
	assert.Equal(t, 0.0, m.MaxDepthMM)
}

func TestAggregateDepth(t *testing.T) {
	frames := []models.DepthFrameMetrics{
		{FrameIndex: 0, MaxDepthMM: 1.0},
		{FrameIndex: 1, MaxDepthMM: 3.0},
		{FrameIndex: 2, MaxDepthMM: 2.0},
	}
	agg := AggregateDepth(frames)
	assert.Equal(t, 3, agg.TotalFramesAnalyzed)
	assert.Equal(t, 3.0, agg.MaxDepthEstimateMM)
	assert.Equal(t, 2.0, agg.AverageMaxDepthMM)
}

func TestAggregateDepthEmpty(t *testing.T) {
	agg := AggregateDepth(nil)
	assert.Equal(t, 0.0, agg.MaxDepthEstimateMM)
	assert.NotNil(t, agg.FrameResults)
}

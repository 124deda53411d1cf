package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/models"
)

func crackConfig() config.CrackConfig {
	return config.CrackConfig{
		LowThreshold:  50,
		HighThreshold: 150,
		DiffThreshold: 30,
		MinArea:       20,
	}
}

// syntheticCrackFrame draws a bright tyre surface with a dark crack line.
func syntheticCrackFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	for x := 8; x < 56; x++ {
		for t := 0; t < 3; t++ {
			img.SetGray(x, 30+t, color.Gray{Y: 10})
		}
	}
	return img
}

func TestCrackDetectorFindsCrack(t *testing.T) {
	d := NewCrackDetector(crackConfig())

	out := d.AnalyzeFrame(0, nil, syntheticCrackFrame())
	assert.Greater(t, out.Metrics.CrackCount, 0)
	assert.Greater(t, out.Metrics.CrackDensity, 0.0)
	require.NotNil(t, out.Binary)
	assert.Greater(t, CountNonZero(out.Binary), 0)
}

// Canny renders a crack as two thin parallel walls. The morphology chain
// must fuse them into one mask region rather than erode them to nothing.
func TestCrackMorphologyKeepsThinEdges(t *testing.T) {
	edges := grayImage(64, 64, 0)
	for x := 8; x < 56; x++ {
		edges.SetGray(x, 29, color.Gray{Y: 255})
		edges.SetGray(x, 33, color.Gray{Y: 255})
	}

	k := RectKernel(3, 3)
	mask := Open(Close(Dilate(edges, k), k), k)
	assert.Greater(t, CountNonZero(mask), 0)
	assert.NotEmpty(t, ConnectedComponents(mask, 20))
}

func TestCrackDetectorBlankFrame(t *testing.T) {
	d := NewCrackDetector(crackConfig())

	blank := grayImage(64, 64, 180)
	out := d.AnalyzeFrame(0, nil, blank)
	assert.Equal(t, 0, out.Metrics.CrackCount)
	assert.Equal(t, 0.0, out.Metrics.CrackDensity)
}

func TestCrackDetectorReferenceGatesUnchangedEdges(t *testing.T) {
	d := NewCrackDetector(crackConfig())

	// Same tread edge in both frames: the difference gate must cancel it.
	frame := syntheticCrackFrame()
	out := d.AnalyzeFrame(0, frame, frame)
	assert.Equal(t, 0, out.Metrics.CrackCount)
}

func TestAggregateCracks(t *testing.T) {
	d := NewCrackDetector(crackConfig())
	cracked := d.AnalyzeFrame(0, nil, syntheticCrackFrame()).Metrics
	blank := d.AnalyzeFrame(1, nil, grayImage(64, 64, 180)).Metrics

	agg := AggregateCracks([]models.CrackFrameMetrics{cracked, blank})
	assert.Equal(t, 2, agg.TotalFramesAnalyzed)
	assert.Equal(t, cracked.CrackCount, agg.TotalCrackCount)
	assert.InDelta(t, cracked.CrackDensity/2, agg.AverageCrackDensity, 1e-9)
	assert.Len(t, agg.FrameResults, 2)
}

func TestAggregateCracksEmpty(t *testing.T) {
	agg := AggregateCracks(nil)
	assert.Equal(t, 0, agg.TotalFramesAnalyzed)
	assert.Equal(t, 0.0, agg.AverageCrackDensity)
	assert.NotNil(t, agg.FrameResults)
}

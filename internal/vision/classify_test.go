package vision

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/td/internal/models"
)

func TestClassifyRules(t *testing.T) {
	c := NewDamageClassifier(0.2)

	tests := []struct {
		name     string
		features FrameFeatures
		want     []models.DamageType
	}{
		{
			name:     "clean frame",
			features: FrameFeatures{},
			want:     nil,
		},
		{
			name:     "blistering from round components",
			features: FrameFeatures{CircularCount: 3, MeanCircularity: 0.8},
			want:     []models.DamageType{models.DamageBlistering},
		},
		{
			name:     "micro cracks from fine density",
			features: FrameFeatures{FineCrackRatio: 0.03},
			want:     []models.DamageType{models.DamageMicroCracks},
		},
		{
			name:     "grain needs roughness and some fine cracking",
			features: FrameFeatures{Roughness: 0.7, FineCrackRatio: 0.015},
			want:     []models.DamageType{models.DamageGrain},
		},
		{
			name:     "cuts from long straight lines",
			features: FrameFeatures{LineCount: 2, Linearity: 0.6},
			want:     []models.DamageType{models.DamageCuts},
		},
		{
			name:     "flat spot",
			features: FrameFeatures{FlatSpotScore: 0.4},
			want:     []models.DamageType{models.DamageFlatSpots},
		},
		{
			name:     "chunking from one large irregular component",
			features: FrameFeatures{ChunkCount: 1},
			want:     []models.DamageType{models.DamageChunking},
		},
		{
			name: "boundary values do not trigger",
			features: FrameFeatures{
				CircularCount: 2, MeanCircularity: 0.9,
				FineCrackRatio: 0.02,
				Roughness:      0.6,
				LineCount:      1, Linearity: 0.9,
				FlatSpotScore: 0.3,
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.features))
		})
	}
}

func TestExtractFeaturesRoughTexture(t *testing.T) {
	c := NewDamageClassifier(0.2)

	// Checkerboard: maximal gradient texture.
	rough := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y)%2 == 0 {
				rough.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	smooth := grayImage(32, 32, 128)
	empty := grayImage(32, 32, 0)

	fRough := c.ExtractFeatures(rough, empty)
	fSmooth := c.ExtractFeatures(smooth, empty)
	assert.Greater(t, fRough.Roughness, fSmooth.Roughness)
	assert.Equal(t, 0.0, fSmooth.Roughness)
}

func TestExtractFeaturesFineCrackDensity(t *testing.T) {
	c := NewDamageClassifier(0.2)

	// A 20x20 crack region on a 64x64 frame: the 2x2 erosion leaves a
	// 19x19 core, so the density is 361/4096 and micro-cracks fire.
	crackBin := grayImage(64, 64, 0)
	for y := 20; y < 40; y++ {
		for x := 20; x < 40; x++ {
			crackBin.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	f := c.ExtractFeatures(grayImage(64, 64, 128), crackBin)
	assert.InDelta(t, 361.0/4096.0, f.FineCrackRatio, 1e-9)
	assert.Contains(t, c.Classify(f), models.DamageMicroCracks)

	// One-pixel lines erode away entirely and contribute nothing.
	thin := grayImage(64, 64, 0)
	for x := 0; x < 64; x++ {
		thin.SetGray(x, 5, color.Gray{Y: 255})
	}
	fThin := c.ExtractFeatures(grayImage(64, 64, 128), thin)
	assert.Equal(t, 0.0, fThin.FineCrackRatio)
}

func TestExtractFeaturesChunk(t *testing.T) {
	c := NewDamageClassifier(0.2)

	// A large ragged region: area > 500 with a jagged, low-circularity edge.
	crackBin := grayImage(64, 64, 0)
	for y := 5; y < 40; y++ {
		width := 20 + (y%7)*3
		for x := 5; x < 5+width; x++ {
			crackBin.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	f := c.ExtractFeatures(grayImage(64, 64, 128), crackBin)
	assert.GreaterOrEqual(t, f.ChunkCount, 1)
}

func TestFlatSpotScoreUniformImageIsZero(t *testing.T) {
	assert.Equal(t, 0.0, flatSpotScore(grayImage(48, 48, 100)))
}

func TestFlatSpotScoreLocalizedTexture(t *testing.T) {
	img := grayImage(48, 48, 100)
	// Noisy patch confined to one angular sector (right of centre).
	for y := 20; y < 28; y++ {
		for x := 36; x < 46; x++ {
			if (x*7+y*13)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	assert.Greater(t, flatSpotScore(img), 0.0)
}

func TestAggregatePresenceRatio(t *testing.T) {
	c := NewDamageClassifier(0.2)

	frames := make([]models.DamageFrameMetrics, 10)
	for i := range frames {
		frames[i] = models.DamageFrameMetrics{FrameIndex: i, DamageTypes: []models.DamageType{}}
	}
	// grain in 3/10 frames (above 20%), chunking in 1/10 (below).
	for _, i := range []int{1, 4, 7} {
		frames[i].DamageTypes = []models.DamageType{models.DamageGrain}
	}
	frames[5].DamageTypes = []models.DamageType{models.DamageChunking}

	agg := c.Aggregate(frames)
	assert.Equal(t, 10, agg.TotalFramesAnalyzed)
	assert.Equal(t, []models.DamageType{models.DamageGrain}, agg.DetectedDamageTypes)
	assert.Equal(t, 3, agg.DamageTypeFrameCounts[models.DamageGrain])
	assert.Equal(t, 1, agg.DamageTypeFrameCounts[models.DamageChunking])
}

func TestAggregateEmpty(t *testing.T) {
	c := NewDamageClassifier(0.2)
	agg := c.Aggregate(nil)
	assert.Equal(t, 0, agg.TotalFramesAnalyzed)
	assert.Empty(t, agg.DetectedDamageTypes)
	require.NotNil(t, agg.DetectedDamageTypes)
}

func TestHoughLinesFindsStraightSegment(t *testing.T) {
	bin := grayImage(64, 64, 0)
	for x := 4; x < 60; x++ {
		bin.SetGray(x, 32, color.Gray{Y: 255})
	}

	lines := HoughLines(bin, houghThreshold, houghMinLineLength, houghMaxLineGap)
	require.NotEmpty(t, lines)

	longest := 0.0
	for _, l := range lines {
		longest = math.Max(longest, l.Length())
	}
	assert.GreaterOrEqual(t, longest, 40.0)
}

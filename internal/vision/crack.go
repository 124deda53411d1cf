package vision

import (
	"image"
	"image/color"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/models"
)

// CrackDetector isolates crack pixels in a damaged frame, optionally gated
// by a reference frame of the undamaged tyre.
type CrackDetector struct {
	cfg config.CrackConfig
}

func NewCrackDetector(cfg config.CrackConfig) *CrackDetector {
	return &CrackDetector{cfg: cfg}
}

// CrackFrameOutput is one frame's crack analysis: the metrics plus the
// binary crack map (consumed by the damage classifier) and a red-overlay
// visualization.
type CrackFrameOutput struct {
	Metrics models.CrackFrameMetrics
	Binary  *image.Gray
	Overlay image.Image
}

// AnalyzeFrame runs the crack isolation chain on one frame pair. reference
// may be nil, in which case the difference gate is skipped and edges alone
// decide.
func (d *CrackDetector) AnalyzeFrame(index int, reference, damaged image.Image) CrackFrameOutput {
	gray := ToGray(damaged)
	blurred := GaussianBlur(gray, 5, 1.4)
	edges := Canny(blurred, float64(d.cfg.LowThreshold), float64(d.cfg.HighThreshold))

	// Canny traces each crack as two 1-px walls. Thicken them first so the
	// walls fuse, bridge remaining gaps, then drop speckle.
	k := RectKernel(3, 3)
	mask := Open(Close(Dilate(edges, k), k), k)

	if reference != nil {
		refGray := GaussianBlur(ToGray(reference), 5, 1.4)
		if refGray.Rect.Dx() != gray.Rect.Dx() || refGray.Rect.Dy() != gray.Rect.Dy() {
			refGray = ResizeGray(refGray, gray.Rect.Dx(), gray.Rect.Dy())
		}
		// Only keep edges where the damaged frame actually differs from the
		// fresh tyre; tread pattern edges cancel out here.
		diff := Threshold(AbsDiff(refGray, GaussianBlur(gray, 5, 1.4)), uint8(d.cfg.DiffThreshold))
		diff = Dilate(diff, k)
		mask = And(mask, diff)
	}

	components := ConnectedComponents(mask, d.cfg.MinArea)

	crackPixels := 0
	for _, c := range components {
		crackPixels += c.Area
	}
	total := mask.Rect.Dx() * mask.Rect.Dy()
	density := 0.0
	if total > 0 {
		density = float64(crackPixels) / float64(total) * 100
	}

	return CrackFrameOutput{
		Metrics: models.CrackFrameMetrics{
			FrameIndex:   index,
			CrackCount:   len(components),
			CrackDensity: density,
		},
		Binary:  mask,
		Overlay: overlayRed(damaged, mask),
	}
}

// AggregateCracks reduces per-frame crack metrics to the video-level result.
func AggregateCracks(frames []models.CrackFrameMetrics) models.CrackAnalysis {
	agg := models.CrackAnalysis{
		TotalFramesAnalyzed: len(frames),
		FrameResults:        frames,
	}
	if len(frames) == 0 {
		agg.FrameResults = []models.CrackFrameMetrics{}
		return agg
	}

	var densitySum float64
	for _, f := range frames {
		agg.TotalCrackCount += f.CrackCount
		densitySum += f.CrackDensity
	}
	agg.AverageCrackCountPerFrame = float64(agg.TotalCrackCount) / float64(len(frames))
	agg.AverageCrackDensity = densitySum / float64(len(frames))
	return agg
}

// overlayRed paints mask pixels red over the source frame.
func overlayRed(src image.Image, mask *image.Gray) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if x < mask.Rect.Dx() && y < mask.Rect.Dy() && mask.GrayAt(x, y).Y > 0 {
				dst.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				dst.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return dst
}

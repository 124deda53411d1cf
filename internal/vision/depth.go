package vision

import (
	"image"
	"image/color"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/models"
)

// DepthEstimator estimates damage intrusion depth by blending an absolute
// intensity difference against a block-matching disparity between the
// reference and damaged frames. The blend favours the difference signal
// (0.6/0.4); the disparity term adds parallax sensitivity for deep chunks.
type DepthEstimator struct {
	cfg config.DepthConfig
}

func NewDepthEstimator(cfg config.DepthConfig) *DepthEstimator {
	return &DepthEstimator{cfg: cfg}
}

const (
	diffBlendWeight      = 0.6
	disparityBlendWeight = 0.4
)

// EstimateFrame produces per-frame depth metrics for one frame pair.
func (e *DepthEstimator) EstimateFrame(index int, reference, damaged image.Image) models.DepthFrameMetrics {
	refGray := GaussianBlur(ToGray(reference), 5, 1.4)
	damGray := GaussianBlur(ToGray(damaged), 5, 1.4)
	if refGray.Rect.Dx() != damGray.Rect.Dx() || refGray.Rect.Dy() != damGray.Rect.Dy() {
		refGray = ResizeGray(refGray, damGray.Rect.Dx(), damGray.Rect.Dy())
	}

	diff := AbsDiff(refGray, damGray)
	disparity := e.blockMatch(refGray, damGray)

	w, h := damGray.Rect.Dx(), damGray.Rect.Dy()
	blended := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := diffBlendWeight*float64(diff.GrayAt(x, y).Y) +
				disparityBlendWeight*float64(disparity.GrayAt(x, y).Y)
			blended.SetGray(x, y, color.Gray{Y: uint8(clampF(v, 0, 255))})
		}
	}

	closed := Close(blended, EllipseKernel(5, 5))

	var maxV uint8
	var sum float64
	for _, v := range closed.Pix {
		if v > maxV {
			maxV = v
		}
		sum += float64(v)
	}
	mean := 0.0
	if len(closed.Pix) > 0 {
		mean = sum / float64(len(closed.Pix))
	}

	return models.DepthFrameMetrics{
		FrameIndex:  index,
		MaxDepthMM:  float64(maxV) * e.cfg.MMPerUnit,
		MeanDepthMM: mean * e.cfg.MMPerUnit,
	}
}

// blockMatch computes a coarse horizontal disparity map: for each block in
// the damaged frame, find the best SAD match in the reference within the
// disparity range, and scale the winning shift to 0..255.
func (e *DepthEstimator) blockMatch(ref, dam *image.Gray) *image.Gray {
	w, h := dam.Rect.Dx(), dam.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	block := e.cfg.BlockSize
	if block < 3 {
		block = 3
	}
	maxDisp := e.cfg.MaxDisparity
	if maxDisp < 1 {
		maxDisp = 16
	}
	half := block / 2

	for y := half; y < h-half; y += block {
		for x := half; x < w-half; x += block {
			bestDisp := 0
			bestSAD := int(^uint(0) >> 1)

			for d := 0; d <= maxDisp; d++ {
				if x-half-d < 0 {
					break
				}
				sad := 0
				for by := -half; by <= half; by++ {
					for bx := -half; bx <= half; bx++ {
						dv := int(dam.GrayAt(x+bx, y+by).Y)
						rv := int(ref.GrayAt(x+bx-d, y+by).Y)
						diff := dv - rv
						if diff < 0 {
							diff = -diff
						}
						sad += diff
					}
				}
				if sad < bestSAD {
					bestSAD = sad
					bestDisp = d
				}
			}

			v := uint8(clampF(float64(bestDisp)/float64(maxDisp)*255, 0, 255))
			for by := -half; by <= half; by++ {
				for bx := -half; bx <= half; bx++ {
					dst.SetGray(x+bx, y+by, color.Gray{Y: v})
				}
			}
		}
	}
	return dst
}

// AggregateDepth reduces per-frame depth metrics to the video-level result.
func AggregateDepth(frames []models.DepthFrameMetrics) models.DepthAnalysis {
	agg := models.DepthAnalysis{
		TotalFramesAnalyzed: len(frames),
		FrameResults:        frames,
	}
	if len(frames) == 0 {
		agg.FrameResults = []models.DepthFrameMetrics{}
		return agg
	}

	var sum float64
	for _, f := range frames {
		if f.MaxDepthMM > agg.MaxDepthEstimateMM {
			agg.MaxDepthEstimateMM = f.MaxDepthMM
		}
		sum += f.MaxDepthMM
	}
	agg.AverageMaxDepthMM = sum / float64(len(frames))
	return agg
}

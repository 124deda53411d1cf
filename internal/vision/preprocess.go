package vision

import (
	"image"

	"github.com/your-org/td/internal/models"
)

// Preprocessor localizes the tyre in each raw frame, crops to it and
// normalizes size and contrast so the downstream analyzers see comparable
// inputs regardless of camera framing.
type Preprocessor struct {
	FrameSize int

	circleSumX  int
	circleSumY  int
	circleSumR  int
	circleCount int
}

func NewPreprocessor(frameSize int) *Preprocessor {
	return &Preprocessor{FrameSize: frameSize}
}

const (
	circleMinRadiusRatio = 0.2
	circleMaxRadiusRatio = 0.45
	circleMinVotes       = 40
	cropPadRatio         = 0.3
	equalizeTileGrid     = 8
	equalizeClipLimit    = 2.0
)

// ProcessFrame decodes a raw frame, finds the tyre circle and returns the
// cropped, resized, contrast-normalized grayscale frame. ok is false when no
// tyre circle is found; such frames are skipped, not errors.
func (p *Preprocessor) ProcessFrame(data []byte) (processed *image.Gray, circle models.Circle, ok bool, err error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, models.Circle{}, false, err
	}

	gray := ToGray(img)
	blurred := GaussianBlur(gray, 9, 2.0)
	edges := Canny(blurred, 50, 150)

	short := minInt(gray.Rect.Dx(), gray.Rect.Dy())
	circle, found := HoughCircle(edges,
		int(float64(short)*circleMinRadiusRatio),
		int(float64(short)*circleMaxRadiusRatio),
		circleMinVotes)
	if !found {
		return nil, models.Circle{}, false, nil
	}

	p.circleSumX += circle.X
	p.circleSumY += circle.Y
	p.circleSumR += circle.Radius
	p.circleCount++

	// Square crop around the circle with padding, clamped to the frame.
	pad := int(float64(circle.Radius) * cropPadRatio)
	half := circle.Radius + pad
	crop := image.Rect(circle.X-half, circle.Y-half, circle.X+half, circle.Y+half)
	cropped := CropGray(gray, crop)

	resized := ResizeGray(cropped, p.FrameSize, p.FrameSize)
	normalized := EqualizeTiles(resized, equalizeTileGrid, equalizeClipLimit)

	return normalized, circle, true, nil
}

// AvgCircle is the mean detected tyre circle across processed frames.
func (p *Preprocessor) AvgCircle() models.Circle {
	if p.circleCount == 0 {
		return models.Circle{}
	}
	return models.Circle{
		X:      p.circleSumX / p.circleCount,
		Y:      p.circleSumY / p.circleCount,
		Radius: p.circleSumR / p.circleCount,
	}
}

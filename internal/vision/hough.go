package vision

import (
	"image"
	"math"

	"github.com/your-org/td/internal/models"
)

// LineSegment is one detected straight edge segment in pixel coordinates.
type LineSegment struct {
	X1, Y1, X2, Y2 int
}

func (l LineSegment) Length() float64 {
	return math.Hypot(float64(l.X2-l.X1), float64(l.Y2-l.Y1))
}

// HoughLines detects straight line segments in a binary edge image using a
// probabilistic Hough transform: vote in (rho, theta) space, then walk each
// winning line through the image collecting runs of edge pixels, bridging
// gaps up to maxGap and keeping runs of at least minLength.
func HoughLines(bin *image.Gray, threshold, minLength, maxGap int) []LineSegment {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	const thetaSteps = 180
	maxRho := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	acc := make([]int, thetaSteps*(2*maxRho+1))

	sin := make([]float64, thetaSteps)
	cos := make([]float64, thetaSteps)
	for t := 0; t < thetaSteps; t++ {
		theta := float64(t) * math.Pi / thetaSteps
		sin[t] = math.Sin(theta)
		cos[t] = math.Cos(theta)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if bin.GrayAt(x, y).Y == 0 {
				continue
			}
			for t := 0; t < thetaSteps; t++ {
				rho := int(math.Round(float64(x)*cos[t]+float64(y)*sin[t])) + maxRho
				acc[t*(2*maxRho+1)+rho]++
			}
		}
	}

	var segments []LineSegment
	for t := 0; t < thetaSteps; t++ {
		for r := 0; r <= 2*maxRho; r++ {
			if acc[t*(2*maxRho+1)+r] < threshold {
				continue
			}
			rho := float64(r - maxRho)
			segments = append(segments, traceLine(bin, rho, cos[t], sin[t], minLength, maxGap)...)
		}
	}
	return segments
}

// traceLine walks the line rho = x*cos + y*sin across the image and splits
// the edge pixels along it into segments.
func traceLine(bin *image.Gray, rho, cosT, sinT float64, minLength, maxGap int) []LineSegment {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()

	// Parameterize by the dominant axis for dense stepping.
	type pt struct{ x, y int }
	var pts []pt
	if math.Abs(sinT) > math.Abs(cosT) {
		// y = (rho - x*cos) / sin
		for x := 0; x < w; x++ {
			y := int(math.Round((rho - float64(x)*cosT) / sinT))
			if y >= 0 && y < h && bin.GrayAt(x, y).Y > 0 {
				pts = append(pts, pt{x, y})
			}
		}
	} else {
		for y := 0; y < h; y++ {
			x := int(math.Round((rho - float64(y)*sinT) / cosT))
			if x >= 0 && x < w && bin.GrayAt(x, y).Y > 0 {
				pts = append(pts, pt{x, y})
			}
		}
	}

	var segments []LineSegment
	start := -1
	for i := 0; i < len(pts); i++ {
		if start < 0 {
			start = i
			continue
		}
		gap := math.Hypot(float64(pts[i].x-pts[i-1].x), float64(pts[i].y-pts[i-1].y))
		if gap <= float64(maxGap)+1 && i != len(pts)-1 {
			continue
		}

		end := i - 1
		if i == len(pts)-1 && gap <= float64(maxGap)+1 {
			end = i
		}
		seg := LineSegment{X1: pts[start].x, Y1: pts[start].y, X2: pts[end].x, Y2: pts[end].y}
		if seg.Length() >= float64(minLength) {
			segments = append(segments, seg)
		}
		start = i
	}
	return segments
}

// HoughCircle finds the single most-voted circle with radius in
// [minRadius, maxRadius] in an edge image. Returns false when no circle
// accumulates at least minVotes edge pixels.
func HoughCircle(edges *image.Gray, minRadius, maxRadius, minVotes int) (models.Circle, bool) {
	w, h := edges.Rect.Dx(), edges.Rect.Dy()
	if w == 0 || h == 0 || minRadius < 1 || maxRadius < minRadius {
		return models.Circle{}, false
	}

	// Coarse radius stepping keeps the vote space tractable.
	radiusStep := (maxRadius - minRadius) / 16
	if radiusStep < 1 {
		radiusStep = 1
	}

	best := models.Circle{}
	bestVotes := 0

	for r := minRadius; r <= maxRadius; r += radiusStep {
		acc := make([]int, w*h)
		steps := int(2 * math.Pi * float64(r))
		if steps < 32 {
			steps = 32
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if edges.GrayAt(x, y).Y == 0 {
					continue
				}
				for s := 0; s < steps; s += 4 {
					theta := 2 * math.Pi * float64(s) / float64(steps)
					cx := x - int(math.Round(float64(r)*math.Cos(theta)))
					cy := y - int(math.Round(float64(r)*math.Sin(theta)))
					if cx >= 0 && cx < w && cy >= 0 && cy < h {
						acc[cy*w+cx]++
					}
				}
			}
		}

		for i, votes := range acc {
			if votes > bestVotes {
				bestVotes = votes
				best = models.Circle{X: i % w, Y: i / w, Radius: r}
			}
		}
	}

	if bestVotes < minVotes {
		return models.Circle{}, false
	}
	return best, true
}

package vision

import (
	"image"
	"math"

	"github.com/your-org/td/internal/models"
)

// FrameFeatures are the measurements the damage type rules operate on.
type FrameFeatures struct {
	Roughness       float64 // gradient texture, 0..1
	CircularCount   int     // round components in the crack map
	MeanCircularity float64
	LineCount       int     // straight segments in the crack map
	Linearity       float64 // mean segment length, 0..1
	FineCrackRatio  float64 // crack pixels surviving a 2x2 erosion, over the frame
	ChunkCount      int     // large irregular components
	FlatSpotScore   float64 // angular variance imbalance, 0..1
}

// DamageClassifier derives per-frame damage type labels from a damaged
// frame and its binary crack map. The decision thresholds are fixed rules of
// the taxonomy, not calibration knobs.
type DamageClassifier struct {
	PresenceRatio float64
}

func NewDamageClassifier(presenceRatio float64) *DamageClassifier {
	if presenceRatio <= 0 {
		presenceRatio = 0.2
	}
	return &DamageClassifier{PresenceRatio: presenceRatio}
}

const (
	circularMinArea      = 50
	circularMinRoundness = 0.7
	chunkMinArea         = 500
	chunkMaxRoundness    = 0.5
	houghThreshold       = 30
	houghMinLineLength   = 20
	houghMaxLineGap      = 10
	flatSpotSectors      = 12
)

// ExtractFeatures computes the rule inputs for one frame.
func (c *DamageClassifier) ExtractFeatures(damaged *image.Gray, crackBinary *image.Gray) FrameFeatures {
	var f FrameFeatures

	// Texture roughness: spread of the gradient magnitude.
	mag := GradientMagnitude(damaged)
	f.Roughness = math.Min(stddev(mag)/50.0, 1.0)

	// Shape analysis over the crack map.
	components := ConnectedComponents(crackBinary, circularMinArea)
	var circSum float64
	for _, comp := range components {
		circ := comp.Circularity()
		if circ > circularMinRoundness {
			f.CircularCount++
			circSum += circ
		}
		if comp.Area > chunkMinArea && circ < chunkMaxRoundness {
			f.ChunkCount++
		}
	}
	if f.CircularCount > 0 {
		f.MeanCircularity = circSum / float64(f.CircularCount)
	}

	// Straight segments.
	lines := HoughLines(crackBinary, houghThreshold, houghMinLineLength, houghMaxLineGap)
	f.LineCount = len(lines)
	if len(lines) > 0 {
		var lenSum float64
		for _, l := range lines {
			lenSum += l.Length()
		}
		f.Linearity = math.Min(lenSum/float64(len(lines))/100.0, 1.0)
	}

	// Fine crack density: crack pixels still present after a 2x2 erosion,
	// over the whole frame.
	total := crackBinary.Rect.Dx() * crackBinary.Rect.Dy()
	if total > 0 {
		fine := CountNonZero(Erode(crackBinary, RectKernel(2, 2)))
		f.FineCrackRatio = float64(fine) / float64(total)
	}

	f.FlatSpotScore = flatSpotScore(damaged)
	return f
}

// Classify applies the damage taxonomy rules to a feature set.
func (c *DamageClassifier) Classify(f FrameFeatures) []models.DamageType {
	var types []models.DamageType

	if f.CircularCount >= 3 && f.MeanCircularity > 0.75 {
		types = append(types, models.DamageBlistering)
	}
	if f.FineCrackRatio > 0.02 {
		types = append(types, models.DamageMicroCracks)
	}
	if f.Roughness > 0.6 && f.FineCrackRatio > 0.01 {
		types = append(types, models.DamageGrain)
	}
	if f.LineCount >= 2 && f.Linearity > 0.5 {
		types = append(types, models.DamageCuts)
	}
	if f.FlatSpotScore > 0.3 {
		types = append(types, models.DamageFlatSpots)
	}
	if f.ChunkCount >= 1 {
		types = append(types, models.DamageChunking)
	}
	return types
}

// ClassifyFrame is the per-frame entry point.
func (c *DamageClassifier) ClassifyFrame(index int, damaged *image.Gray, crackBinary *image.Gray) models.DamageFrameMetrics {
	types := c.Classify(c.ExtractFeatures(damaged, crackBinary))
	if types == nil {
		types = []models.DamageType{}
	}
	return models.DamageFrameMetrics{
		FrameIndex:     index,
		DamageTypes:    types,
		NumDamageTypes: len(types),
	}
}

// Aggregate reduces per-frame labels to the video-level result. A type is
// detected only when it shows up in at least PresenceRatio of the frames, so
// a single noisy frame cannot flag a tyre.
func (c *DamageClassifier) Aggregate(frames []models.DamageFrameMetrics) models.DamageAnalysis {
	agg := models.DamageAnalysis{
		TotalFramesAnalyzed:   len(frames),
		DetectedDamageTypes:   []models.DamageType{},
		DamageTypeFrameCounts: map[models.DamageType]int{},
		FrameResults:          frames,
	}
	if len(frames) == 0 {
		agg.FrameResults = []models.DamageFrameMetrics{}
		return agg
	}

	for _, f := range frames {
		for _, t := range f.DamageTypes {
			agg.DamageTypeFrameCounts[t]++
		}
	}

	minFrames := c.PresenceRatio * float64(len(frames))
	for _, t := range models.AllDamageTypes {
		if float64(agg.DamageTypeFrameCounts[t]) >= minFrames && agg.DamageTypeFrameCounts[t] > 0 {
			agg.DetectedDamageTypes = append(agg.DetectedDamageTypes, t)
		}
	}
	return agg
}

// flatSpotScore splits the tyre surface into angular sectors around the
// frame centre and compares per-sector intensity variance: a flat spot shows
// up as one sector with much higher variance than the rest.
func flatSpotScore(gray *image.Gray) float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	cx, cy := float64(w)/2, float64(h)/2
	rx, ry := cx, cy

	sums := make([]float64, flatSpotSectors)
	sqSums := make([]float64, flatSpotSectors)
	counts := make([]int, flatSpotSectors)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy > 1.0 {
				continue
			}
			angle := math.Atan2(dy, dx)
			sector := int((angle + math.Pi) / (2 * math.Pi) * flatSpotSectors)
			if sector >= flatSpotSectors {
				sector = flatSpotSectors - 1
			}
			v := float64(gray.GrayAt(x, y).Y)
			sums[sector] += v
			sqSums[sector] += v * v
			counts[sector]++
		}
	}

	var maxVar, varSum float64
	sectorsUsed := 0
	for i := 0; i < flatSpotSectors; i++ {
		if counts[i] == 0 {
			continue
		}
		mean := sums[i] / float64(counts[i])
		variance := sqSums[i]/float64(counts[i]) - mean*mean
		if variance > maxVar {
			maxVar = variance
		}
		varSum += variance
		sectorsUsed++
	}
	if sectorsUsed == 0 || varSum == 0 {
		return 0
	}

	avgVar := varSum / float64(sectorsUsed)
	if avgVar == 0 {
		return 0
	}
	return clampF((maxVar/avgVar-1)/2, 0, 1)
}

func stddev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}

// Package vision implements the per-frame tyre damage analyzers: crack
// detection, depth estimation, damage classification and frame
// preprocessing. Everything is pure Go over stdlib image types.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
)

// DecodeImage decodes a JPEG or PNG frame.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ToGray converts any image to 8-bit grayscale.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// GaussianBlur applies a separable Gaussian filter. ksize must be odd.
func GaussianBlur(src *image.Gray, ksize int, sigma float64) *image.Gray {
	if ksize < 3 {
		return src
	}
	kernel := gaussianKernel(ksize, sigma)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	half := ksize / 2

	// Horizontal pass
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				xx := clampInt(x+k, 0, w-1)
				sum += float64(src.GrayAt(xx, y).Y) * kernel[k+half]
			}
			tmp[y*w+x] = sum
		}
	}

	// Vertical pass
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -half; k <= half; k++ {
				yy := clampInt(y+k, 0, h-1)
				sum += tmp[yy*w+x] * kernel[k+half]
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(math.Round(clampF(sum, 0, 255)))})
		}
	}
	return dst
}

func gaussianKernel(ksize int, sigma float64) []float64 {
	if sigma <= 0 {
		// OpenCV convention for an automatic sigma from the kernel size.
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}
	half := ksize / 2
	kernel := make([]float64, ksize)
	var sum float64
	for i := -half; i <= half; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+half] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// Sobel computes per-pixel gradient components with 3x3 Sobel operators.
func Sobel(src *image.Gray) (gx, gy []float64) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	gx = make([]float64, w*h)
	gy = make([]float64, w*h)

	at := func(x, y int) float64 {
		return float64(src.GrayAt(clampInt(x, 0, w-1), clampInt(y, 0, h-1)).Y)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx[y*w+x] = -at(x-1, y-1) + at(x+1, y-1) +
				-2*at(x-1, y) + 2*at(x+1, y) +
				-at(x-1, y+1) + at(x+1, y+1)
			gy[y*w+x] = -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
		}
	}
	return gx, gy
}

// GradientMagnitude returns the per-pixel Sobel gradient magnitude.
func GradientMagnitude(src *image.Gray) []float64 {
	gx, gy := Sobel(src)
	mag := make([]float64, len(gx))
	for i := range gx {
		mag[i] = math.Hypot(gx[i], gy[i])
	}
	return mag
}

// AbsDiff returns |a - b| per pixel. The images must share dimensions.
func AbsDiff(a, b *image.Gray) *image.Gray {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			va := int(a.GrayAt(x, y).Y)
			vb := int(b.GrayAt(x, y).Y)
			d := va - vb
			if d < 0 {
				d = -d
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(d)})
		}
	}
	return dst
}

// Threshold produces a binary image: 255 where src > t, else 0.
func Threshold(src *image.Gray, t uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if src.GrayAt(x, y).Y > t {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// And keeps pixels set in both binary images.
func And(a, b *image.Gray) *image.Gray {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if a.GrayAt(x, y).Y > 0 && b.GrayAt(x, y).Y > 0 {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// CountNonZero returns the number of set pixels in a binary image.
func CountNonZero(src *image.Gray) int {
	count := 0
	for _, v := range src.Pix {
		if v > 0 {
			count++
		}
	}
	return count
}

// ResizeGray scales to the target size with nearest-neighbour sampling.
func ResizeGray(src *image.Gray, targetW, targetH int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, targetW, targetH))
	for y := 0; y < targetH; y++ {
		sy := y * h / targetH
		for x := 0; x < targetW; x++ {
			sx := x * w / targetW
			dst.SetGray(x, y, src.GrayAt(sx, sy))
		}
	}
	return dst
}

// CropGray extracts a rectangle, clamped to the image bounds.
func CropGray(src *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(src.Rect)
	dst := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dst.SetGray(x, y, src.GrayAt(r.Min.X+x, r.Min.Y+y))
		}
	}
	return dst
}

// EqualizeTiles normalizes contrast by per-tile histogram equalization with
// clip-limited histograms, applied over a grid of tiles.
func EqualizeTiles(src *image.Gray, tiles int, clipLimit float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles

	for ty := 0; ty < tiles; ty++ {
		for tx := 0; tx < tiles; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, w), minInt(y0+tileH, h)
			if x0 >= x1 || y0 >= y1 {
				continue
			}
			equalizeTile(src, dst, x0, y0, x1, y1, clipLimit)
		}
	}
	return dst
}

func equalizeTile(src, dst *image.Gray, x0, y0, x1, y1 int, clipLimit float64) {
	var hist [256]float64
	n := float64((x1 - x0) * (y1 - y0))
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[src.GrayAt(x, y).Y]++
		}
	}

	// Clip the histogram and redistribute the excess uniformly.
	limit := clipLimit * n / 256
	var excess float64
	for i := range hist {
		if hist[i] > limit {
			excess += hist[i] - limit
			hist[i] = limit
		}
	}
	for i := range hist {
		hist[i] += excess / 256
	}

	var cdf [256]float64
	var acc float64
	for i := range hist {
		acc += hist[i]
		cdf[i] = acc
	}

	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := cdf[src.GrayAt(x, y).Y] / n * 255
			dst.SetGray(x, y, color.Gray{Y: uint8(clampF(v, 0, 255))})
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

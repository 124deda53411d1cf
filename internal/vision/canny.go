package vision

import (
	"image"
	"image/color"
	"math"
)

// Canny runs the full edge detection chain: Sobel gradients, non-maximum
// suppression along the gradient direction, then double thresholding with
// hysteresis (weak edges survive only when connected to a strong edge).
func Canny(src *image.Gray, low, high float64) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	gx, gy := Sobel(src)

	mag := make([]float64, w*h)
	for i := range gx {
		mag[i] = math.Hypot(gx[i], gy[i])
	}

	// Non-maximum suppression: quantize the gradient direction to one of
	// four axes and keep only local maxima along it.
	suppressed := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m == 0 {
				continue
			}

			angle := math.Atan2(gy[i], gx[i]) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}

			var m1, m2 float64
			switch {
			case angle < 22.5 || angle >= 157.5: // horizontal gradient
				m1, m2 = mag[i-1], mag[i+1]
			case angle < 67.5: // diagonal /
				m1, m2 = mag[(y-1)*w+x+1], mag[(y+1)*w+x-1]
			case angle < 112.5: // vertical gradient
				m1, m2 = mag[(y-1)*w+x], mag[(y+1)*w+x]
			default: // diagonal \
				m1, m2 = mag[(y-1)*w+x-1], mag[(y+1)*w+x+1]
			}

			if m >= m1 && m >= m2 {
				suppressed[i] = m
			}
		}
	}

	// Double threshold + hysteresis via BFS from strong pixels.
	const (
		weak   = 1
		strong = 2
	)
	marks := make([]uint8, w*h)
	stack := make([]int, 0, 256)
	for i, m := range suppressed {
		if m >= high {
			marks[i] = strong
			stack = append(stack, i)
		} else if m >= low {
			marks[i] = weak
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		dst.SetGray(x, y, color.Gray{Y: 255})

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				j := ny*w + nx
				if marks[j] == weak {
					marks[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return dst
}

package vision

import (
	"image"
	"image/color"
)

// Kernel is a binary structuring element for morphological operations.
type Kernel struct {
	W, H int
	Mask []bool
}

// RectKernel builds a fully-set rectangular structuring element.
func RectKernel(w, h int) Kernel {
	mask := make([]bool, w*h)
	for i := range mask {
		mask[i] = true
	}
	return Kernel{W: w, H: h, Mask: mask}
}

// EllipseKernel builds an elliptical structuring element inscribed in w x h.
func EllipseKernel(w, h int) Kernel {
	mask := make([]bool, w*h)
	cx := float64(w-1) / 2
	cy := float64(h-1) / 2
	rx := float64(w) / 2
	ry := float64(h) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - cx) / rx
			dy := (float64(y) - cy) / ry
			if dx*dx+dy*dy <= 1.0 {
				mask[y*w+x] = true
			}
		}
	}
	return Kernel{W: w, H: h, Mask: mask}
}

// Erode keeps a pixel set only when every kernel position over it is set.
func Erode(src *image.Gray, k Kernel) *image.Gray {
	return morph(src, k, true)
}

// Dilate sets a pixel when any kernel position over it is set.
func Dilate(src *image.Gray, k Kernel) *image.Gray {
	return morph(src, k, false)
}

// Open is erosion followed by dilation: removes speckle noise.
func Open(src *image.Gray, k Kernel) *image.Gray {
	return Dilate(Erode(src, k), k)
}

// Close is dilation followed by erosion: bridges small gaps in cracks.
func Close(src *image.Gray, k Kernel) *image.Gray {
	return Erode(Dilate(src, k), k)
}

func morph(src *image.Gray, k Kernel, erode bool) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	halfW := k.W / 2
	halfH := k.H / 2

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			hit := erode
			for ky := 0; ky < k.H && hit == erode; ky++ {
				for kx := 0; kx < k.W; kx++ {
					if !k.Mask[ky*k.W+kx] {
						continue
					}
					sx := clampInt(x+kx-halfW, 0, w-1)
					sy := clampInt(y+ky-halfH, 0, h-1)
					set := src.GrayAt(sx, sy).Y > 0
					if erode && !set {
						hit = false
						break
					}
					if !erode && set {
						hit = true
						break
					}
				}
			}
			if hit {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

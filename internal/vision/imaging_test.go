package vision

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(w, h int, fill uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	return img
}

func TestAbsDiff(t *testing.T) {
	a := grayImage(4, 4, 200)
	b := grayImage(4, 4, 50)

	d := AbsDiff(a, b)
	assert.Equal(t, uint8(150), d.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(150), d.GrayAt(3, 3).Y)

	// Symmetric
	d2 := AbsDiff(b, a)
	assert.Equal(t, d.Pix, d2.Pix)
}

func TestThreshold(t *testing.T) {
	img := grayImage(2, 2, 0)
	img.SetGray(0, 0, color.Gray{Y: 100})
	img.SetGray(1, 1, color.Gray{Y: 30})

	bin := Threshold(img, 50)
	assert.Equal(t, uint8(255), bin.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), bin.GrayAt(1, 1).Y)
	assert.Equal(t, 1, CountNonZero(bin))
}

func TestGaussianBlurPreservesFlatRegions(t *testing.T) {
	img := grayImage(16, 16, 128)
	blurred := GaussianBlur(img, 5, 1.4)
	for _, v := range blurred.Pix {
		assert.Equal(t, uint8(128), v)
	}
}

func TestGaussianBlurSmoothsEdges(t *testing.T) {
	img := grayImage(16, 16, 0)
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	blurred := GaussianBlur(img, 5, 1.4)
	// The step edge must become a gradient.
	v := blurred.GrayAt(8, 8).Y
	assert.Greater(t, v, uint8(0))
	assert.Less(t, v, uint8(255))
}

func TestCannyFindsStepEdge(t *testing.T) {
	img := grayImage(32, 32, 0)
	for y := 0; y < 32; y++ {
		for x := 16; x < 32; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	edges := Canny(img, 50, 150)
	require.Greater(t, CountNonZero(edges), 0)

	// Edge pixels cluster around the x=16 boundary.
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if edges.GrayAt(x, y).Y > 0 {
				assert.InDelta(t, 16, x, 2, "edge pixel far from boundary at (%d,%d)", x, y)
			}
		}
	}
}

func TestCannyBlankImageHasNoEdges(t *testing.T) {
	edges := Canny(grayImage(32, 32, 77), 50, 150)
	assert.Equal(t, 0, CountNonZero(edges))
}

func TestMorphologyOpenRemovesSpeckle(t *testing.T) {
	img := grayImage(16, 16, 0)
	img.SetGray(8, 8, color.Gray{Y: 255}) // single-pixel noise

	opened := Open(img, RectKernel(3, 3))
	assert.Equal(t, 0, CountNonZero(opened))
}

func TestMorphologyCloseBridgesGap(t *testing.T) {
	img := grayImage(16, 16, 0)
	// Horizontal line with a one-pixel gap.
	for x := 2; x < 14; x++ {
		if x == 8 {
			continue
		}
		img.SetGray(x, 8, color.Gray{Y: 255})
	}

	closed := Close(img, RectKernel(3, 3))
	assert.Equal(t, uint8(255), closed.GrayAt(8, 8).Y)
}

func TestConnectedComponents(t *testing.T) {
	img := grayImage(20, 20, 0)
	// Two separate 3x3 blocks.
	for y := 2; y < 5; y++ {
		for x := 2; x < 5; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for y := 10; y < 13; y++ {
		for x := 10; x < 13; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	comps := ConnectedComponents(img, 1)
	require.Len(t, comps, 2)
	assert.Equal(t, 9, comps[0].Area)
	assert.Equal(t, 9, comps[1].Area)

	// Area filter drops both.
	assert.Empty(t, ConnectedComponents(img, 10))
}

func TestConnectedComponentsDiagonalIsOneRegion(t *testing.T) {
	img := grayImage(10, 10, 0)
	for i := 0; i < 8; i++ {
		img.SetGray(i, i, color.Gray{Y: 255})
	}

	comps := ConnectedComponents(img, 1)
	require.Len(t, comps, 1)
	assert.Equal(t, 8, comps[0].Area)
}

func TestResizeGray(t *testing.T) {
	img := grayImage(8, 8, 42)
	out := ResizeGray(img, 4, 4)
	assert.Equal(t, 4, out.Rect.Dx())
	assert.Equal(t, 4, out.Rect.Dy())
	assert.Equal(t, uint8(42), out.GrayAt(2, 2).Y)
}

func TestEqualizeTilesSpreadsContrast(t *testing.T) {
	img := grayImage(64, 64, 0)
	// Low-contrast band of values 100..110.
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(100 + (x % 10))})
		}
	}

	out := EqualizeTiles(img, 8, 2.0)
	var lo, hi uint8 = 255, 0
	for _, v := range out.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.Greater(t, int(hi)-int(lo), 10, "contrast range should widen")
}

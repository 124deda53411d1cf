package vision

import (
	"image"
	"math"
)

// Component is one 8-connected region of set pixels in a binary image.
type Component struct {
	Area      int
	Perimeter int
	BBox      image.Rectangle
	CentroidX float64
	CentroidY float64
}

// Circularity is 4*pi*A/P^2: 1.0 for a perfect disc, lower for elongated or
// ragged shapes.
func (c Component) Circularity() float64 {
	if c.Perimeter == 0 {
		return 0
	}
	p := float64(c.Perimeter)
	return 4 * math.Pi * float64(c.Area) / (p * p)
}

// ConnectedComponents labels 8-connected regions and returns those with at
// least minArea pixels. Perimeter counts boundary pixels (set pixels with at
// least one unset 4-neighbour).
func ConnectedComponents(bin *image.Gray, minArea int) []Component {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	labels := make([]int32, w*h)
	var components []Component

	set := func(x, y int) bool {
		return x >= 0 && x < w && y >= 0 && y < h && bin.GrayAt(x, y).Y > 0
	}

	var next int32 = 1
	stack := make([][2]int, 0, 256)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !set(x, y) || labels[y*w+x] != 0 {
				continue
			}

			label := next
			next++
			comp := Component{BBox: image.Rect(x, y, x+1, y+1)}
			var sumX, sumY int

			stack = stack[:0]
			stack = append(stack, [2]int{x, y})
			labels[y*w+x] = label

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p[0], p[1]

				comp.Area++
				sumX += px
				sumY += py
				comp.BBox = comp.BBox.Union(image.Rect(px, py, px+1, py+1))

				if !set(px-1, py) || !set(px+1, py) || !set(px, py-1) || !set(px, py+1) {
					comp.Perimeter++
				}

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						nx, ny := px+dx, py+dy
						if set(nx, ny) && labels[ny*w+nx] == 0 {
							labels[ny*w+nx] = label
							stack = append(stack, [2]int{nx, ny})
						}
					}
				}
			}

			if comp.Area >= minArea {
				comp.CentroidX = float64(sumX) / float64(comp.Area)
				comp.CentroidY = float64(sumY) / float64(comp.Area)
				components = append(components, comp)
			}
		}
	}
	return components
}

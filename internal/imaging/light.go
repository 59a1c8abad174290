package imaging

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// lightnessSamples is the number of grid points sampled per axis.
const lightnessSamples = 32

// MeanLightness returns the average CIE L* of img in [0,1], sampled on a
// regular grid. Empty or nil images report 0.
func MeanLightness(img image.Image) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	if b.Empty() {
		return 0
	}

	stepX := max(b.Dx()/lightnessSamples, 1)
	stepY := max(b.Dy()/lightnessSamples, 1)

	var sum float64
	var n int
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		for x := b.Min.X; x < b.Max.X; x += stepX {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				// fully transparent
				continue
			}
			l, _, _ := c.Lab()
			sum += l
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp01(sum / float64(n))
}

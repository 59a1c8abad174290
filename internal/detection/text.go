package detection

import (
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

const (
	// DefaultMinConfidence is the confidence a window needs to count as text.
	DefaultMinConfidence = 0.35

	// analysisSize bounds the longer side of the image the windows slide over.
	analysisSize = 640

	// edgeThreshold is the Sobel magnitude (0-255) that marks an edge pixel.
	edgeThreshold = 96

	minDensity = 0.05
	maxDensity = 0.4

	// suggestPadding grows a suggestion by this fraction of its size on
	// every side, so ascenders and descenders are not clipped.
	suggestPadding = 0.05
)

// windows are the sliding window sizes in analysis pixels, one per text size.
var windows = []struct{ w, h int }{
	{80, 25},
	{100, 30},
	{150, 40},
	{200, 50},
}

// Bounds is a rectangle in image pixels using the corner names of the crop
// surface.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts b to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// FromRect converts r to Bounds.
func FromRect(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Region is an area likely to contain text.
type Region struct {
	Bounds     Bounds  `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// TextRegions returns the regions of img scoring at least minConfidence,
// highest confidence first. Bounds are in img's coordinates.
func TextRegions(img image.Image, minConfidence float64) []Region {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	b := img.Bounds()

	small := img
	if b.Dx() > analysisSize || b.Dy() > analysisSize {
		small = imaging.Fit(img, analysisSize, analysisSize, imaging.Box)
	}
	sb := small.Bounds()
	scaleX := float64(b.Dx()) / float64(sb.Dx())
	scaleY := float64(b.Dy()) / float64(sb.Dy())

	e := newEdgeMap(small)

	var candidates []Region
	for _, ws := range windows {
		if ws.w > e.w || ws.h > e.h {
			continue
		}
		stepX, stepY := ws.w/2, ws.h/2
		area := float64(ws.w * ws.h)

		for y := 0; y+ws.h <= e.h; y += stepY {
			for x := 0; x+ws.w <= e.w; x += stepX {
				density := float64(e.sum(x, y, ws.w, ws.h)) / area
				if density < minDensity || density > maxDensity {
					continue
				}
				confidence := e.horizontal(x, y, ws.w, ws.h) * (1 - math.Abs(density-0.2)/0.2)
				if confidence < minConfidence {
					continue
				}
				candidates = append(candidates, Region{
					Bounds: Bounds{
						X1: b.Min.X + int(float64(x)*scaleX),
						Y1: b.Min.Y + int(float64(y)*scaleY),
						X2: b.Min.X + int(math.Ceil(float64(x+ws.w)*scaleX)),
						Y2: b.Min.Y + int(math.Ceil(float64(y+ws.h)*scaleY)),
					},
					Confidence: math.Round(confidence*1000) / 1000,
				})
			}
		}
	}

	regions := merge(candidates)
	for i := range regions {
		regions[i].Bounds = FromRect(regions[i].Bounds.Rect().Intersect(b))
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].Confidence > regions[j].Confidence
	})
	return regions
}

// Suggest returns a padded rectangle around all text-like regions of img,
// clamped to its bounds. ok is false when nothing looks like text.
func Suggest(img image.Image, minConfidence float64) (image.Rectangle, bool) {
	regions := TextRegions(img, minConfidence)
	if len(regions) == 0 {
		return image.Rectangle{}, false
	}
	r := regions[0].Bounds.Rect()
	for _, reg := range regions[1:] {
		r = r.Union(reg.Bounds.Rect())
	}
	padX := int(float64(r.Dx()) * suggestPadding)
	padY := int(float64(r.Dy()) * suggestPadding)
	r = image.Rect(r.Min.X-padX, r.Min.Y-padY, r.Max.X+padX, r.Max.Y+padY).Intersect(img.Bounds())
	return r, !r.Empty()
}

// merge folds overlapping regions into their union, keeping the higher
// confidence.
func merge(regions []Region) []Region {
	var merged []Region
	for _, r := range regions {
		rr := r.Bounds.Rect()
		joined := false
		for i := range merged {
			mr := merged[i].Bounds.Rect()
			if rr.Overlaps(mr) {
				merged[i].Bounds = FromRect(rr.Union(mr))
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				joined = true
				break
			}
		}
		if !joined {
			merged = append(merged, r)
		}
	}
	return merged
}

// edgeMap is a thresholded Sobel edge image with a summed-area table for
// constant time window counts.
type edgeMap struct {
	w, h  int
	edges []bool
	// integral has (w+1)*(h+1) entries; integral[(y)*(w+1)+x] counts edges
	// above and left of (x, y).
	integral []int
}

func newEdgeMap(img image.Image) *edgeMap {
	sobel := effect.Sobel(img)
	b := sobel.Bounds()
	e := &edgeMap{
		w:        b.Dx(),
		h:        b.Dy(),
		edges:    make([]bool, b.Dx()*b.Dy()),
		integral: make([]int, (b.Dx()+1)*(b.Dy()+1)),
	}
	stride := e.w + 1
	for y := 0; y < e.h; y++ {
		row := 0
		for x := 0; x < e.w; x++ {
			// Sobel output is gray; the red channel carries the magnitude.
			if sobel.Pix[y*sobel.Stride+x*4] >= edgeThreshold {
				e.edges[y*e.w+x] = true
				row++
			}
			e.integral[(y+1)*stride+x+1] = e.integral[y*stride+x+1] + row
		}
	}
	return e
}

func (e *edgeMap) at(x, y int) bool {
	return e.edges[y*e.w+x]
}

func (e *edgeMap) sum(x, y, w, h int) int {
	s := e.w + 1
	return e.integral[(y+h)*s+x+w] - e.integral[y*s+x+w] - e.integral[(y+h)*s+x] + e.integral[y*s+x]
}

// horizontal is the share of edge runs in the window that run along rows.
func (e *edgeMap) horizontal(x, y, w, h int) float64 {
	var across, down int
	for row := y; row < y+h; row++ {
		in := false
		for col := x; col < x+w; col++ {
			if e.at(col, row) {
				if !in {
					across++
				}
				in = true
			} else {
				in = false
			}
		}
	}
	for col := x; col < x+w; col++ {
		in := false
		for row := y; row < y+h; row++ {
			if e.at(col, row) {
				if !in {
					down++
				}
				in = true
			} else {
				in = false
			}
		}
	}
	if across+down == 0 {
		return 0
	}
	return float64(across) / float64(across+down)
}

package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ErrInvalidRegion is returned for crop rectangles that are empty or fall
// outside the image.
var ErrInvalidRegion = errors.New("invalid crop region")

// Crop rotates img clockwise by angle degrees and then extracts rect, which
// is expressed in the coordinates of the rotated image.
//
// Multiples of 90 degrees are rotated losslessly; other angles are resampled
// with a white background filling the uncovered corners. An angle of 0 with
// rect equal to the image bounds returns an exact copy.
func Crop(img image.Image, rect image.Rectangle, angle float64) (*image.NRGBA, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrInvalidRegion)
	}

	rotated := Rotate(img, angle)
	bounds := rotated.Bounds()

	if rect.Empty() {
		return nil, fmt.Errorf("%w: x1 must be < x2, y1 must be < y2", ErrInvalidRegion)
	}
	if !rect.In(bounds) {
		return nil, fmt.Errorf("%w: (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			ErrInvalidRegion,
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	return imaging.Crop(rotated, rect), nil
}

// Rotate turns img clockwise by angle degrees.
func Rotate(img image.Image, angle float64) image.Image {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}

	switch a {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img) // imaging rotates counter-clockwise
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, 360-a, color.White)
	}
}

package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
)

// ocrContrast is the relative contrast boost applied before recognition.
const ocrContrast = 0.5

// PrepareForOCR converts img to a high-contrast grayscale image, which
// Tesseract handles better than raw camera color.
func PrepareForOCR(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	return adjust.Contrast(effect.Grayscale(img), ocrContrast)
}

package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Orient rotates a landscape sensor frame into portrait when portrait is
// set, matching how a handheld device presents its back camera.
func Orient(img image.Image, portrait bool) image.Image {
	if !portrait || img == nil {
		return img
	}
	return imaging.Rotate270(img)
}

// AspectFill scales img to cover a width x height view and crops the
// overflow around the center.
func AspectFill(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Linear)
}

// FillPoint maps a point in an aspect-filled view of size view back to
// normalized coordinates in [0,1] of the source frame of size frame.
//
// The view spans [0, view.X) x [0, view.Y). Returns false if the point lies
// outside it or either size is empty.
func FillPoint(pt image.Point, view, frame image.Point) (x, y float64, ok bool) {
	if view.X <= 0 || view.Y <= 0 || frame.X <= 0 || frame.Y <= 0 {
		return 0, 0, false
	}
	if pt.X < 0 || pt.Y < 0 || pt.X >= view.X || pt.Y >= view.Y {
		return 0, 0, false
	}

	// Scale at which the frame covers the view.
	scale := math.Max(float64(view.X)/float64(frame.X), float64(view.Y)/float64(frame.Y))
	shownW := float64(frame.X) * scale
	shownH := float64(frame.Y) * scale
	offX := (shownW - float64(view.X)) / 2
	offY := (shownH - float64(view.Y)) / 2

	x = (float64(pt.X) + offX) / shownW
	y = (float64(pt.Y) + offY) / shownH
	return clamp01(x), clamp01(y), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EncodeJPEG encodes img as JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodedImage carries an image as base64 for JSON surfaces.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Encode renders img as a base64 PNG.
func Encode(img image.Image) (*EncodedImage, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &EncodedImage{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

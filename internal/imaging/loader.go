package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"

	"github.com/disintegration/imaging"
)

// MaxStillBytes bounds the size of a still image accepted from disk or upload.
const MaxStillBytes = 32 << 20

// ErrTooLarge is returned when a still image exceeds MaxStillBytes.
var ErrTooLarge = errors.New("image exceeds size limit")

// StillInfo describes a decoded still image.
type StillInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg", "gif".
	// Unlike extension-based detection this reflects the file contents.
	Format string `json:"format"`

	// SizeBytes is the encoded size of the image.
	SizeBytes int64 `json:"size_bytes"`
}

// Decode reads and decodes a still image, applying EXIF orientation so
// photos taken in portrait come out upright.
//
// Returns an error wrapping the decoder failure if the data is not a
// supported PNG, JPEG or GIF image.
func Decode(r io.Reader) (image.Image, *StillInfo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxStillBytes+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxStillBytes {
		return nil, nil, ErrTooLarge
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	return img, &StillInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		SizeBytes: int64(len(data)),
	}, nil
}

// Load opens and decodes the still image at path.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid PNG, JPEG, or GIF image
func Load(path string) (image.Image, *StillInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, image.Rect(0, 0, 50, 50), 0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	b := result.Bounds()
	if b.Dx() != 50 || b.Dy() != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", b.Dx(), b.Dy())
	}

	// Top-left quadrant is red
	if r, g, bl := rgb8(result.At(25, 25)); r != 255 || g != 0 || bl != 0 {
		t.Errorf("cropped color: got (%d,%d,%d), want (255,0,0)", r, g, bl)
	}
}

func TestCrop_FullBoundsIsIdentity(t *testing.T) {
	img := createPatternImage(64, 48)

	result, err := Crop(img, img.Bounds(), 0)
	if err != nil {
		t.Fatalf("Crop full image failed: %v", err)
	}
	if result.Bounds().Size() != img.Bounds().Size() {
		t.Fatalf("size: got %v, want %v", result.Bounds().Size(), img.Bounds().Size())
	}

	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			want := img.RGBAAt(x, y)
			r, g, b := rgb8(result.At(x, y))
			if r != want.R || g != want.G || b != want.B {
				t.Fatalf("pixel (%d,%d): got (%d,%d,%d), want %v", x, y, r, g, b, want)
			}
		}
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"x1 negative", image.Rect(-1, 0, 50, 50)},
		{"x2 too large", image.Rect(0, 0, 101, 50)},
		{"y2 too large", image.Rect(0, 0, 50, 101)},
		{"zero width", image.Rect(50, 0, 50, 50)},
		{"zero area", image.Rect(50, 50, 50, 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.rect, 0)
			if !errors.Is(err, ErrInvalidRegion) {
				t.Errorf("got %v, want ErrInvalidRegion", err)
			}
		})
	}
}

func TestCrop_NilImage(t *testing.T) {
	if _, err := Crop(nil, image.Rect(0, 0, 1, 1), 0); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("got %v, want ErrInvalidRegion", err)
	}
}

func TestCrop_RotatedCoordinates(t *testing.T) {
	// 100x50 landscape becomes 50x100 portrait after a quarter turn.
	img := createPatternImage(100, 50)

	if _, err := Crop(img, image.Rect(0, 0, 50, 100), 90); err != nil {
		t.Fatalf("crop in rotated space failed: %v", err)
	}
	if _, err := Crop(img, image.Rect(0, 0, 100, 50), 90); err == nil {
		t.Error("crop using unrotated bounds should fail after a quarter turn")
	}
}

func TestRotate(t *testing.T) {
	img := createPatternImage(100, 50)

	tests := []struct {
		angle        float64
		wantW, wantH int
		// color expected at the top-left corner
		wantR, wantG, wantB uint8
	}{
		{0, 100, 50, 255, 0, 0},
		{360, 100, 50, 255, 0, 0},
		{90, 50, 100, 0, 0, 255},   // clockwise: bottom-left comes to top-left
		{-270, 50, 100, 0, 0, 255}, // same as 90
		{180, 100, 50, 255, 255, 255},
		{270, 50, 100, 0, 255, 0}, // counter-clockwise: top-right comes to top-left
	}

	for _, tt := range tests {
		rotated := Rotate(img, tt.angle)
		b := rotated.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("angle %v: size %dx%d, want %dx%d", tt.angle, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			continue
		}
		r, g, bl := rgb8(rotated.At(b.Min.X+1, b.Min.Y+1))
		if r != tt.wantR || g != tt.wantG || bl != tt.wantB {
			t.Errorf("angle %v: corner (%d,%d,%d), want (%d,%d,%d)",
				tt.angle, r, g, bl, tt.wantR, tt.wantG, tt.wantB)
		}
	}
}

func TestRotate_ArbitraryAngleGrowsCanvas(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})
	rotated := Rotate(img, 45)
	if rotated.Bounds().Dx() <= 100 {
		t.Errorf("45 degree rotation should enlarge the canvas, got width %d", rotated.Bounds().Dx())
	}
}

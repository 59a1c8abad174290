package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDevice serves frames from a channel so tests control delivery.
type fakeDevice struct {
	frames chan image.Image
	closed atomic.Bool

	mu       sync.Mutex
	focused  [][2]float64
	focusErr error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{frames: make(chan image.Image)}
}

func (d *fakeDevice) Read() (image.Image, error) {
	select {
	case img := <-d.frames:
		return img, nil
	case <-time.After(5 * time.Millisecond):
		return nil, errors.New("timeout")
	}
}

func (d *fakeDevice) Focus(x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focused = append(d.focused, [2]float64{x, y})
	return d.focusErr
}

func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startSource(t *testing.T, opts Options) (*Source, *fakeDevice) {
	t.Helper()
	dev := newFakeDevice()
	src := NewSource(func() (Device, error) { return dev, nil }, opts)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src, dev
}

func TestSource_LatestBeforeFrames(t *testing.T) {
	src := NewSource(func() (Device, error) { return newFakeDevice(), nil }, Options{})
	if src.Latest() != nil {
		t.Error("Latest should be nil before any frame")
	}
	if _, ok := src.LatestFrame(); ok {
		t.Error("LatestFrame should report no frame")
	}
}

func TestSource_MostRecentWins(t *testing.T) {
	src, dev := startSource(t, Options{})

	first := solid(4, 4, color.Black)
	second := solid(4, 4, color.White)
	dev.frames <- first
	dev.frames <- second

	waitFor(t, func() bool { return src.Stats().Frames == 2 })
	if src.Latest() != image.Image(second) {
		t.Error("Latest should return the newest frame")
	}
	f, _ := src.LatestFrame()
	if f.Seq != 2 {
		t.Errorf("Seq: got %d, want 2", f.Seq)
	}
}

func TestSource_PortraitOrientation(t *testing.T) {
	src, dev := startSource(t, Options{Portrait: true})

	dev.frames <- solid(40, 20, color.White)
	waitFor(t, func() bool { return src.Latest() != nil })

	b := src.Latest().Bounds()
	if b.Dx() != 20 || b.Dy() != 40 {
		t.Errorf("portrait frame: got %dx%d, want 20x40", b.Dx(), b.Dy())
	}
}

func TestSource_OnFrame(t *testing.T) {
	dev := newFakeDevice()
	src := NewSource(func() (Device, error) { return dev, nil }, Options{})

	var got atomic.Uint64
	src.OnFrame(func(f Frame) { got.Store(f.Seq) })

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Close()

	dev.frames <- solid(2, 2, color.White)
	waitFor(t, func() bool { return got.Load() == 1 })
}

func TestSource_StartErrors(t *testing.T) {
	src := NewSource(func() (Device, error) { return nil, errors.New("no camera") }, Options{})
	if err := src.Start(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("got %v, want ErrDeviceUnavailable", err)
	}

	started, _ := startSource(t, Options{})
	if err := started.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start: got %v, want ErrAlreadyStarted", err)
	}
}

func TestSource_ReadErrorsAreCounted(t *testing.T) {
	src, _ := startSource(t, Options{RetryDelay: time.Millisecond})
	waitFor(t, func() bool { return src.Stats().ReadErrors > 0 })
	if src.Latest() != nil {
		t.Error("failed reads should not produce frames")
	}
}

func TestSource_Close(t *testing.T) {
	dev := newFakeDevice()
	src := NewSource(func() (Device, error) { return dev, nil }, Options{})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !dev.closed.Load() {
		t.Error("Close should release the device")
	}
	if src.Stats().Running {
		t.Error("source should not report running after Close")
	}
	// Idempotent
	if err := src.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestSource_Focus(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		src := NewSource(func() (Device, error) { return newFakeDevice(), nil }, Options{})
		if err := src.Focus(0.5, 0.5); !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("got %v, want ErrDeviceUnavailable", err)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		src, _ := startSource(t, Options{})
		if err := src.Focus(1.5, 0); err == nil {
			t.Error("Focus should reject points outside the frame")
		}
	})

	t.Run("portrait maps to sensor", func(t *testing.T) {
		src, dev := startSource(t, Options{Portrait: true})
		if err := src.Focus(0.25, 0.75); err != nil {
			t.Fatalf("Focus failed: %v", err)
		}
		dev.mu.Lock()
		defer dev.mu.Unlock()
		if len(dev.focused) != 1 || dev.focused[0] != [2]float64{0.75, 0.75} {
			t.Errorf("sensor point: got %v, want [0.75 0.75]", dev.focused)
		}
	})

	t.Run("device error", func(t *testing.T) {
		src, dev := startSource(t, Options{})
		dev.focusErr = errors.New("unsupported")
		if err := src.Focus(0.5, 0.5); err == nil {
			t.Error("Focus should return the device error")
		}
	})
}

func TestSource_StatsLightness(t *testing.T) {
	src, dev := startSource(t, Options{})
	dev.frames <- solid(8, 8, color.White)
	waitFor(t, func() bool { return src.Latest() != nil })

	st := src.Stats()
	if !st.Running || st.Width != 8 || st.Height != 8 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.Lightness < 0.99 {
		t.Errorf("white frame lightness: got %.3f", st.Lightness)
	}
}

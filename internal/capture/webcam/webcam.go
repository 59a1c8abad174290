// Package webcam implements capture.Device on top of OpenCV's VideoCapture.
package webcam

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ironsheep/snapsearch/internal/capture"
	"github.com/ironsheep/snapsearch/internal/log"
)

var errEmptyFrame = errors.New("empty frame")

// Config selects the device and requested frame size.
type Config struct {
	DeviceID int
	Width    int
	Height   int
}

// Webcam is a V4L/AVFoundation/DirectShow camera opened through gocv.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	logger *zap.SugaredLogger
}

// Opener returns a capture.Opener for cfg.
func Opener(cfg Config) capture.Opener {
	return func() (capture.Device, error) {
		return Open(cfg)
	}
}

// Open opens the camera and applies the requested resolution. Drivers may
// pick the nearest supported mode; the delivered frame size wins.
func Open(cfg Config) (*Webcam, error) {
	vc, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d did not open", cfg.DeviceID)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	// Keep the driver from buffering stale frames behind the newest one.
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	w := &Webcam{
		cap:    vc,
		mat:    gocv.NewMat(),
		logger: log.Named("webcam"),
	}
	w.logger.Infow("camera opened",
		"device", cfg.DeviceID,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight))
	return w, nil
}

// Read implements capture.Device. The pixel buffer is converted into a
// freshly allocated image so the Mat can be reused for the next frame.
func (w *Webcam) Read() (image.Image, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ok := w.cap.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, errEmptyFrame
	}

	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Focus implements capture.Device.
//
// UVC cameras expose no point-of-interest control, so the point is logged
// and autofocus is re-triggered by toggling it off and on.
func (w *Webcam) Focus(x, y float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.Debugw("focus requested", "x", x, "y", y)
	w.cap.Set(gocv.VideoCaptureAutoFocus, 0)
	w.cap.Set(gocv.VideoCaptureAutoFocus, 1)
	if w.cap.Get(gocv.VideoCaptureAutoFocus) != 1 {
		return errors.New("device does not support autofocus")
	}
	return nil
}

// Close implements capture.Device.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return multierr.Combine(w.mat.Close(), w.cap.Close())
}

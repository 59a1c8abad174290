// Package capture delivers a continuous stream of camera frames.
//
// A Source owns one Device, reads frames from it on a dedicated goroutine
// and keeps only the most recent one. There is no queue: a frame that is
// not consumed before the next one arrives is simply replaced.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/snapsearch/internal/imaging"
	"github.com/ironsheep/snapsearch/internal/log"
)

var (
	// ErrDeviceUnavailable is returned when no capture device can be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrPermissionDenied is returned when camera use is not authorized.
	ErrPermissionDenied = errors.New("camera access not authorized")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("capture already started")
)

// Device is a video capture device.
type Device interface {
	// Read blocks until the next frame is available and returns it as a
	// standard bitmap. The returned image must not be reused by the device.
	Read() (image.Image, error)

	// Focus asks the device to focus at a point given in normalized frame
	// coordinates, (0,0) top-left to (1,1) bottom-right.
	Focus(x, y float64) error

	Close() error
}

// Opener opens the capture device. It is called once by Start.
type Opener func() (Device, error)

// Options configures a Source.
type Options struct {
	// Portrait rotates landscape sensor frames a quarter turn clockwise.
	Portrait bool

	// RetryDelay is the pause after a failed read. Defaults to 50ms.
	RetryDelay time.Duration
}

// Frame is a delivered camera frame.
type Frame struct {
	Image image.Image
	Seq   uint64
	At    time.Time
}

// Stats summarizes frame delivery.
type Stats struct {
	Running     bool      `json:"running"`
	Frames      uint64    `json:"frames"`
	LastFrameAt time.Time `json:"last_frame_at,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Lightness   float64   `json:"lightness"` // mean L* of the latest frame, 0..1
	ReadErrors  uint64    `json:"read_errors"`
}

// Source reads frames from a device in the background.
type Source struct {
	open   Opener
	opts   Options
	logger *zap.SugaredLogger

	latest     atomic.Pointer[Frame]
	seq        atomic.Uint64
	readErrors atomic.Uint64

	mu       sync.Mutex
	device   Device
	handlers []func(Frame)
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSource creates a Source that opens its device with open.
func NewSource(open Opener, opts Options) *Source {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	return &Source{
		open:   open,
		opts:   opts,
		logger: log.Named("capture"),
	}
}

// OnFrame registers a handler invoked on the capture goroutine for every
// delivered frame. Handlers must return quickly; a slow handler delays
// delivery but never queues frames.
func (s *Source) OnFrame(h func(Frame)) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

// Start opens the device and begins delivering frames until ctx is done or
// Close is called.
func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil {
		return ErrAlreadyStarted
	}

	dev, err := s.open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.device = dev
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, dev, s.done)
	s.logger.Infow("capture started", "portrait", s.opts.Portrait)
	return nil
}

func (s *Source) run(ctx context.Context, dev Device, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		img, err := dev.Read()
		if err != nil || img == nil {
			if ctx.Err() != nil {
				return
			}
			s.readErrors.Add(1)
			s.logger.Debugw("frame read failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.opts.RetryDelay):
			}
			continue
		}

		s.deliver(imaging.Orient(img, s.opts.Portrait))
	}
}

func (s *Source) deliver(img image.Image) {
	f := Frame{Image: img, Seq: s.seq.Add(1), At: time.Now()}
	s.latest.Store(&f)

	s.mu.Lock()
	handlers := s.handlers
	s.mu.Unlock()
	for _, h := range handlers {
		h(f)
	}
}

// Latest returns the most recent frame, or nil if none has arrived.
func (s *Source) Latest() image.Image {
	if f := s.latest.Load(); f != nil {
		return f.Image
	}
	return nil
}

// LatestFrame returns the most recent frame with its metadata.
func (s *Source) LatestFrame() (Frame, bool) {
	if f := s.latest.Load(); f != nil {
		return *f, true
	}
	return Frame{}, false
}

// Focus requests focus at normalized frame coordinates.
func (s *Source) Focus(x, y float64) error {
	s.mu.Lock()
	dev := s.device
	s.mu.Unlock()

	if dev == nil {
		return ErrDeviceUnavailable
	}
	if x < 0 || x > 1 || y < 0 || y > 1 {
		return fmt.Errorf("focus point (%.3f, %.3f) outside frame", x, y)
	}
	if s.opts.Portrait {
		// Undo the quarter turn: portrait (x, y) is sensor (y, 1-x).
		x, y = y, 1-x
	}
	return dev.Focus(x, y)
}

// Stats reports delivery counters and the latest frame's lightness.
func (s *Source) Stats() Stats {
	s.mu.Lock()
	running := s.device != nil
	s.mu.Unlock()

	st := Stats{
		Running:    running,
		Frames:     s.seq.Load(),
		ReadErrors: s.readErrors.Load(),
	}
	if f, ok := s.LatestFrame(); ok {
		b := f.Image.Bounds()
		st.LastFrameAt = f.At
		st.Width = b.Dx()
		st.Height = b.Dy()
		st.Lightness = imaging.MeanLightness(f.Image)
	}
	return st
}

// Close stops delivery and releases the device.
func (s *Source) Close() error {
	s.mu.Lock()
	dev, cancel, done := s.device, s.cancel, s.done
	s.device, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()

	if dev == nil {
		return nil
	}
	cancel()
	// Devices are not safe to close mid-read; wait for the loop to exit.
	<-done
	return dev.Close()
}

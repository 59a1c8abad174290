// Package session holds the captured image and dispatches user actions.
//
// All state lives on a single goroutine. Public methods post a closure to
// it and wait; recognition runs on short-lived goroutines and only its
// result is handed back. At most one captured image exists at a time.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/snapsearch/internal/capture"
	"github.com/ironsheep/snapsearch/internal/detection"
	"github.com/ironsheep/snapsearch/internal/imaging"
	"github.com/ironsheep/snapsearch/internal/log"
	"github.com/ironsheep/snapsearch/internal/ocr"
	"github.com/ironsheep/snapsearch/internal/search"
)

// State is the displayed-state of the session.
type State string

// Session states.
const (
	Previewing State = "previewing"
	Captured   State = "captured"
	Cropping   State = "cropping"
)

// Origin records where a captured image came from.
type Origin string

// Image origins.
const (
	OriginCamera  Origin = "camera"
	OriginLibrary Origin = "library"
	OriginCrop    Origin = "crop"
)

// FrameSource provides live camera frames.
type FrameSource interface {
	Latest() image.Image
	Focus(x, y float64) error
	Stats() capture.Stats
}

// Options wires a Session to its collaborators. Only Recognizer is required.
type Options struct {
	Source     FrameSource
	Recognizer ocr.Recognizer
	Launcher   search.Launcher
	Authorizer capture.Authorizer

	// StartErr is the error returned when the frame source was started, if
	// any. Captures report it instead of a generic missing-frame error.
	StartErr error

	// DarkThreshold is the mean lightness (0..1) under which a captured
	// frame raises a notice. Zero disables the check.
	DarkThreshold float64
}

// CaptureInfo describes the current captured image.
type CaptureInfo struct {
	ID     string    `json:"id"`
	Origin Origin    `json:"origin"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	At     time.Time `json:"at"`
	Lines  []string  `json:"lines,omitempty"`
}

// CropRequest hands the current image to a crop surface.
type CropRequest struct {
	ID        string `json:"id"`
	CaptureID string `json:"capture_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	// Suggested frames the text found in Image, if any.
	Suggested *detection.Bounds `json:"suggested,omitempty"`
	Image     image.Image       `json:"-"`
}

// SearchResult is the outcome of a successful search.
type SearchResult struct {
	Lines []string `json:"lines"`
	Query string   `json:"query"`
	URL   string   `json:"url"`
}

// Status is a point-in-time summary of the session.
type Status struct {
	State         State              `json:"state"`
	Capture       *CaptureInfo       `json:"capture,omitempty"`
	PendingCrop   string             `json:"pending_crop,omitempty"`
	Authorization capture.AuthStatus `json:"authorization"`
	Camera        capture.Stats      `json:"camera"`
	CameraError   string             `json:"camera_error,omitempty"`
}

type stored struct {
	info CaptureInfo
	img  image.Image
}

// Session is the capture store and action dispatcher.
type Session struct {
	opts   Options
	logger *zap.SugaredLogger

	actions   chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the loop goroutine.
	state       State
	current     *stored
	pendingCrop string

	hmu      sync.Mutex
	handlers map[EventKind][]func(Event)
}

// New creates a session and starts its goroutine. If camera authorization
// has not been determined yet, a single request is issued in the background.
func New(opts Options) *Session {
	s := &Session{
		opts:     opts,
		logger:   log.Named("session"),
		actions:  make(chan func()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    Previewing,
		handlers: make(map[EventKind][]func(Event)),
	}

	if a := opts.Authorizer; a != nil && a.Status() == capture.NotDetermined {
		a.RequestAccess(func(granted bool) {
			s.logger.Infow("camera authorization resolved", "granted", granted, "status", a.Status())
		})
	}

	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.actions:
			fn()
		case <-s.quit:
			return
		}
	}
}

// do runs fn on the session goroutine and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case s.actions <- func() { fn(); close(finished) }:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the session goroutine. Pending calls return ErrClosed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
	return nil
}

// recognize runs the recognizer off the session goroutine.
func (s *Session) recognize(ctx context.Context, img image.Image) []string {
	if img == nil || s.opts.Recognizer == nil {
		return nil
	}

	result := make(chan []string, 1)
	go func() {
		result <- s.opts.Recognizer.Recognize(ctx, img)
	}()

	select {
	case lines := <-result:
		return lines
	case <-ctx.Done():
		return nil
	}
}

// Capture freezes the latest camera frame into the store, displays it and
// recognizes its text. The recognized lines are logged and returned. If ctx
// ends during recognition the frame stays captured and ctx.Err() is returned.
func (s *Session) Capture(ctx context.Context) (CaptureInfo, error) {
	var (
		info CaptureInfo
		img  image.Image
		err  error
	)
	if derr := s.do(ctx, func() { info, img, err = s.capture() }); derr != nil {
		return CaptureInfo{}, derr
	}
	if err != nil {
		return CaptureInfo{}, err
	}

	lines := s.recognize(ctx, img)
	if err := ctx.Err(); err != nil {
		// The frame stays stored; only its recognition was abandoned.
		return CaptureInfo{}, err
	}
	s.logger.Infow("capture recognized", "id", info.ID, "lines", lines)

	// The image may have been replaced while recognition ran; only annotate
	// the capture it came from.
	_ = s.do(ctx, func() {
		if s.current != nil && s.current.info.ID == info.ID {
			s.current.info.Lines = lines
		}
	})

	info.Lines = lines
	return info, nil
}

func (s *Session) capture() (CaptureInfo, image.Image, error) {
	var frame image.Image
	if s.opts.Source != nil {
		frame = s.opts.Source.Latest()
	}
	if frame == nil {
		return CaptureInfo{}, nil, s.notice("capture", s.noFrameErr())
	}

	info := s.store(frame, OriginCamera)
	s.emit(Event{Kind: EventCaptured, Capture: &info})

	if t := s.opts.DarkThreshold; t > 0 {
		if l := imaging.MeanLightness(frame); l < t {
			s.logger.Infow("captured frame is dark", "lightness", l, "threshold", t)
			s.emit(Event{Kind: EventNotice, Error: "dark-frame", Message: "the scene is too dark to read reliably"})
		}
	}
	return info, frame, nil
}

// store replaces the current image, abandoning any pending crop.
func (s *Session) store(img image.Image, origin Origin) CaptureInfo {
	if s.pendingCrop != "" {
		s.logger.Debugw("pending crop abandoned", "crop", s.pendingCrop)
		s.pendingCrop = ""
	}

	b := img.Bounds()
	info := CaptureInfo{
		ID:     uuid.NewString(),
		Origin: origin,
		Width:  b.Dx(),
		Height: b.Dy(),
		At:     time.Now(),
	}
	s.current = &stored{info: info, img: img}
	s.state = Captured
	s.logger.Infow("image stored", "id", info.ID, "origin", origin, "width", info.Width, "height", info.Height)
	return info
}

func (s *Session) noFrameErr() error {
	if a := s.opts.Authorizer; a != nil {
		switch a.Status() {
		case capture.Denied, capture.Restricted:
			return ErrPermissionDenied
		}
	}
	if err := s.opts.StartErr; err != nil {
		if errors.Is(err, ErrDeviceUnavailable) || errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return ErrNoFrame
}

// Open decodes a still image and places it in the store as if it had been
// captured.
func (s *Session) Open(ctx context.Context, r io.Reader) (CaptureInfo, error) {
	img, _, err := imaging.Decode(r)
	return s.open(ctx, img, err)
}

// OpenFile is Open for an image on disk.
func (s *Session) OpenFile(ctx context.Context, path string) (CaptureInfo, error) {
	img, _, err := imaging.Load(path)
	return s.open(ctx, img, err)
}

func (s *Session) open(ctx context.Context, img image.Image, decodeErr error) (CaptureInfo, error) {
	var (
		info CaptureInfo
		err  error
	)
	derr := s.do(ctx, func() {
		if decodeErr != nil {
			err = s.notice("open", fmt.Errorf("%w: %v", ErrDecode, decodeErr))
			return
		}
		info = s.store(img, OriginLibrary)
		s.emit(Event{Kind: EventCaptured, Capture: &info})
	})
	if derr != nil {
		return CaptureInfo{}, derr
	}
	return info, err
}

// BeginCrop hands the current image to a crop surface. A crop already in
// progress is superseded.
func (s *Session) BeginCrop(ctx context.Context) (CropRequest, error) {
	var (
		req CropRequest
		err error
	)
	derr := s.do(ctx, func() {
		if s.current == nil {
			err = s.notice("crop", ErrNoCapture)
			return
		}
		s.pendingCrop = uuid.NewString()
		s.state = Cropping
		req = CropRequest{
			ID:        s.pendingCrop,
			CaptureID: s.current.info.ID,
			Width:     s.current.info.Width,
			Height:    s.current.info.Height,
			Image:     s.current.img,
		}
	})
	if derr != nil {
		return CropRequest{}, derr
	}
	if err != nil {
		return req, err
	}
	if r, ok := detection.Suggest(req.Image, detection.DefaultMinConfidence); ok {
		b := detection.FromRect(r)
		req.Suggested = &b
	}
	return req, nil
}

// CompleteCrop replaces the current image with rect of it after rotating it
// clockwise by angle degrees. rect is in rotated coordinates.
func (s *Session) CompleteCrop(ctx context.Context, id string, rect image.Rectangle, angle float64) (CaptureInfo, error) {
	var (
		info CaptureInfo
		err  error
	)
	derr := s.do(ctx, func() {
		if s.state != Cropping || id != s.pendingCrop {
			err = s.notice("crop", ErrStaleCrop)
			return
		}

		cropped, cerr := imaging.Crop(s.current.img, rect, angle)
		if cerr != nil {
			err = s.notice("crop", fmt.Errorf("%w: %v", ErrInvalidCrop, cerr))
			return
		}

		info = s.store(cropped, OriginCrop)
		s.emit(Event{Kind: EventCropped, Capture: &info})
	})
	if derr != nil {
		return CaptureInfo{}, derr
	}
	return info, err
}

// CancelCrop leaves the crop surface without changing the image.
func (s *Session) CancelCrop(ctx context.Context, id string) error {
	var err error
	derr := s.do(ctx, func() {
		if s.state != Cropping || id != s.pendingCrop {
			err = s.notice("crop", ErrStaleCrop)
			return
		}
		s.pendingCrop = ""
		s.state = Captured
	})
	if derr != nil {
		return derr
	}
	return err
}

// Search recognizes the displayed image, builds the search URL from the
// joined lines and opens it once. In the previewing state nothing is
// displayed, so nothing is recognized and nothing is opened.
func (s *Session) Search(ctx context.Context) (SearchResult, error) {
	var (
		img image.Image
		id  string
	)
	if err := s.do(ctx, func() {
		if s.current != nil {
			img, id = s.current.img, s.current.info.ID
		}
	}); err != nil {
		return SearchResult{}, err
	}

	lines := s.recognize(ctx, img)
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}

	var (
		res SearchResult
		err error
	)
	if derr := s.do(ctx, func() { res, err = s.completeSearch(id, lines) }); derr != nil {
		return SearchResult{}, derr
	}
	if err != nil {
		return SearchResult{}, err
	}

	if s.opts.Launcher == nil {
		s.logger.Infow("no launcher configured", "url", res.URL)
		return res, nil
	}
	if lerr := s.opts.Launcher.Open(ctx, res.URL); lerr != nil {
		s.logger.Warnw("failed to open search", "url", res.URL, "error", lerr)
	}
	return res, nil
}

func (s *Session) completeSearch(id string, lines []string) (SearchResult, error) {
	if id != "" && (s.current == nil || s.current.info.ID != id) {
		return SearchResult{}, s.notice("search", ErrNoCapture)
	}

	query := ocr.Join(lines)
	target, err := search.BuildURL(query)
	if errors.Is(err, search.ErrEmptyQuery) {
		return SearchResult{}, s.notice("search", ErrRecognitionEmpty)
	}
	if err != nil {
		return SearchResult{}, s.notice("search", err)
	}

	res := SearchResult{Lines: lines, Query: query, URL: target}
	s.logger.Infow("search ready", "query", query, "url", target)
	s.emit(Event{Kind: EventSearched, Lines: lines, URL: target})
	return res, nil
}

// Clear discards the captured image and returns to the live preview.
func (s *Session) Clear(ctx context.Context) error {
	return s.do(ctx, func() {
		s.current = nil
		s.pendingCrop = ""
		s.state = Previewing
		s.emit(Event{Kind: EventCleared})
	})
}

// Focus maps a tap at tap in a preview of size view, which shows the live
// frame aspect-filled, to frame coordinates and asks the camera to focus
// there. Focus failures are logged and not returned.
func (s *Session) Focus(ctx context.Context, tap, view image.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.opts.Source == nil {
		s.logger.Debugw("focus ignored: no camera")
		return nil
	}

	frame := s.opts.Source.Latest()
	if frame == nil {
		s.logger.Debugw("focus ignored: no frame yet")
		return nil
	}

	x, y, ok := imaging.FillPoint(tap, view, frame.Bounds().Size())
	if !ok {
		s.logger.Debugw("focus ignored: point outside preview", "tap", tap, "view", view)
		return nil
	}
	if err := s.opts.Source.Focus(x, y); err != nil {
		s.logger.Warnw("focus failed", "x", x, "y", y, "error", err)
	}
	return nil
}

// Image returns the displayed image.
func (s *Session) Image(ctx context.Context) (image.Image, CaptureInfo, error) {
	var cur *stored
	if err := s.do(ctx, func() { cur = s.current }); err != nil {
		return nil, CaptureInfo{}, err
	}
	if cur == nil {
		return nil, CaptureInfo{}, ErrNoCapture
	}
	return cur.img, cur.info, nil
}

// Status reports the session state together with camera health.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := s.do(ctx, func() {
		st.State = s.state
		st.PendingCrop = s.pendingCrop
		if s.current != nil {
			info := s.current.info
			st.Capture = &info
		}
	}); err != nil {
		return Status{}, err
	}

	st.Authorization = capture.Authorized
	if a := s.opts.Authorizer; a != nil {
		st.Authorization = a.Status()
	}
	if s.opts.Source != nil {
		st.Camera = s.opts.Source.Stats()
	}
	if s.opts.StartErr != nil {
		st.CameraError = s.opts.StartErr.Error()
	}
	return st, nil
}

// Package web serves the live preview and the session actions over HTTP.
//
// The preview is a websocket stream of JPEG frames, aspect-filled to the
// configured view size. Session events are pushed as JSON on a second
// websocket. Actions are plain JSON endpoints under /api.
package web

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/snapsearch/internal/imaging"
	"github.com/ironsheep/snapsearch/internal/log"
	"github.com/ironsheep/snapsearch/internal/session"
)

// Options configures the preview surface.
type Options struct {
	Listen        string
	PreviewWidth  int
	PreviewHeight int
	PreviewFPS    int
	JPEGQuality   int
}

// Frames provides the live frames shown in the preview.
type Frames interface {
	Latest() image.Image
}

// Server is the HTTP control surface.
type Server struct {
	app    *fiber.App
	sess   *session.Session
	frames Frames
	opts   Options
	logger *zap.SugaredLogger

	preview *hub
	events  *hub

	// ctx is cancelled on shutdown so websocket handlers return.
	ctx    context.Context
	cancel context.CancelFunc
}

// New builds the server. frames may be nil when no camera is attached.
func New(sess *session.Session, frames Frames, opts Options) *Server {
	if opts.PreviewFPS <= 0 {
		opts.PreviewFPS = 10
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 80
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := log.Named("web")
	s := &Server{
		sess:    sess,
		frames:  frames,
		opts:    opts,
		logger:  logger,
		preview: newHub("preview", logger),
		events:  newHub("events", logger),
		ctx:     ctx,
		cancel:  cancel,
	}

	app := fiber.New(fiber.Config{
		AppName:               "snapsearch",
		DisableStartupMessage: true,
		BodyLimit:             int(imaging.MaxStillBytes),
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/capture", s.handleCapture)
	api.Post("/crop", s.handleBeginCrop)
	api.Post("/crop/:id", s.handleCompleteCrop)
	api.Delete("/crop/:id", s.handleCancelCrop)
	api.Post("/search", s.handleSearch)
	api.Post("/clear", s.handleClear)
	api.Post("/focus", s.handleFocus)
	api.Post("/open", s.handleOpen)
	api.Get("/image", s.handleImage)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/preview", websocket.New(func(c *websocket.Conn) { s.preview.serve(s.ctx, c) }))
	app.Get("/ws/events", websocket.New(func(c *websocket.Conn) { s.events.serve(s.ctx, c) }))

	sess.OnAny(func(ev session.Event) {
		if err := s.events.publishJSON(ev); err != nil {
			s.logger.Warnw("failed to encode event", "kind", ev.Kind, "error", err)
		}
	})

	s.app = app
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.preview.run(s.ctx)
	go s.events.run(s.ctx)
	go s.streamPreview(s.ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("listening", "addr", s.opts.Listen)
		errCh <- s.app.Listen(s.opts.Listen)
	}()

	select {
	case err := <-errCh:
		s.cancel()
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops the hubs and the listener.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// streamPreview encodes the latest frame at the preview rate while anyone
// is watching. Unchanged frames are not resent.
func (s *Server) streamPreview(ctx context.Context) {
	if s.frames == nil {
		return
	}

	ticker := time.NewTicker(time.Second / time.Duration(s.opts.PreviewFPS))
	defer ticker.Stop()

	var last image.Image
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if s.preview.clientCount() == 0 {
			continue
		}
		frame := s.frames.Latest()
		if frame == nil || frame == last {
			continue
		}
		last = frame

		data, err := s.previewJPEG(frame)
		if err != nil {
			s.logger.Debugw("preview encode failed", "error", err)
			continue
		}
		s.preview.publishBinary(data)
	}
}

func (s *Server) previewJPEG(frame image.Image) ([]byte, error) {
	if s.opts.PreviewWidth > 0 && s.opts.PreviewHeight > 0 {
		frame = imaging.AspectFill(frame, s.opts.PreviewWidth, s.opts.PreviewHeight)
	}
	return imaging.EncodeJPEG(frame, s.opts.JPEGQuality)
}

// statusFor maps session failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrPermissionDenied):
		return fiber.StatusForbidden
	case errors.Is(err, session.ErrDeviceUnavailable),
		errors.Is(err, session.ErrNoFrame),
		errors.Is(err, session.ErrClosed):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, session.ErrNoCapture),
		errors.Is(err, session.ErrStaleCrop):
		return fiber.StatusConflict
	case errors.Is(err, session.ErrDecode),
		errors.Is(err, session.ErrInvalidCrop):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrRecognitionEmpty),
		errors.Is(err, session.ErrEncoding),
		errors.Is(err, session.ErrInvalidURL):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

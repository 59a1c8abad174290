package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ironsheep/snapsearch/internal/capture"
	"github.com/ironsheep/snapsearch/internal/capture/webcam"
	"github.com/ironsheep/snapsearch/internal/config"
	"github.com/ironsheep/snapsearch/internal/log"
	"github.com/ironsheep/snapsearch/internal/ocr"
	"github.com/ironsheep/snapsearch/internal/search"
	"github.com/ironsheep/snapsearch/internal/server"
	"github.com/ironsheep/snapsearch/internal/session"
	"github.com/ironsheep/snapsearch/internal/web"
)

const defaultFrameWait = 5 * time.Second

// runtime is the wired pipeline shared by all commands.
type runtime struct {
	cfg        config.Config
	logger     *zap.SugaredLogger
	source     *capture.Source
	recognizer *ocr.Tesseract
	sess       *session.Session
}

// openRuntime authorizes and starts the camera (unless withCamera is false)
// and builds the session around it. A camera that cannot be started is not
// fatal: the session reports it on capture.
func openRuntime(ctx context.Context, cfg config.Config, withCamera bool) *runtime {
	rt := &runtime{cfg: cfg, logger: log.Named("main")}

	var (
		auth     capture.Authorizer = capture.StaticAuthorizer(capture.Authorized)
		startErr error
	)
	if withCamera {
		devAuth := capture.NewDeviceAuthorizer(cfg.DevicePath)
		auth = devAuth

		switch status := capture.Authorize(devAuth); status {
		case capture.Authorized:
			res := cfg.Resolution()
			rt.source = capture.NewSource(
				webcam.Opener(webcam.Config{DeviceID: cfg.Device, Width: res.Width, Height: res.Height}),
				capture.Options{Portrait: cfg.Orientation == config.OrientationPortrait},
			)
			if err := rt.source.Start(ctx); err != nil {
				rt.logger.Warnw("camera unavailable", "device", cfg.Device, "error", err)
				startErr = err
			}
		default:
			rt.logger.Warnw("camera access not authorized", "path", cfg.DevicePath, "status", status)
			startErr = capture.ErrPermissionDenied
		}
	}

	rt.recognizer = ocr.NewTesseract(ocr.Options{
		Language:     cfg.Language,
		TessdataPath: cfg.TessdataPath,
		Preprocess:   cfg.Preprocess,
	})

	var launcher search.Launcher = search.BrowserLauncher{}
	if cfg.NoBrowser {
		launcher = search.LauncherFunc(func(_ context.Context, target string) error {
			rt.logger.Infow("search url", "url", target)
			return nil
		})
	}

	opts := session.Options{
		Recognizer:    rt.recognizer,
		Launcher:      launcher,
		Authorizer:    auth,
		StartErr:      startErr,
		DarkThreshold: cfg.DarkThreshold,
	}
	if rt.source != nil {
		opts.Source = rt.source
	}
	rt.sess = session.New(opts)
	return rt
}

// frames returns the live frame provider, or nil without a camera.
func (rt *runtime) frames() web.Frames {
	if rt.source == nil {
		return nil
	}
	return rt.source
}

func (rt *runtime) Close() error {
	err := rt.sess.Close()
	if rt.source != nil {
		err = multierr.Append(err, rt.source.Close())
	}
	return err
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func serveAction(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(c)
	defer stop()

	rt := openRuntime(ctx, cfg, !c.Bool(flagNoCamera))
	defer rt.Close()

	srv := web.New(rt.sess, rt.frames(), web.Options{
		Listen:        cfg.Listen,
		PreviewWidth:  cfg.PreviewWidth,
		PreviewHeight: cfg.PreviewHeight,
		PreviewFPS:    cfg.PreviewFPS,
		JPEGQuality:   cfg.JPEGQuality,
	})
	rt.logger.Infow("snapsearch serving", "version", Version, "url", "http://"+cfg.Listen)
	return srv.Run(ctx)
}

func mcpAction(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(c)
	defer stop()

	rt := openRuntime(ctx, cfg, !c.Bool(flagNoCamera))
	defer rt.Close()

	rt.logger.Debugw("MCP server starting", "version", Version, "built", BuildTime, "commit", GitCommit)
	srv := server.New(rt.sess, server.Options{Version: Version, Engine: rt.recognizer})
	return srv.Run(ctx, os.Stdin, os.Stdout)
}

func scanAction(c *cli.Context) error {
	cfg, err := configFromContext(c)
	if err != nil {
		return err
	}
	ctx, stop := signalContext(c)
	defer stop()

	path := c.String(flagImage)
	rt := openRuntime(ctx, cfg, path == "" && !c.Bool(flagNoCamera))
	defer rt.Close()

	var lines []string
	if path != "" {
		if _, err := rt.sess.OpenFile(ctx, path); err != nil {
			return err
		}
	} else {
		if err := waitForFrame(ctx, rt.source, c.Duration(flagWait)); err != nil {
			return err
		}
		info, err := rt.sess.Capture(ctx)
		if err != nil {
			return err
		}
		lines = info.Lines
	}

	if c.Bool(flagOpen) {
		res, err := rt.sess.Search(ctx)
		if err != nil {
			return err
		}
		printResult(c, res.Lines, res.URL)
		return nil
	}

	if path != "" {
		img, _, err := rt.sess.Image(ctx)
		if err != nil {
			return err
		}
		lines = rt.recognizer.Recognize(ctx, img)
	}
	if len(lines) == 0 {
		return session.ErrRecognitionEmpty
	}
	target, err := search.BuildURL(ocr.Join(lines))
	if err != nil {
		return err
	}
	printResult(c, lines, target)
	return nil
}

// waitForFrame blocks until the source has delivered a frame.
func waitForFrame(ctx context.Context, src *capture.Source, timeout time.Duration) error {
	if src == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for src.Latest() == nil {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// Let Capture report why there is no frame.
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func printResult(c *cli.Context, lines []string, target string) {
	w := c.App.Writer
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, target)
}

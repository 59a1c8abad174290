package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ironsheep/snapsearch/internal/config"
	"github.com/ironsheep/snapsearch/internal/log"
)

const (
	// Global flags.
	flagDevice        = "device"
	flagDevicePath    = "device-path"
	flagPreset        = "preset"
	flagOrientation   = "orientation"
	flagNoCamera      = "no-camera"
	flagLanguage      = "language"
	flagTessdata      = "tessdata"
	flagNoPreprocess  = "no-preprocess"
	flagDarkThreshold = "dark-threshold"
	flagNoBrowser     = "no-browser"
	flagLogLevel      = "log-level"
	flagLogFormat     = "log-format"

	// serve flags.
	flagListen        = "listen"
	flagPreviewWidth  = "preview-width"
	flagPreviewHeight = "preview-height"
	flagPreviewFPS    = "preview-fps"
	flagJPEGQuality   = "jpeg-quality"

	// scan flags.
	flagImage = "image"
	flagOpen  = "open"
	flagWait  = "wait"
)

func env(name string) []string {
	return []string{"SNAPSEARCH_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))}
}

func newApp() *cli.App {
	def := config.Default()

	return &cli.App{
		Name:    "snapsearch",
		Usage:   "capture text with a camera and search the web for it",
		Version: fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit),
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    flagDevice,
				Value:   def.Device,
				Usage:   "camera index",
				EnvVars: env(flagDevice),
			},
			&cli.StringFlag{
				Name:    flagDevicePath,
				Value:   def.DevicePath,
				Usage:   "device node checked for camera authorization",
				EnvVars: env(flagDevicePath),
			},
			&cli.StringFlag{
				Name:    flagPreset,
				Value:   def.Preset,
				Usage:   "capture preset: photo, high, medium or low",
				EnvVars: env(flagPreset),
			},
			&cli.StringFlag{
				Name:    flagOrientation,
				Value:   def.Orientation,
				Usage:   "frame orientation: portrait or landscape",
				EnvVars: env(flagOrientation),
			},
			&cli.BoolFlag{
				Name:    flagNoCamera,
				Usage:   "run without opening a camera; images come from files only",
				EnvVars: env(flagNoCamera),
			},
			&cli.StringFlag{
				Name:    flagLanguage,
				Value:   def.Language,
				Usage:   "tesseract language, e.g. eng or eng+deu",
				EnvVars: env(flagLanguage),
			},
			&cli.StringFlag{
				Name:    flagTessdata,
				Usage:   "directory containing *.traineddata",
				EnvVars: append(env(flagTessdata), "TESSDATA_PREFIX"),
			},
			&cli.BoolFlag{
				Name:    flagNoPreprocess,
				Usage:   "recognize frames as captured, without grayscale and contrast",
				EnvVars: env(flagNoPreprocess),
			},
			&cli.Float64Flag{
				Name:    flagDarkThreshold,
				Value:   def.DarkThreshold,
				Usage:   "lightness (0-1) under which a capture raises a notice; 0 disables",
				EnvVars: env(flagDarkThreshold),
			},
			&cli.BoolFlag{
				Name:    flagNoBrowser,
				Usage:   "log search URLs instead of opening them",
				EnvVars: env(flagNoBrowser),
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Value:   def.LogLevel,
				Usage:   "debug, info, warn or error",
				EnvVars: env(flagLogLevel),
			},
			&cli.StringFlag{
				Name:    flagLogFormat,
				Value:   def.LogFormat,
				Usage:   "console or json",
				EnvVars: env(flagLogFormat),
			},
		},
		Before: func(c *cli.Context) error {
			log.Init(c.String(flagLogLevel), c.String(flagLogFormat))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the live preview and actions over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagListen,
						Value:   def.Listen,
						Usage:   "listen address",
						EnvVars: env(flagListen),
					},
					&cli.IntFlag{
						Name:    flagPreviewWidth,
						Value:   def.PreviewWidth,
						Usage:   "preview width in pixels",
						EnvVars: env(flagPreviewWidth),
					},
					&cli.IntFlag{
						Name:    flagPreviewHeight,
						Value:   def.PreviewHeight,
						Usage:   "preview height in pixels",
						EnvVars: env(flagPreviewHeight),
					},
					&cli.IntFlag{
						Name:    flagPreviewFPS,
						Value:   def.PreviewFPS,
						Usage:   "preview frames per second",
						EnvVars: env(flagPreviewFPS),
					},
					&cli.IntFlag{
						Name:    flagJPEGQuality,
						Value:   def.JPEGQuality,
						Usage:   "JPEG quality for preview and image endpoints (1-100)",
						EnvVars: env(flagJPEGQuality),
					},
				},
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "serve the session as MCP tools over stdin/stdout",
				Action: mcpAction,
			},
			{
				Name:      "scan",
				Usage:     "capture once, print the recognized text and its search URL",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagImage,
						Usage: "recognize this image file instead of a camera frame",
					},
					&cli.BoolFlag{
						Name:  flagOpen,
						Usage: "open the search in the browser",
					},
					&cli.DurationFlag{
						Name:  flagWait,
						Value: defaultFrameWait,
						Usage: "how long to wait for the first camera frame",
					},
				},
				Action: scanAction,
			},
		},
	}
}

// configFromContext builds and validates the configuration from flags.
// Command-specific flags that are not defined keep their defaults.
func configFromContext(c *cli.Context) (config.Config, error) {
	cfg := config.Default()

	cfg.Device = c.Int(flagDevice)
	cfg.DevicePath = c.String(flagDevicePath)
	cfg.Preset = c.String(flagPreset)
	cfg.Orientation = c.String(flagOrientation)
	cfg.Language = c.String(flagLanguage)
	cfg.TessdataPath = c.String(flagTessdata)
	cfg.Preprocess = !c.Bool(flagNoPreprocess)
	cfg.DarkThreshold = c.Float64(flagDarkThreshold)
	cfg.NoBrowser = c.Bool(flagNoBrowser)
	cfg.LogLevel = c.String(flagLogLevel)
	cfg.LogFormat = c.String(flagLogFormat)

	if v := c.String(flagListen); v != "" {
		cfg.Listen = v
	}
	if v := c.Int(flagPreviewWidth); v != 0 {
		cfg.PreviewWidth = v
	}
	if v := c.Int(flagPreviewHeight); v != 0 {
		cfg.PreviewHeight = v
	}
	if v := c.Int(flagPreviewFPS); v != 0 {
		cfg.PreviewFPS = v
	}
	if v := c.Int(flagJPEGQuality); v != 0 {
		cfg.JPEGQuality = v
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

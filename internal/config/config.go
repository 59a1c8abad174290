// Package config holds runtime configuration for snapsearch commands.
package config

import (
	"fmt"
	"strings"
)

// Camera presets trade resolution for throughput.
const (
	PresetPhoto  = "photo"
	PresetHigh   = "high"
	PresetMedium = "medium"
	PresetLow    = "low"
)

// Frame orientations.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Defaults used when a flag or environment variable is not set.
const (
	DefaultListen        = "127.0.0.1:8787"
	DefaultLanguage      = "eng"
	DefaultPreviewWidth  = 360
	DefaultPreviewHeight = 640
	DefaultPreviewFPS    = 10
	DefaultJPEGQuality   = 80
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var presets = map[string]Resolution{
	PresetPhoto:  {Width: 1920, Height: 1080},
	PresetHigh:   {Width: 1280, Height: 720},
	PresetMedium: {Width: 640, Height: 480},
	PresetLow:    {Width: 320, Height: 240},
}

// PresetResolution returns the capture resolution for a preset name.
func PresetResolution(name string) (Resolution, bool) {
	r, ok := presets[strings.ToLower(name)]
	return r, ok
}

// Config is the full set of options shared by the serve, mcp and scan commands.
type Config struct {
	// Camera
	Device      int    `json:"device"`
	DevicePath  string `json:"device_path"` // device node checked for authorization
	Preset      string `json:"preset"`
	Orientation string `json:"orientation"`

	// Recognition
	Language      string  `json:"language"`
	TessdataPath  string  `json:"tessdata_path,omitempty"`
	Preprocess    bool    `json:"preprocess"`
	DarkThreshold float64 `json:"dark_threshold"` // L* below which a frame counts as too dark

	// Preview surface
	Listen        string `json:"listen"`
	PreviewWidth  int    `json:"preview_width"`
	PreviewHeight int    `json:"preview_height"`
	PreviewFPS    int    `json:"preview_fps"`
	JPEGQuality   int    `json:"jpeg_quality"`

	// Ambient
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	NoBrowser bool   `json:"no_browser"` // log search URLs instead of opening them
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Device:        0,
		DevicePath:    "/dev/video0",
		Preset:        PresetPhoto,
		Orientation:   OrientationPortrait,
		Language:      DefaultLanguage,
		Preprocess:    true,
		DarkThreshold: 0.08,
		Listen:        DefaultListen,
		PreviewWidth:  DefaultPreviewWidth,
		PreviewHeight: DefaultPreviewHeight,
		PreviewFPS:    DefaultPreviewFPS,
		JPEGQuality:   DefaultJPEGQuality,
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// Resolution returns the capture resolution for the configured preset.
func (c *Config) Resolution() Resolution {
	if r, ok := PresetResolution(c.Preset); ok {
		return r
	}
	return presets[PresetPhoto]
}

// Validate checks that values are within range.
// Returns a list of problems, or nil if the config is usable.
func (c *Config) Validate() []string {
	var problems []string

	if c.Device < 0 {
		problems = append(problems, "device must be >= 0")
	}
	if _, ok := PresetResolution(c.Preset); !ok {
		problems = append(problems, fmt.Sprintf("preset must be one of photo, high, medium, low (got %q)", c.Preset))
	}
	switch c.Orientation {
	case OrientationPortrait, OrientationLandscape:
	default:
		problems = append(problems, fmt.Sprintf("orientation must be portrait or landscape (got %q)", c.Orientation))
	}
	if c.Language == "" {
		problems = append(problems, "language must not be empty")
	}
	if c.DarkThreshold < 0 || c.DarkThreshold > 1 {
		problems = append(problems, "dark_threshold must be between 0 and 1")
	}
	if c.PreviewWidth < 16 || c.PreviewHeight < 16 {
		problems = append(problems, "preview size must be at least 16x16")
	}
	if c.PreviewFPS < 1 || c.PreviewFPS > 60 {
		problems = append(problems, "preview_fps must be between 1 and 60")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		problems = append(problems, "jpeg_quality must be between 1 and 100")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		problems = append(problems, "log_format must be console or json")
	}

	return problems
}

package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/snapsearch/internal/imaging"
	"github.com/ironsheep/snapsearch/internal/log"
)

// Recognizer transcribes the text regions of a still image.
//
// Implementations return one string per detected region in detection order,
// and an empty result when nothing can be recognized. They never fail past
// the caller.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) []string
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, img image.Image) []string

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) []string {
	return f(ctx, img)
}

// Join builds a search query from recognized lines.
func Join(lines []string) string {
	return strings.Join(lines, " ")
}

// Options configures a Tesseract recognizer.
type Options struct {
	// Language is a Tesseract language code such as "eng". The language data
	// must be installed.
	Language string

	// TessdataPath overrides the directory containing *.traineddata files.
	// Empty uses the Tesseract default (TESSDATA_PREFIX or the system path).
	TessdataPath string

	// Preprocess converts frames to high-contrast grayscale first.
	Preprocess bool
}

// Tesseract recognizes text with the Tesseract engine via gosseract.
//
// A new engine client is created per call; gosseract clients are not safe
// for concurrent use and recognition calls may overlap.
type Tesseract struct {
	opts   Options
	logger *zap.SugaredLogger
}

// NewTesseract creates a recognizer. Language defaults to "eng".
func NewTesseract(opts Options) *Tesseract {
	if opts.Language == "" {
		opts.Language = "eng"
	}
	return &Tesseract{
		opts:   opts,
		logger: log.Named("ocr"),
	}
}

// Recognize returns the recognized text lines of img.
//
// Failures (nil image, encoding error, engine error) are logged and yield
// an empty result.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) []string {
	if img == nil || img.Bounds().Empty() {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	if t.opts.Preprocess {
		img = imaging.PrepareForOCR(img)
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.logger.Warnw("cannot encode image for recognition", "error", err)
		return nil
	}

	lines, err := t.Lines(data)
	if err != nil {
		t.logger.Warnw("text recognition failed", "error", err)
		return nil
	}
	return lines
}

// Lines runs recognition on an encoded image and returns the text of each
// detected line, top candidate only, in engine order. No confidence
// threshold is applied; blank lines are dropped.
func (t *Tesseract) Lines(encoded []byte) ([]string, error) {
	client, err := t.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(encoded); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	lines := make([]string, 0, len(boxes))
	for _, box := range boxes {
		text := strings.Join(strings.Fields(box.Word), " ")
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return lines, nil
}

func (t *Tesseract) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if t.opts.TessdataPath != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPath); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(t.opts.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	return client, nil
}

// OCRInfo contains information about the OCR subsystem.
type OCRInfo struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Error        string `json:"error,omitempty"`
	Backend      string `json:"backend"`
	Language     string `json:"language"`
	TessdataPath string `json:"tessdata_path,omitempty"`
}

// Info reports whether the engine can be initialized with the configured
// language and tessdata path.
func (t *Tesseract) Info() OCRInfo {
	info := OCRInfo{
		Backend:      "gosseract",
		Language:     t.opts.Language,
		TessdataPath: t.opts.TessdataPath,
	}

	client, err := t.newClient()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer client.Close()

	// The engine initializes lazily; recognizing a blank sample forces it to
	// load the language data.
	sample, err := imaging.EncodePNG(image.NewGray(image.Rect(0, 0, 8, 8)))
	if err == nil {
		err = client.SetImageFromBytes(sample)
	}
	if err == nil {
		_, err = client.Text()
	}
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.Version = client.Version()
	info.Available = true
	return info
}

package session

import (
	"errors"

	"github.com/ironsheep/snapsearch/internal/capture"
	"github.com/ironsheep/snapsearch/internal/search"
)

// Failure kinds. Each aborts the current action and leaves the session
// state as it was.
var (
	ErrPermissionDenied  = capture.ErrPermissionDenied
	ErrDeviceUnavailable = capture.ErrDeviceUnavailable
	ErrDecode            = errors.New("image could not be decoded")
	ErrRecognitionEmpty  = errors.New("no text recognized")
	ErrEncoding          = search.ErrEncoding
	ErrInvalidURL        = search.ErrInvalidURL

	ErrNoFrame     = errors.New("no camera frame available")
	ErrNoCapture   = errors.New("no captured image")
	ErrStaleCrop   = errors.New("crop does not match the current image")
	ErrInvalidCrop = errors.New("invalid crop")
	ErrClosed      = errors.New("session closed")
)

// Kind returns a short machine-readable name for err, used by the control
// surfaces. Unknown errors map to "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "permission-denied"
	case errors.Is(err, ErrDeviceUnavailable):
		return "device-unavailable"
	case errors.Is(err, ErrDecode):
		return "decode-failure"
	case errors.Is(err, ErrRecognitionEmpty):
		return "recognition-empty"
	case errors.Is(err, ErrEncoding):
		return "encoding-failure"
	case errors.Is(err, ErrInvalidURL):
		return "invalid-url"
	case errors.Is(err, ErrNoFrame):
		return "no-frame"
	case errors.Is(err, ErrNoCapture):
		return "no-capture"
	case errors.Is(err, ErrStaleCrop):
		return "stale-crop"
	case errors.Is(err, ErrInvalidCrop):
		return "invalid-crop"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "internal"
	}
}

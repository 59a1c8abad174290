// Package search turns recognized text into a web search destination and
// hands it to the operating system.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/pkg/browser"
)

// Endpoint is the fixed search template; the encoded query is appended.
const Endpoint = "https://www.google.com/search?q="

var (
	// ErrEmptyQuery is returned when there is no text to search for.
	ErrEmptyQuery = errors.New("empty search query")

	// ErrEncoding is returned when the text cannot be percent-encoded.
	ErrEncoding = errors.New("query cannot be encoded")

	// ErrInvalidURL is returned when the constructed string is not a usable URL.
	ErrInvalidURL = errors.New("invalid search url")
)

// Encode percent-encodes text for use as a URL query component. Spaces
// become %20 rather than '+', so the value reads the same to query
// parsers and path-style decoders alike.
//
// Text that is not valid UTF-8 cannot be represented and yields ErrEncoding.
func Encode(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrEncoding
	}
	// QueryEscape escapes a literal '+' as %2B, so any '+' left is a space.
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20"), nil
}

// BuildURL returns the search URL for text.
func BuildURL(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyQuery
	}

	encoded, err := Encode(text)
	if err != nil {
		return "", err
	}

	raw := Endpoint + encoded
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return raw, nil
}

// Query extracts the decoded query text from a search URL built by BuildURL.
func Query(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u.Query().Get("q"), nil
}

// Launcher opens a destination outside this process.
type Launcher interface {
	Open(ctx context.Context, target string) error
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, target string) error

// Open calls f.
func (f LauncherFunc) Open(ctx context.Context, target string) error {
	return f(ctx, target)
}

// BrowserLauncher opens URLs in the user's default browser.
type BrowserLauncher struct{}

// Open hands target to the platform opener (xdg-open, open, start).
// The browser is not waited on.
func (BrowserLauncher) Open(_ context.Context, target string) error {
	if err := browser.OpenURL(target); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

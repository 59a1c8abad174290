package search

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"HELLO", "https://www.google.com/search?q=HELLO"},
		{"hello world", "https://www.google.com/search?q=hello%20world"},
		{"a&b=c", "https://www.google.com/search?q=a%26b%3Dc"},
		{"1+1", "https://www.google.com/search?q=1%2B1"},
		{"50% off", "https://www.google.com/search?q=50%25%20off"},
		{"café", "https://www.google.com/search?q=caf%C3%A9"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := BuildURL(tt.text)
			if err != nil {
				t.Fatalf("BuildURL failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildURL_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		if _, err := BuildURL(text); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("BuildURL(%q): got %v, want ErrEmptyQuery", text, err)
		}
	}
}

func TestEncode_InvalidUTF8(t *testing.T) {
	if _, err := Encode("bad \xff byte"); !errors.Is(err, ErrEncoding) {
		t.Errorf("got %v, want ErrEncoding", err)
	}
	if _, err := BuildURL("bad \xff byte"); !errors.Is(err, ErrEncoding) {
		t.Errorf("BuildURL: got %v, want ErrEncoding", err)
	}
}

func TestQuery_RoundTripPrintable(t *testing.T) {
	// Every printable ASCII character, plus a few joined-line shapes.
	var printable strings.Builder
	for c := byte(0x20); c < 0x7f; c++ {
		printable.WriteByte(c)
	}

	texts := []string{
		printable.String(),
		"HELLO",
		"Exit 12 North",
		"  leading and trailing  ",
		"q=1&r=2#frag?x",
		"100% + tax / 2",
	}

	for _, text := range texts {
		raw, err := BuildURL(text)
		if err != nil {
			t.Fatalf("BuildURL(%q) failed: %v", text, err)
		}
		got, err := Query(raw)
		if err != nil {
			t.Fatalf("Query(%q) failed: %v", raw, err)
		}
		if got != text {
			t.Errorf("round trip: got %q, want %q", got, text)
		}
	}
}

func TestLauncherFunc(t *testing.T) {
	var opened []string
	l := LauncherFunc(func(_ context.Context, target string) error {
		opened = append(opened, target)
		return nil
	})
	if err := l.Open(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(opened) != 1 || opened[0] != "https://example.com" {
		t.Errorf("opened: got %v", opened)
	}
}

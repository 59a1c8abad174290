// Package ocr provides text recognition for captured frames using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). The
// pipeline only needs the text of each detected line, so the Recognizer
// contract is deliberately narrow: a still image goes in, an ordered list of
// strings comes out, and every failure collapses to "no text".
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Use Options.TessdataPath (or TESSDATA_PREFIX) when the traineddata files
// live outside the default location.
//
// # Results
//
// Recognition reads Tesseract's text-line iterator level (RIL_TEXTLINE). Each
// line contributes its top transcription only, with internal runs of
// whitespace collapsed. Results are approximate: word boundaries and line
// splits depend on the engine version and should not be relied on exactly.
//
// Join builds the search query by joining lines with single spaces.
package ocr

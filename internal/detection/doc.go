// Package detection finds areas of a frame that are likely to hold text.
//
// The detector is a heuristic, not a recognizer. It computes a Sobel edge
// map of a downscaled copy of the frame and slides windows of a few text
// line sizes over it. A window scores well when its edge density is in the
// range printed text produces and its edges run mostly horizontally:
//
//	confidence = horizontal * (1 - |density - 0.2| / 0.2)
//
// Overlapping windows are merged into regions. Suggest returns the union of
// the regions so a crop surface can open around the text instead of the full
// frame.
package detection

// Package imaging provides the bitmap operations used by the capture pipeline.
//
// All operations work with standard Go image.Image values and use a
// coordinate system where (0,0) is the top-left corner, X increases
// rightward and Y increases downward. For regions, Min is inclusive and
// Max is exclusive, as with image.Rectangle.
//
// The package covers:
//   - Decoding still images from disk or uploads (Load, Decode)
//   - Cropping with rotation for the crop surface (Crop, Rotate)
//   - Frame presentation: portrait orientation, aspect-fill preview and
//     mapping preview taps back to frame coordinates (Orient, AspectFill, FillPoint)
//   - Scene lightness for dark-frame feedback (MeanLightness)
//   - Preprocessing ahead of text recognition (PrepareForOCR)
//   - JPEG/PNG encoding for the preview and JSON surfaces
//
// Functions are stateless and safe to call concurrently on images that
// are not being mutated.
package imaging

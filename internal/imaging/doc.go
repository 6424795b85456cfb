// Package imaging provides the raster stages of the contour counting pipeline.
//
// This package implements grayscale conversion, Canny edge detection, Otsu and
// fixed binarization, square-kernel morphology, contrast/brightness
// adjustment, contour rendering and synthetic mask generation. All operations
// work with standard Go image types and use a coordinate system where (0,0) is
// at the top-left corner, X increases rightward, and Y increases downward.
//
// # Immutability
//
// Every stage returns a new raster. Inputs, including images held in an
// ImageCache, are never modified.
//
// # Binary Masks
//
// A mask is an *image.Gray where non-zero means foreground. Stages that need a
// strict two-level mask call NormalizeToBinary, which cuts rasters with more
// than two levels at 127.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently.
//
// # Error Handling
//
// Bad parameters yield *ValidationError; file problems yield *IOError, which
// unwraps to the underlying os or decode error.
package imaging

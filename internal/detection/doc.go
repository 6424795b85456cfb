// Package detection counts distinct objects in images by tracing the outer
// contours of edge-derived masks.
//
// # Algorithm Overview
//
// Detect runs a fixed pipeline over an image:
//
//  1. Grayscale: Convert with BT.601 luma weights
//  2. Edges: Canny edge detection with hysteresis thresholds
//  3. Binarize: Otsu threshold of the edge map
//  4. Close: Square-kernel closing to bridge small gaps in outlines
//  5. Contours: Outer border following (nested regions are skipped)
//  6. Filter: Keep contours whose area lies strictly inside (min, max)
//  7. Annotate: Draw the kept contours on a copy of the input
//
// DetectOnEnhancedImage applies a contrast/brightness remap first, which helps
// with dark or low-contrast photographs. CleanMask runs the open/close pair
// used to remove salt noise from synthetic masks.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes are inclusive on both corners
//
// # Errors
//
// Invalid parameters are reported as *imaging.ValidationError before any pixel
// is touched. Failures inside a stage, including panics, come back as
// *ProcessingError naming the stage. There is no sentinel count.
//
// # Limitations
//
// Objects that touch or overlap merge into a single contour, and objects drawn
// inside another object's hole are not counted.
package detection

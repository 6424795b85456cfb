package detection

import (
	"image"
	"math"
)

// ContourArea returns the absolute shoelace area of a closed polygon.
// Fewer than three points enclose nothing and yield 0.
func ContourArea(points []image.Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}

	var twice int64
	for i, p := range points {
		q := points[(i+1)%n]
		twice += int64(p.X)*int64(q.Y) - int64(q.X)*int64(p.Y)
	}
	return math.Abs(float64(twice)) / 2
}

// FilterByArea keeps the contours whose area lies strictly between minArea
// and maxArea, preserving their order.
//
// Both bounds are exclusive: a contour whose area equals either bound is
// dropped. A range with minArea >= maxArea matches nothing.
func FilterByArea(contours []Contour, minArea, maxArea float64) []Contour {
	kept := make([]Contour, 0, len(contours))
	if minArea >= maxArea {
		return kept
	}
	for _, c := range contours {
		area := c.Area()
		if minArea < area && area < maxArea {
			kept = append(kept, c)
		}
	}
	return kept
}

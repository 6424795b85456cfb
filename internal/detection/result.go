package detection

import (
	"image"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
// Both corners are inclusive: (X2, Y2) is the last pixel covered.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Region describes one detected object.
type Region struct {
	// Bounds is the bounding box of the object's outer contour.
	Bounds Bounds `json:"bounds"`

	// Center is the center of Bounds.
	Center Point `json:"center"`

	// Area is the enclosed contour area in square pixels.
	Area float64 `json:"area"`

	// Vertices is the number of points in the compressed contour.
	Vertices int `json:"vertices"`
}

// AreaStats summarizes the areas of the kept contours.
type AreaStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Result is the outcome of one pipeline invocation. It is built once and
// owned by the caller.
type Result struct {
	// Count is the number of contours that passed the area filter.
	Count int `json:"count"`

	// Contours holds the kept contours in detection order.
	Contours []Contour `json:"-"`

	// Regions describes each kept contour, index-aligned with Contours.
	Regions []Region `json:"regions"`

	// AreaStats summarizes Regions[i].Area; zero when Count is 0.
	AreaStats AreaStats `json:"area_stats"`

	// Annotated is a copy of the analyzed image with the kept contours drawn.
	Annotated *image.NRGBA `json:"-"`
}

func newResult(kept []Contour, annotated *image.NRGBA) *Result {
	regions := make([]Region, len(kept))
	areas := make([]float64, len(kept))
	for i, c := range kept {
		b := c.Bounds()
		areas[i] = c.Area()
		regions[i] = Region{
			Bounds:   b,
			Center:   Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2},
			Area:     areas[i],
			Vertices: len(c.Points),
		}
	}

	return &Result{
		Count:     len(kept),
		Contours:  kept,
		Regions:   regions,
		AreaStats: summarizeAreas(areas),
		Annotated: annotated,
	}
}

// summarizeAreas computes min, max, mean and median of a set of areas.
func summarizeAreas(areas []float64) AreaStats {
	if len(areas) == 0 {
		return AreaStats{}
	}
	sorted := append([]float64(nil), areas...)
	sort.Float64s(sorted)

	return AreaStats{
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

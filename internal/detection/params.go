package detection

import (
	"math"

	"github.com/ironsheep/contour-count/internal/imaging"
)

// Params configures one detection run.
type Params struct {
	// MinArea and MaxArea bound the kept contour areas, both exclusive.
	MinArea float64 `json:"min_area" yaml:"min_area"`
	MaxArea float64 `json:"max_area" yaml:"max_area"`

	// EdgeLow and EdgeHigh are the hysteresis thresholds of the edge detector.
	EdgeLow  float64 `json:"edge_low" yaml:"edge_low"`
	EdgeHigh float64 `json:"edge_high" yaml:"edge_high"`

	// BinLow is the fallback threshold for a single-level edge map and BinHigh
	// the foreground level written by the auto-threshold binarizer.
	BinLow  float64 `json:"bin_low" yaml:"bin_low"`
	BinHigh float64 `json:"bin_high" yaml:"bin_high"`

	// CloseKernel and CloseIterations configure the gap-bridging close pass.
	CloseKernel     int `json:"close_kernel" yaml:"close_kernel"`
	CloseIterations int `json:"close_iterations" yaml:"close_iterations"`

	// ContourColor ("#RRGGBB") and StrokeWidth style the annotation.
	ContourColor string `json:"contour_color" yaml:"contour_color"`
	StrokeWidth  int    `json:"stroke_width" yaml:"stroke_width"`

	// Caption writes the object count in the annotated image's corner.
	Caption bool `json:"caption" yaml:"caption"`
}

// DefaultParams returns the parameters used for generic object counting.
func DefaultParams() Params {
	return Params{
		MinArea:         100,
		MaxArea:         5000,
		EdgeLow:         50,
		EdgeHigh:        150,
		BinLow:          127,
		BinHigh:         255,
		CloseKernel:     3,
		CloseIterations: 1,
		ContourColor:    imaging.DefaultContourColor,
		StrokeWidth:     imaging.DefaultStrokeWidth,
	}
}

// DefaultCoinParams returns the parameters tuned for the reference coin image,
// which only differ from DefaultParams in the minimum area.
func DefaultCoinParams() Params {
	p := DefaultParams()
	p.MinArea = 200
	return p
}

// Validate rejects malformed values before any raster work begins.
func (p Params) Validate() error {
	// Area bounds may be any number. A negative min_area keeps zero-area
	// contours and an inverted range keeps nothing.
	for _, a := range []struct {
		field string
		value float64
	}{{"min_area", p.MinArea}, {"max_area", p.MaxArea}} {
		if math.IsNaN(a.value) {
			return &imaging.ValidationError{Field: a.field, Value: a.value, Reason: "must be a number"}
		}
	}

	checks := []struct {
		field string
		value float64
		max   float64
	}{
		{"edge_low", p.EdgeLow, math.Inf(1)},
		{"edge_high", p.EdgeHigh, math.Inf(1)},
		{"bin_low", p.BinLow, 255},
		{"bin_high", p.BinHigh, 255},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) {
			return &imaging.ValidationError{Field: c.field, Value: c.value, Reason: "must be a number"}
		}
		if c.value < 0 {
			return &imaging.ValidationError{Field: c.field, Value: c.value, Reason: "must not be negative"}
		}
		if c.value > c.max {
			return &imaging.ValidationError{Field: c.field, Value: c.value, Reason: "must not exceed 255"}
		}
	}
	if math.IsInf(p.EdgeLow, 0) || math.IsInf(p.EdgeHigh, 0) {
		return &imaging.ValidationError{Field: "thresholds", Value: p, Reason: "must be finite"}
	}

	if p.CloseKernel < 1 {
		return &imaging.ValidationError{Field: "close_kernel", Value: p.CloseKernel, Reason: "must be a positive integer"}
	}
	if p.CloseIterations < 1 {
		return &imaging.ValidationError{Field: "close_iterations", Value: p.CloseIterations, Reason: "must be a positive integer"}
	}
	if p.StrokeWidth < 1 {
		return &imaging.ValidationError{Field: "stroke_width", Value: p.StrokeWidth, Reason: "must be a positive integer"}
	}
	if _, err := imaging.ParseColor(p.ContourColor); err != nil {
		return err
	}
	return nil
}

// EnhanceParams configures the per-channel contrast/brightness remap applied
// before detecting objects in dark images.
type EnhanceParams struct {
	Contrast   float64 `json:"contrast" yaml:"contrast"`
	Brightness float64 `json:"brightness" yaml:"brightness"`
}

// DefaultEnhanceParams doubles contrast and adds 30 levels of brightness.
func DefaultEnhanceParams() EnhanceParams {
	return EnhanceParams{Contrast: 2.0, Brightness: 30}
}

// Validate rejects NaN and infinite factors.
func (e EnhanceParams) Validate() error {
	if math.IsNaN(e.Contrast) || math.IsInf(e.Contrast, 0) {
		return &imaging.ValidationError{Field: "contrast", Value: e.Contrast, Reason: "must be a finite number"}
	}
	if math.IsNaN(e.Brightness) || math.IsInf(e.Brightness, 0) {
		return &imaging.ValidationError{Field: "brightness", Value: e.Brightness, Reason: "must be a finite number"}
	}
	return nil
}

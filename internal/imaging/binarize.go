package imaging

import (
	"image"
	"math"

	"github.com/rs/zerolog/log"
)

// defaultBinaryThreshold is the fixed cut used when a raster has more than
// two intensity levels and must be normalized before morphology.
const defaultBinaryThreshold = 127

// ThresholdParams holds the two operator-tunable values of a fixed binary
// threshold: pixels strictly above Threshold become MaxValue, the rest 0.
type ThresholdParams struct {
	Threshold int `json:"threshold" yaml:"threshold"`
	MaxValue  int `json:"max_value" yaml:"max_value"`
}

// Validate checks both values lie in 0-255.
func (p ThresholdParams) Validate() error {
	if p.Threshold < 0 || p.Threshold > 255 {
		return &ValidationError{Field: "threshold", Value: p.Threshold, Reason: "must be between 0 and 255"}
	}
	if p.MaxValue < 0 || p.MaxValue > 255 {
		return &ValidationError{Field: "max_value", Value: p.MaxValue, Reason: "must be between 0 and 255"}
	}
	return nil
}

// Threshold applies a fixed binary threshold and returns a new raster.
//
// This is a pure function of its inputs, so an interactive tuner can call it
// once per UI tick with the current slider values.
func Threshold(gray *image.Gray, p ThresholdParams) (*image.Gray, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return applyThreshold(gray, p.Threshold, uint8(p.MaxValue)), nil
}

// applyThreshold maps v > t to maxValue and everything else to 0.
func applyThreshold(gray *image.Gray, t int, maxValue uint8) *image.Gray {
	out := newGrayLike(gray)
	forEachPixel(gray, func(x, y int, v uint8) {
		if int(v) > t {
			out.Pix[y*out.Stride+x] = maxValue
		}
	})
	return out
}

// NormalizeToBinary guarantees a two-level raster.
//
// A raster with at most two distinct values is returned as an unchanged copy,
// even when those values are not {0, 255}. Anything else is cut at 127
// (v > 127 becomes 255) and a warning is logged, since noisy or grayscale
// inputs routinely land here.
func NormalizeToBinary(gray *image.Gray) *image.Gray {
	distinct := DistinctValues(gray)
	if distinct <= 2 {
		return CloneGray(gray)
	}

	log.Warn().
		Int("distinct_values", distinct).
		Int("threshold", defaultBinaryThreshold).
		Msg("raster is not binary, applying fixed threshold")

	return applyThreshold(gray, defaultBinaryThreshold, 255)
}

// IsBinary reports whether a raster holds only the levels 0 and 255.
func IsBinary(gray *image.Gray) bool {
	hist := Histogram(gray)
	for v, n := range hist {
		if n > 0 && v != 0 && v != 255 {
			return false
		}
	}
	return true
}

// OtsuThreshold selects the threshold that maximizes the between-class
// variance of the intensity histogram.
//
// The returned t splits the histogram into [0, t] and (t, 255]. ok is false
// when the raster is empty or holds a single intensity level, where the
// between-class variance is zero for every split.
func OtsuThreshold(gray *image.Gray) (t int, ok bool) {
	hist := Histogram(gray)

	total := 0
	var sum float64
	occupied := 0
	for v, n := range hist {
		total += n
		sum += float64(v * n)
		if n > 0 {
			occupied++
		}
	}
	if total == 0 || occupied < 2 {
		return 0, false
	}

	var (
		weightBg   float64
		sumBg      float64
		maxVar     = -1.0
		totalCount = float64(total)
	)
	for v := 0; v < 256; v++ {
		weightBg += float64(hist[v])
		if weightBg == 0 {
			continue
		}
		weightFg := totalCount - weightBg
		if weightFg == 0 {
			break
		}

		sumBg += float64(v * hist[v])
		meanBg := sumBg / weightBg
		meanFg := (sum - sumBg) / weightFg

		between := weightBg * weightFg * (meanBg - meanFg) * (meanBg - meanFg)
		if between > maxVar {
			maxVar = between
			t = v
		}
	}
	return t, true
}

// BinarizeWithAutoThreshold binarizes a raster at its Otsu threshold.
//
// Parameters:
//   - gray: Source raster, typically an edge map.
//   - fallbackLow: Threshold used when Otsu is undefined (single-level raster).
//   - fallbackHigh: Output level for pixels above the threshold.
//
// Both values must lie in 0-255, else *ValidationError.
func BinarizeWithAutoThreshold(gray *image.Gray, fallbackLow, fallbackHigh float64) (*image.Gray, error) {
	if err := checkLevel("bin_low", fallbackLow); err != nil {
		return nil, err
	}
	if err := checkLevel("bin_high", fallbackHigh); err != nil {
		return nil, err
	}

	t, ok := OtsuThreshold(gray)
	if !ok {
		t = int(math.Floor(fallbackLow))
		log.Debug().Int("threshold", t).Msg("otsu undefined on single-level raster, using fallback")
	}

	return applyThreshold(gray, t, uint8(math.Round(fallbackHigh))), nil
}

// checkLevel validates an 8-bit intensity level supplied as a float.
func checkLevel(field string, v float64) error {
	if err := checkThreshold(field, v); err != nil {
		return err
	}
	if v > 255 {
		return &ValidationError{Field: field, Value: v, Reason: "must be between 0 and 255"}
	}
	return nil
}

//go:build !cgo

package viewer

import (
	"image"

	"github.com/ironsheep/contour-count/internal/imaging"
)

// Show is unavailable without cgo.
func Show(title string, img image.Image) error {
	return ErrNoDisplay
}

// TuneThreshold is unavailable without cgo. Invalid params are reported
// before ErrNoDisplay.
func TuneThreshold(title string, gray *image.Gray, p imaging.ThresholdParams) (imaging.ThresholdParams, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, ErrNoDisplay
}

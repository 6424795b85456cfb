package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
)

// AdjustBrightnessContrast remaps every color channel independently as
// saturate(round(alpha*v + beta)). Alpha is the multiplicative gain (contrast)
// and beta the additive offset (brightness). The alpha channel is kept, and
// translucent pixels are remapped on their straight (non-premultiplied) values.
//
// The input is not modified; a new NRGBA image is returned.
func AdjustBrightnessContrast(img image.Image, alpha, beta float64) (*image.NRGBA, error) {
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, &ValidationError{Field: "contrast", Value: alpha, Reason: "must be a finite number"}
	}
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return nil, &ValidationError{Field: "brightness", Value: beta, Reason: "must be a finite number"}
	}

	adjusted := adjust.Apply(img, func(c color.RGBA) color.RGBA {
		switch c.A {
		case 0:
			return c
		case 255:
			return color.RGBA{
				R: saturate(alpha*float64(c.R) + beta),
				G: saturate(alpha*float64(c.G) + beta),
				B: saturate(alpha*float64(c.B) + beta),
				A: 255,
			}
		}
		// bild hands over premultiplied channels.
		a := float64(c.A)
		remap := func(v uint8) uint8 {
			straight := saturate(alpha*float64(v)*255/a + beta)
			return uint8(math.Round(float64(straight) * a / 255))
		}
		return color.RGBA{R: remap(c.R), G: remap(c.G), B: remap(c.B), A: c.A}
	})
	return imaging.Clone(adjusted), nil
}

// saturate rounds v and clamps it to 0-255.
func saturate(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

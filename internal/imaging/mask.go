package imaging

import (
	"fmt"
	"image"
	"math"
	"math/rand/v2"
)

// Synthetic masks feed the cleaning pipeline and its tests; they are not part
// of detection itself.

// RandomMask returns a mask where every pixel is independently 0 or 255.
func RandomMask(width, height int, rng *rand.Rand) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, width, height))
	for i := range mask.Pix {
		if rng.IntN(2) == 1 {
			mask.Pix[i] = 255
		}
	}
	return mask
}

// AddNoise normalizes mask to binary and then inverts each pixel with
// probability level. The input is not modified.
func AddNoise(mask *image.Gray, level float64, rng *rand.Rand) (*image.Gray, error) {
	if math.IsNaN(level) || level < 0 || level > 1 {
		return nil, &ValidationError{Field: "noise_level", Value: level, Reason: "must be between 0 and 1"}
	}

	noisy := NormalizeToBinary(mask)
	for i := range noisy.Pix {
		if rng.Float64() < level {
			noisy.Pix[i] = 255 - noisy.Pix[i]
		}
	}
	return noisy, nil
}

// Shape selects the figure drawn by ShapeMask.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeSquare Shape = "square"
)

// ParseShape accepts "circle" or "square".
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeCircle, ShapeSquare:
		return Shape(s), nil
	}
	return "", &ValidationError{Field: "shape", Value: s, Reason: "must be circle or square"}
}

// ShapeMask returns a width×height mask with a filled white circle of the
// given radius, or a square of half-side radius, centred at (width/2, height/2).
func ShapeMask(shape Shape, radius, width, height int) (*image.Gray, error) {
	if radius < 0 {
		return nil, &ValidationError{Field: "radius", Value: radius, Reason: "must not be negative"}
	}

	mask := image.NewGray(image.Rect(0, 0, width, height))
	center := image.Pt(width/2, height/2)

	switch shape {
	case ShapeCircle:
		FillCircle(mask, center, radius)
	case ShapeSquare:
		r := image.Rect(center.X-radius, center.Y-radius, center.X+radius+1, center.Y+radius+1)
		fillRect(mask, r)
	default:
		return nil, fmt.Errorf("unknown shape: %s", shape)
	}
	return mask, nil
}

// FillCircle sets every pixel within radius of center to 255, in place.
func FillCircle(mask *image.Gray, center image.Point, radius int) {
	r2 := radius * radius
	area := image.Rect(center.X-radius, center.Y-radius, center.X+radius+1, center.Y+radius+1).Intersect(mask.Rect)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			dx, dy := x-center.X, y-center.Y
			if dx*dx+dy*dy <= r2 {
				mask.SetGray(x, y, White)
			}
		}
	}
}

func fillRect(mask *image.Gray, r image.Rectangle) {
	r = r.Intersect(mask.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			mask.SetGray(x, y, White)
		}
	}
}

// ApplyMask keeps the pixels of img where mask is non-zero and blacks out the
// rest, returning a new image. The mask must match img's dimensions.
func ApplyMask(img image.Image, mask *image.Gray) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Dx() != mask.Rect.Dx() || b.Dy() != mask.Rect.Dy() {
		return nil, fmt.Errorf("mask size %dx%d does not match image size %dx%d",
			mask.Rect.Dx(), mask.Rect.Dy(), b.Dx(), b.Dy())
	}

	out := CloneColor(img)
	forEachPixel(mask, func(x, y int, v uint8) {
		if v == 0 {
			off := out.PixOffset(x, y)
			out.Pix[off+0] = 0
			out.Pix[off+1] = 0
			out.Pix[off+2] = 0
		}
	})
	return out, nil
}

package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ToGray converts any image to an 8-bit grayscale raster anchored at (0,0).
//
// Luminance uses the ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B),
// rounded to the nearest integer. A *image.Gray input is copied, never aliased.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	gray := image.NewGray(image.Rect(0, 0, width, height))

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			srcOff := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+width], src.Pix[srcOff:srcOff+width])
		}
		return gray
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray.Pix[y*gray.Stride+x] = grayValue(img, x+bounds.Min.X, y+bounds.Min.Y)
		}
	}
	return gray
}

// grayValue converts a pixel to grayscale using ITU-R BT.601 luminance weights.
func grayValue(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	lum := float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114
	return uint8(math.Min(math.Round(lum), 255))
}

// CloneGray returns a deep copy of a grayscale raster anchored at (0,0).
func CloneGray(src *image.Gray) *image.Gray {
	return grayFromGrid(gridFromGray(src))
}

// CloneColor returns an NRGBA copy of img anchored at (0,0). Pipeline stages
// draw onto the copy so the caller's image stays untouched.
func CloneColor(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// DistinctValues counts the distinct intensity levels present in a raster.
func DistinctValues(gray *image.Gray) int {
	var seen [256]bool
	count := 0
	forEachPixel(gray, func(_, _ int, v uint8) {
		if !seen[v] {
			seen[v] = true
			count++
		}
	})
	return count
}

// Histogram returns the 256-bin intensity histogram of a raster.
func Histogram(gray *image.Gray) [256]int {
	var hist [256]int
	forEachPixel(gray, func(_, _ int, v uint8) {
		hist[v]++
	})
	return hist
}

// forEachPixel visits every pixel in row-major order with 0-based coordinates.
func forEachPixel(gray *image.Gray, fn func(x, y int, v uint8)) {
	b := gray.Rect
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x, v := range row {
			fn(x, y, v)
		}
	}
}

// newGrayLike allocates a zeroed raster with the same dimensions as src,
// anchored at (0,0).
func newGrayLike(src *image.Gray) *image.Gray {
	return image.NewGray(image.Rect(0, 0, src.Rect.Dx(), src.Rect.Dy()))
}

// gridFromGray copies a raster into a dense row-major byte slice.
func gridFromGray(src *image.Gray) ([]uint8, int, int) {
	width, height := src.Rect.Dx(), src.Rect.Dy()
	grid := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		copy(grid[y*width:(y+1)*width], src.Pix[y*src.Stride:y*src.Stride+width])
	}
	return grid, width, height
}

// grayFromGrid wraps a dense row-major byte slice as a raster.
func grayFromGrid(grid []uint8, width, height int) *image.Gray {
	return &image.Gray{Pix: grid, Stride: width, Rect: image.Rect(0, 0, width, height)}
}

// White is the foreground level of a binary raster.
var White = color.Gray{Y: 255}

package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"
)

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of white pixels in the edge map.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs DetectEdges on any image and returns the edge map as a
// base64-encoded PNG.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh float64) (*EdgeDetectResult, error) {
	edges, err := DetectEdges(ToGray(img), thresholdLow, thresholdHigh)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodePNGBase64(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	hist := Histogram(edges)
	return &EdgeDetectResult{
		Width:       edges.Rect.Dx(),
		Height:      edges.Rect.Dy(),
		EdgePixels:  hist[255],
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// DetectEdges performs Canny-style edge detection on a grayscale raster.
//
// Parameters:
//   - gray: Source raster. It is read, never modified.
//   - thresholdLow: Weak-edge threshold on the Sobel gradient magnitude.
//   - thresholdHigh: Strong-edge threshold on the Sobel gradient magnitude.
//
// Returns a binary raster of the same dimensions with edges at 255.
// Thresholds that are negative, NaN or infinite yield a *ValidationError.
// thresholdLow > thresholdHigh is accepted; the map degrades to strong edges only.
//
// # Algorithm
//
//  1. Gaussian blur: 5x5 kernel to reduce noise
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  3. Non-maximum suppression: Thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  4. Hysteresis:
//     - Pixels at or above thresholdHigh are strong edges (always kept)
//     - Pixels at or above thresholdLow are weak edges, kept only when
//     8-connected, directly or through other weak edges, to a strong edge
//     - Everything else is discarded
func DetectEdges(gray *image.Gray, thresholdLow, thresholdHigh float64) (*image.Gray, error) {
	if err := checkThreshold("edge_low", thresholdLow); err != nil {
		return nil, err
	}
	if err := checkThreshold("edge_high", thresholdHigh); err != nil {
		return nil, err
	}

	width := gray.Rect.Dx()
	height := gray.Rect.Dy()

	samples := make([][]float64, height)
	forEachPixel(gray, func(x, y int, v uint8) {
		if samples[y] == nil {
			samples[y] = make([]float64, width)
		}
		samples[y][x] = float64(v)
	})

	blurred := gaussianBlur(samples, width, height)
	magnitude, direction := sobel(blurred, width, height)
	suppressed := nonMaxSuppression(magnitude, direction, width, height)

	return hysteresis(suppressed, width, height, thresholdLow, thresholdHigh), nil
}

// sobel computes gradient magnitude and direction with 3x3 Sobel operators.
// Border pixels use clamped (replicated) edge values.
func sobel(img [][]float64, width, height int) (magnitude, direction [][]float64) {
	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude = make([][]float64, height)
	direction = make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += img[py][px] * sobelX[ky+1][kx+1]
					gy += img[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}
	return magnitude, direction
}

// nonMaxSuppression keeps a pixel's magnitude only when it is not smaller than
// both neighbors along the quantized gradient direction. The outermost ring of
// pixels is always suppressed.
func nonMaxSuppression(magnitude, direction [][]float64, width, height int) [][]float64 {
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		if y == 0 || y == height-1 {
			continue
		}
		for x := 1; x < width-1; x++ {
			angle := direction[y][x]
			mag := magnitude[y][x]
			if mag == 0 {
				continue
			}

			var n1, n2 float64
			switch {
			case (angle >= -math.Pi/8 && angle < math.Pi/8) || angle >= 7*math.Pi/8 || angle < -7*math.Pi/8:
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			case (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8):
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			case (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8):
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			default:
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}
	return suppressed
}

// hysteresis links weak edges to strong ones by flooding outward from every
// strong pixel through 8-connected weak pixels.
func hysteresis(suppressed [][]float64, width, height int, low, high float64) *image.Gray {
	result := image.NewGray(image.Rect(0, 0, width, height))
	stack := make([]image.Point, 0, 256)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] < high || suppressed[y][x] == 0 || result.Pix[y*width+x] != 0 {
				continue
			}
			result.Pix[y*width+x] = 255
			stack = append(stack[:0], image.Point{X: x, Y: y})

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || nx >= width || ny < 0 || ny >= height {
							continue
						}
						idx := ny*width + nx
						if result.Pix[idx] != 0 {
							continue
						}
						v := suppressed[ny][nx]
						if v == 0 || v < low {
							continue
						}
						result.Pix[idx] = 255
						stack = append(stack, image.Point{X: nx, Y: ny})
					}
				}
			}
		}
	}
	return result
}

// gaussianBlur applies a 5x5 Gaussian blur to reduce noise before edge detection.
//
// Uses a standard 5x5 Gaussian kernel with sigma ≈ 1.4:
//
//	1  4  7  4  1
//	4 16 26 16  4
//	7 26 41 26  7
//	4 16 26 16  4
//	1  4  7  4  1
//
// Total kernel sum = 273, used for normalization.
// Border pixels use clamped (replicated) edge values.
func gaussianBlur(img [][]float64, width, height int) [][]float64 {
	kernel := [5][5]float64{
		{1, 4, 7, 4, 1},
		{4, 16, 26, 16, 4},
		{7, 26, 41, 26, 7},
		{4, 16, 26, 16, 4},
		{1, 4, 7, 4, 1},
	}
	kernelSum := 273.0

	result := make([][]float64, height)
	for y := 0; y < height; y++ {
		result[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			var sum float64
			for ky := -2; ky <= 2; ky++ {
				for kx := -2; kx <= 2; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					sum += img[py][px] * kernel[ky+2][kx+2]
				}
			}
			result[y][x] = sum / kernelSum
		}
	}
	return result
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// EncodePNGBase64 encodes an image as PNG and returns it base64-encoded, the
// form MCP clients expect for inline images.
func EncodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

package imaging

import (
	"image"
)

// Kernel is a square structuring element of ones.
//
// Anchor is the offset of the reference pixel from the kernel's top-left
// corner; NewSquareKernel centers it at Size/2, so even sizes reach one pixel
// further up and left than down and right.
type Kernel struct {
	Size   int
	Anchor int
}

// NewSquareKernel creates a fresh Size×Size structuring element.
func NewSquareKernel(size int) (Kernel, error) {
	if err := checkPositive("kernel_size", size); err != nil {
		return Kernel{}, err
	}
	return Kernel{Size: size, Anchor: size / 2}, nil
}

// MorphParams configures the open-then-close cleanup of a binary mask.
type MorphParams struct {
	OpenKernel      int `json:"kernel_size_open" yaml:"kernel_size_open"`
	CloseKernel     int `json:"kernel_size_close" yaml:"kernel_size_close"`
	OpenIterations  int `json:"iter_open" yaml:"iter_open"`
	CloseIterations int `json:"iter_close" yaml:"iter_close"`
}

// DefaultMorphParams returns a 5x5 kernel with one iteration for both passes.
func DefaultMorphParams() MorphParams {
	return MorphParams{
		OpenKernel:      5,
		CloseKernel:     5,
		OpenIterations:  1,
		CloseIterations: 1,
	}
}

// Validate rejects non-positive kernel sizes and iteration counts.
func (p MorphParams) Validate() error {
	if err := checkPositive("kernel_size_open", p.OpenKernel); err != nil {
		return err
	}
	if err := checkPositive("kernel_size_close", p.CloseKernel); err != nil {
		return err
	}
	if err := checkPositive("iter_open", p.OpenIterations); err != nil {
		return err
	}
	return checkPositive("iter_close", p.CloseIterations)
}

// Erode shrinks foreground regions: each output pixel is the minimum over the
// kernel neighborhood, repeated iterations times. Pixels outside the raster
// do not take part.
func Erode(mask *image.Gray, kernel Kernel, iterations int) (*image.Gray, error) {
	return morph(mask, kernel, iterations, minOf)
}

// Dilate grows foreground regions: each output pixel is the maximum over the
// kernel neighborhood, repeated iterations times.
func Dilate(mask *image.Gray, kernel Kernel, iterations int) (*image.Gray, error) {
	return morph(mask, kernel, iterations, maxOf)
}

// Open erodes iterations times and then dilates iterations times.
//
// It removes isolated foreground specks narrower than the kernel while
// leaving larger regions roughly the same size. kernelSize 1 is the identity.
func Open(mask *image.Gray, kernelSize, iterations int) (*image.Gray, error) {
	kernel, err := newMorphKernel(kernelSize, iterations)
	if err != nil {
		return nil, err
	}
	eroded, err := Erode(mask, kernel, iterations)
	if err != nil {
		return nil, err
	}
	return Dilate(eroded, kernel, iterations)
}

// Close dilates iterations times and then erodes iterations times.
//
// It fills interior holes and bridges gaps narrower than the kernel.
func Close(mask *image.Gray, kernelSize, iterations int) (*image.Gray, error) {
	kernel, err := newMorphKernel(kernelSize, iterations)
	if err != nil {
		return nil, err
	}
	dilated, err := Dilate(mask, kernel, iterations)
	if err != nil {
		return nil, err
	}
	return Erode(dilated, kernel, iterations)
}

// CleanMask normalizes a mask to binary, opens it and then closes it.
//
// Opening runs first so that speckles are gone before closing could bridge
// them into real regions. Parameters are validated before any raster work.
func CleanMask(mask *image.Gray, p MorphParams) (*image.Gray, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	binary := NormalizeToBinary(mask)
	opened, err := Open(binary, p.OpenKernel, p.OpenIterations)
	if err != nil {
		return nil, err
	}
	return Close(opened, p.CloseKernel, p.CloseIterations)
}

func newMorphKernel(kernelSize, iterations int) (Kernel, error) {
	if err := checkPositive("iterations", iterations); err != nil {
		return Kernel{}, err
	}
	return NewSquareKernel(kernelSize)
}

func minOf(a, b uint8) uint8 {
	if b < a {
		return b
	}
	return a
}

func maxOf(a, b uint8) uint8 {
	if b > a {
		return b
	}
	return a
}

// morph applies a square rank filter. The square neighborhood is separable,
// so each iteration runs one horizontal and one vertical 1-D pass.
func morph(mask *image.Gray, kernel Kernel, iterations int, pick func(a, b uint8) uint8) (*image.Gray, error) {
	if err := checkPositive("iterations", iterations); err != nil {
		return nil, err
	}
	if err := checkPositive("kernel_size", kernel.Size); err != nil {
		return nil, err
	}

	grid, width, height := gridFromGray(mask)
	if kernel.Size == 1 {
		return grayFromGrid(grid, width, height), nil
	}

	before := kernel.Anchor
	after := kernel.Size - 1 - kernel.Anchor
	scratch := make([]uint8, len(grid))

	for i := 0; i < iterations; i++ {
		// Horizontal pass: grid -> scratch.
		for y := 0; y < height; y++ {
			row := grid[y*width : (y+1)*width]
			out := scratch[y*width : (y+1)*width]
			for x := 0; x < width; x++ {
				lo := max(x-before, 0)
				hi := min(x+after, width-1)
				v := row[lo]
				for k := lo + 1; k <= hi; k++ {
					v = pick(v, row[k])
				}
				out[x] = v
			}
		}
		// Vertical pass: scratch -> grid.
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				lo := max(y-before, 0)
				hi := min(y+after, height-1)
				v := scratch[lo*width+x]
				for k := lo + 1; k <= hi; k++ {
					v = pick(v, scratch[k*width+x])
				}
				grid[y*width+x] = v
			}
		}
	}

	return grayFromGrid(grid, width, height), nil
}

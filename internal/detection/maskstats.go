package detection

import "image"

// MaskStats summarizes the foreground of a binary mask.
type MaskStats struct {
	// Foreground is the number of non-zero pixels.
	Foreground int `json:"foreground"`

	// Components is the number of 8-connected foreground regions, nested ones
	// included.
	Components int `json:"components"`

	// Isolated is the number of foreground pixels with no foreground neighbor.
	Isolated int `json:"isolated"`
}

// AnalyzeMask counts foreground pixels, connected regions and isolated pixels.
// It is used to report how much noise a cleaning pass removed.
func AnalyzeMask(mask *image.Gray) MaskStats {
	width, height := mask.Rect.Dx(), mask.Rect.Dy()
	fg := make([]bool, width*height)
	var stats MaskStats
	for y := 0; y < height; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+width]
		for x, v := range row {
			if v != 0 {
				fg[y*width+x] = true
				stats.Foreground++
			}
		}
	}

	t := &tracer{fg: fg, width: width, height: height}
	seen := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if !fg[idx] {
				continue
			}
			alone := true
			for _, d := range neighbors {
				if t.at(image.Pt(x+d.X, y+d.Y)) {
					alone = false
					break
				}
			}
			if alone {
				stats.Isolated++
			}
			if !seen[idx] {
				stats.Components++
				t.flood(seen, idx)
			}
		}
	}
	return stats
}

// flood marks every pixel 8-connected to idx as seen.
func (t *tracer) flood(seen []bool, idx int) {
	seen[idx] = true
	stack := []int{idx}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy := cur%t.width, cur/t.width
		for _, d := range neighbors {
			p := image.Pt(cx+d.X, cy+d.Y)
			if !t.at(p) {
				continue
			}
			n := p.Y*t.width + p.X
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
}

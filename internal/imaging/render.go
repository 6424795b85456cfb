package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultContourColor is the stroke used for detected regions (green).
const DefaultContourColor = "#00FF00"

// DefaultStrokeWidth is the contour line thickness in pixels.
const DefaultStrokeWidth = 3

// ParseColor parses a "#RRGGBB" hex string into an opaque color.
func ParseColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, &ValidationError{Field: "color", Value: hex, Reason: err.Error()}
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// DrawContours strokes each closed point sequence onto a copy of img.
//
// Consecutive points are joined with straight lines and the last point is
// joined back to the first. A round brush, the disc of diameter width, is
// stamped along every line. Width 1 is a plain 8-connected line and width 3
// still fills its 3x3 square; corners drop out from width 5.
func DrawContours(img image.Image, contours [][]image.Point, c color.Color, width int) *image.NRGBA {
	out := CloneColor(img)
	if width < 1 {
		width = 1
	}
	brush := brushOffsets(width)

	for _, pts := range contours {
		switch len(pts) {
		case 0:
			continue
		case 1:
			stamp(out, pts[0], brush, c)
			continue
		}
		for i := range pts {
			drawLine(out, pts[i], pts[(i+1)%len(pts)], brush, c)
		}
	}
	return out
}

// brushOffsets returns the pixel offsets covered by a round brush.
func brushOffsets(width int) []image.Point {
	r := float64(width) / 2
	reach := width / 2
	offsets := make([]image.Point, 0, width*width)
	for dy := -reach; dy <= reach; dy++ {
		for dx := -reach; dx <= reach; dx++ {
			if float64(dx*dx+dy*dy) <= r*r {
				offsets = append(offsets, image.Point{X: dx, Y: dy})
			}
		}
	}
	return offsets
}

func stamp(img *image.NRGBA, p image.Point, brush []image.Point, c color.Color) {
	for _, o := range brush {
		q := p.Add(o)
		if q.In(img.Rect) {
			img.Set(q.X, q.Y, c)
		}
	}
}

// drawLine walks from a to b with Bresenham's algorithm, stamping the brush
// at every step.
func drawLine(img *image.NRGBA, a, b image.Point, brush []image.Point, c color.Color) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	err := dx + dy

	p := a
	for {
		stamp(img, p, brush, c)
		if p == b {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			p.X += sx
		}
		if e2 <= dx {
			err += dx
			p.Y += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SideBySide joins two images horizontally for a before/after comparison.
//
// The taller image is resized (Lanczos, aspect ratio preserved) to the height
// of the shorter one, and a 2-pixel white divider is drawn at the seam.
// Neither input is modified.
func SideBySide(left, right image.Image) *image.NRGBA {
	height := min(left.Bounds().Dy(), right.Bounds().Dy())
	left = fitHeight(left, height)
	right = fitHeight(right, height)

	lw := left.Bounds().Dx()
	rw := right.Bounds().Dx()
	out := imaging.New(lw+rw, height, color.Black)
	out = imaging.Paste(out, left, image.Pt(0, 0))
	out = imaging.Paste(out, right, image.Pt(lw, 0))

	divider := image.Rect(lw-1, 0, lw+1, height).Intersect(out.Rect)
	draw.Draw(out, divider, image.NewUniform(color.White), image.Point{}, draw.Src)
	return out
}

func fitHeight(img image.Image, height int) image.Image {
	if img.Bounds().Dy() == height {
		return img
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}

// DrawLabel writes a single line of text onto a copy of img with its top-left
// corner at (x, y), on a dark backing box for legibility.
func DrawLabel(img image.Image, x, y int, text string) *image.NRGBA {
	out := CloneColor(img)
	face := basicfont.Face7x13

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	textWidth := d.MeasureString(text).Ceil()
	metrics := face.Metrics()
	box := image.Rect(x, y, x+textWidth+4, y+metrics.Height.Ceil()+4)
	draw.Draw(out, box.Intersect(out.Rect), image.NewUniform(color.NRGBA{A: 180}), image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I(x + 2),
		Y: fixed.I(y+2) + metrics.Ascent,
	}
	d.DrawString(text)
	return out
}

// CountCaption formats the standard caption placed on annotated images.
func CountCaption(count int) string {
	return fmt.Sprintf("objects: %d", count)
}

package detection

import (
	"image"
)

// Contour is the closed outer boundary of one connected foreground region.
//
// Points run counterclockwise on screen starting at the region's topmost,
// leftmost pixel. Straight horizontal, vertical and diagonal runs are
// compressed to their end points; the last point implicitly joins the first.
type Contour struct {
	Points []image.Point `json:"points"`
}

// Area returns the enclosed area of the contour polygon in square pixels.
// It is recomputed on every call.
func (c Contour) Area() float64 {
	return ContourArea(c.Points)
}

// Bounds returns the inclusive bounding box of the contour.
func (c Contour) Bounds() Bounds {
	if len(c.Points) == 0 {
		return Bounds{}
	}
	b := Bounds{X1: c.Points[0].X, Y1: c.Points[0].Y, X2: c.Points[0].X, Y2: c.Points[0].Y}
	for _, p := range c.Points[1:] {
		b.X1 = min(b.X1, p.X)
		b.Y1 = min(b.Y1, p.Y)
		b.X2 = max(b.X2, p.X)
		b.Y2 = max(b.Y2, p.Y)
	}
	return b
}

// HierarchyEntry links a contour to its neighbors in the nesting tree using
// indices into the contour slice, -1 meaning none.
type HierarchyEntry struct {
	Next       int `json:"next"`
	Previous   int `json:"previous"`
	FirstChild int `json:"first_child"`
	Parent     int `json:"parent"`
}

// neighbor offsets indexed counterclockwise on screen (Y grows downward),
// starting east.
var neighbors = [8]image.Point{
	{X: 1, Y: 0},   // E
	{X: 1, Y: -1},  // NE
	{X: 0, Y: -1},  // N
	{X: -1, Y: -1}, // NW
	{X: -1, Y: 0},  // W
	{X: -1, Y: 1},  // SW
	{X: 0, Y: 1},   // S
	{X: 1, Y: 1},   // SE
}

const dirWest = 4

// ExtractOuterContours traces the outer boundary of every connected
// foreground region of a binary mask.
//
// Any non-zero pixel is foreground; foreground is 8-connected and pixels
// beyond the raster edge count as background. Regions lying inside a hole of
// another region are skipped, and holes themselves are not reported.
// Contours come back in the raster-scan order of each region's first pixel.
// Degenerate single-pixel and line-shaped regions are included; filtering by
// size is left to FilterByArea.
//
// The returned hierarchy has one entry per contour. All contours are
// top-level siblings, so Parent and FirstChild are always -1.
func ExtractOuterContours(mask *image.Gray) ([]Contour, []HierarchyEntry) {
	width, height := mask.Rect.Dx(), mask.Rect.Dy()
	fg := make([]bool, width*height)
	for y := 0; y < height; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+width]
		for x, v := range row {
			fg[y*width+x] = v != 0
		}
	}

	t := &tracer{fg: fg, width: width, height: height}
	outside := t.outerBackground()

	labels := make([]int32, width*height)
	var label int32
	contours := make([]Contour, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if !fg[idx] || labels[idx] != 0 {
				continue
			}
			label++
			if t.labelComponent(labels, outside, x, y, label) {
				contours = append(contours, Contour{Points: compressChain(t.follow(image.Pt(x, y)))})
			}
		}
	}

	hierarchy := make([]HierarchyEntry, len(contours))
	for i := range hierarchy {
		hierarchy[i] = HierarchyEntry{Next: -1, Previous: i - 1, FirstChild: -1, Parent: -1}
		if i+1 < len(contours) {
			hierarchy[i].Next = i + 1
		}
	}
	return contours, hierarchy
}

type tracer struct {
	fg            []bool
	width, height int
}

func (t *tracer) at(p image.Point) bool {
	if p.X < 0 || p.X >= t.width || p.Y < 0 || p.Y >= t.height {
		return false
	}
	return t.fg[p.Y*t.width+p.X]
}

// outerBackground marks the background pixels 4-connected to the area
// beyond the raster edge.
func (t *tracer) outerBackground() []bool {
	outside := make([]bool, t.width*t.height)
	stack := make([]int, 0, 2*(t.width+t.height))

	seed := func(x, y int) {
		idx := y*t.width + x
		if !t.fg[idx] && !outside[idx] {
			outside[idx] = true
			stack = append(stack, idx)
		}
	}
	for x := 0; x < t.width; x++ {
		seed(x, 0)
		seed(x, t.height-1)
	}
	for y := 0; y < t.height; y++ {
		seed(0, y)
		seed(t.width-1, y)
	}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := idx%t.width, idx/t.width
		for _, d := range [4]image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			nx, ny := x+d.X, y+d.Y
			if nx < 0 || nx >= t.width || ny < 0 || ny >= t.height {
				continue
			}
			seed(nx, ny)
		}
	}
	return outside
}

// labelComponent floods the 8-connected region containing (x, y) with label
// and reports whether the region touches the outer background, i.e. whether
// it is not nested inside another region's hole.
func (t *tracer) labelComponent(labels []int32, outside []bool, x, y int, label int32) bool {
	external := false
	start := y*t.width + x
	labels[start] = label
	stack := []int{start}

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cx, cy := idx%t.width, idx/t.width

		for i, d := range neighbors {
			nx, ny := cx+d.X, cy+d.Y
			if nx < 0 || nx >= t.width || ny < 0 || ny >= t.height {
				external = true
				continue
			}
			nidx := ny*t.width + nx
			if !t.fg[nidx] {
				// Only edge-adjacent background counts; even indices are E, N, W, S.
				if i%2 == 0 && outside[nidx] {
					external = true
				}
				continue
			}
			if labels[nidx] == 0 {
				labels[nidx] = label
				stack = append(stack, nidx)
			}
		}
	}
	return external
}

// follow runs Suzuki-Abe border following around the outer border that
// starts at the topmost, leftmost pixel of a region and returns every border
// pixel in visiting order.
func (t *tracer) follow(start image.Point) []image.Point {
	// Clockwise search from the west neighbor for the first foreground pixel.
	first := -1
	for k := 0; k < 8; k++ {
		d := (dirWest - k + 8) % 8
		if t.at(start.Add(neighbors[d])) {
			first = d
			break
		}
	}
	if first < 0 {
		return []image.Point{start}
	}

	p1 := start.Add(neighbors[first])
	prev := p1
	cur := start
	points := []image.Point{}

	for {
		// Counterclockwise search around cur, beginning just after prev.
		back := direction(cur, prev)
		var next image.Point
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			if q := cur.Add(neighbors[d]); t.at(q) {
				next = q
				break
			}
		}

		points = append(points, cur)
		if next == start && cur == p1 {
			return points
		}
		prev, cur = cur, next
	}
}

// direction returns the neighbor index of q as seen from p.
func direction(p, q image.Point) int {
	d := q.Sub(p)
	for i, n := range neighbors {
		if n == d {
			return i
		}
	}
	return 0
}

// compressChain drops every point whose incoming and outgoing steps are
// identical, leaving only the ends of straight runs.
func compressChain(points []image.Point) []image.Point {
	n := len(points)
	if n < 3 {
		return points
	}

	out := make([]image.Point, 0, n)
	for i, p := range points {
		in := p.Sub(points[(i-1+n)%n])
		next := points[(i+1)%n].Sub(p)
		if in != next {
			out = append(out, p)
		}
	}
	return out
}

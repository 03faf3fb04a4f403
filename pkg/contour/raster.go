package contour

import (
	"image"

	"github.com/chazu/lamina/pkg/slicer"
)

// RasterExtractor draws the segments of a slice into a binary raster and
// traces every border of the drawn pixels. Both sides of a one-pixel-wide
// outline are traced, so a closed outline comes back twice; Prune drops the
// second trace.
type RasterExtractor struct {
	Plane Plane
}

var _ Extractor = (*RasterExtractor)(nil)

// Extract rasterises segs and returns each border as a full pixel chain,
// in raster-scan order of the border starts. Borders are not closed
// explicitly; the last pixel neighbours the first.
func (r *RasterExtractor) Extract(segs []slicer.Segment) []Loop {
	g := newGrid(r.Plane.Dim)
	for _, s := range segs {
		g.line(r.Plane.Pixel(s.A), r.Plane.Pixel(s.B))
	}
	return g.trace()
}

// grid is a dim × dim raster with a one-pixel frame of zeros, so every
// drawn pixel has eight addressable neighbours. Cells hold 0 (background),
// 1 (unvisited foreground) or a signed border number once traced.
type grid struct {
	dim   int
	w     int
	cells []int32
}

func newGrid(dim int) *grid {
	w := dim + 2
	return &grid{dim: dim, w: w, cells: make([]int32, w*w)}
}

func (g *grid) at(i, j int) int32     { return g.cells[i*g.w+j] }
func (g *grid) set(i, j int, v int32) { g.cells[i*g.w+j] = v }

func (g *grid) plot(p image.Point) {
	if p.X < 0 || p.Y < 0 || p.X >= g.dim || p.Y >= g.dim {
		return
	}
	g.set(p.Y+1, p.X+1, 1)
}

// line draws a Bresenham line from a to b, both ends included.
func (g *grid) line(a, b image.Point) {
	dx := abs(b.X - a.X)
	dy := -abs(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	for p := a; ; {
		g.plot(p)
		if p == b {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			p.X += sx
		}
		if e2 <= dx {
			e += dx
			p.Y += sy
		}
	}
}

// Neighbour offsets (di, dj) in clockwise order on screen, starting east.
var dirs = [8][2]int{
	{0, 1}, {1, 1}, {1, 0}, {1, -1},
	{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
}

const east = 0

func dirOf(i0, j0, i1, j1 int) int {
	di, dj := i1-i0, j1-j0
	for d, o := range dirs {
		if o[0] == di && o[1] == dj {
			return d
		}
	}
	panic("contour: pixels are not neighbours")
}

// trace follows every outer and hole border in the raster (Suzuki and Abe,
// 1985) and returns them as a flat list.
func (g *grid) trace() []Loop {
	var loops []Loop
	nbd := int32(1)
	for i := 1; i <= g.dim; i++ {
		for j := 1; j <= g.dim; j++ {
			f := g.at(i, j)
			if f == 0 {
				continue
			}
			var i2, j2 int
			switch {
			case f == 1 && g.at(i, j-1) == 0:
				i2, j2 = i, j-1
			case f >= 1 && g.at(i, j+1) == 0:
				i2, j2 = i, j+1
			default:
				continue
			}
			nbd++
			loops = append(loops, g.follow(i, j, i2, j2, nbd))
		}
	}
	return loops
}

// follow traces one border that starts at (i, j) with (i2, j2) the
// background pixel that revealed it, marking the border with nbd.
func (g *grid) follow(i, j, i2, j2 int, nbd int32) Loop {
	pixel := func(i, j int) image.Point { return image.Point{X: j - 1, Y: i - 1} }

	// Find the first foreground neighbour clockwise from (i2, j2).
	start := dirOf(i, j, i2, j2)
	i1, j1 := -1, -1
	for k := 0; k < 8; k++ {
		o := dirs[(start+k)%8]
		if g.at(i+o[0], j+o[1]) != 0 {
			i1, j1 = i+o[0], j+o[1]
			break
		}
	}
	if i1 < 0 {
		g.set(i, j, -nbd)
		return Loop{pixel(i, j)}
	}

	var l Loop
	i2, j2 = i1, j1
	i3, j3 := i, j
	for {
		l = append(l, pixel(i3, j3))

		// Search counterclockwise around (i3, j3), starting just past (i2, j2).
		from := dirOf(i3, j3, i2, j2)
		eastClear := false
		var i4, j4 int
		for k := 1; k <= 8; k++ {
			d := (from - k + 8) % 8
			o := dirs[d]
			if g.at(i3+o[0], j3+o[1]) != 0 {
				i4, j4 = i3+o[0], j3+o[1]
				break
			}
			if d == east {
				eastClear = true
			}
		}

		switch {
		case eastClear:
			g.set(i3, j3, -nbd)
		case g.at(i3, j3) == 1:
			g.set(i3, j3, nbd)
		}

		if i4 == i && j4 == j && i3 == i1 && j3 == j1 {
			return l
		}
		i2, j2 = i3, j3
		i3, j3 = i4, j4
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Package polygon holds the value type passed from contour extraction to
// path planning, and the simplification applied in between.
package polygon

import (
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Rect is an axis-aligned box on the working plane. Both corners are
// inclusive.
type Rect struct {
	Min, Max image.Point
}

// Corners returns the four corners in the order (xmin, ymin),
// (xmin, ymax), (xmax, ymax), (xmax, ymin).
func (r Rect) Corners() [4]image.Point {
	return [4]image.Point{
		{X: r.Min.X, Y: r.Min.Y},
		{X: r.Min.X, Y: r.Max.Y},
		{X: r.Max.X, Y: r.Max.Y},
		{X: r.Max.X, Y: r.Min.Y},
	}
}

// Union returns the smallest Rect containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: image.Point{X: min(r.Min.X, o.Min.X), Y: min(r.Min.Y, o.Min.Y)},
		Max: image.Point{X: max(r.Max.X, o.Max.X), Y: max(r.Max.Y, o.Max.Y)},
	}
}

// Width and Height count pixels, so a single-pixel Rect is 1 × 1.
func (r Rect) Width() int  { return r.Max.X - r.Min.X + 1 }
func (r Rect) Height() int { return r.Max.Y - r.Min.Y + 1 }

func (r Rect) String() string {
	return fmt.Sprintf("[%v-%v]", r.Min, r.Max)
}

// Polygon is one pruned loop of a slice. It owns its vertices. Entry and
// Exit index into Vertices and are set by the planner.
type Polygon struct {
	Vertices []image.Point
	Bounds   Rect
	Corners  [4]image.Point
	Entry    int
	Exit     int
	Open     bool
}

// New copies vertices into a Polygon and computes its bounds.
func New(vertices []image.Point) Polygon {
	p := Polygon{Vertices: append([]image.Point(nil), vertices...)}
	p.UpdateBounds()
	return p
}

// Clone returns a deep copy of p.
func (p Polygon) Clone() Polygon {
	p.Vertices = append([]image.Point(nil), p.Vertices...)
	return p
}

// Len returns the number of vertices.
func (p *Polygon) Len() int { return len(p.Vertices) }

// UpdateBounds recomputes Bounds and Corners from the vertices.
func (p *Polygon) UpdateBounds() {
	if len(p.Vertices) == 0 {
		p.Bounds = Rect{}
		p.Corners = [4]image.Point{}
		return
	}
	r := Rect{Min: p.Vertices[0], Max: p.Vertices[0]}
	for _, v := range p.Vertices[1:] {
		r.Min.X = min(r.Min.X, v.X)
		r.Min.Y = min(r.Min.Y, v.Y)
		r.Max.X = max(r.Max.X, v.X)
		r.Max.Y = max(r.Max.Y, v.Y)
	}
	p.Bounds = r
	p.Corners = r.Corners()
}

// First and Last return the end vertices. They panic on an empty polygon.
func (p *Polygon) First() image.Point { return p.Vertices[0] }
func (p *Polygon) Last() image.Point  { return p.Vertices[len(p.Vertices)-1] }

// Closest returns the index of the vertex nearest pt. The first of several
// equally near vertices wins. It returns -1 for an empty polygon.
func (p *Polygon) Closest(pt image.Point) int {
	best, bestD := -1, 0
	for i, v := range p.Vertices {
		d := dist2(v, pt)
		if best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func dist2(a, b image.Point) int {
	d := a.Sub(b)
	return d.X*d.X + d.Y*d.Y
}

// Ring returns the vertices as an orb ring.
func (p *Polygon) Ring() orb.Ring {
	r := make(orb.Ring, len(p.Vertices))
	for i, v := range p.Vertices {
		r[i] = orb.Point{float64(v.X), float64(v.Y)}
	}
	return r
}

// Area returns the enclosed area. Open polygons are closed implicitly.
func (p *Polygon) Area() float64 {
	if len(p.Vertices) < 3 {
		return 0
	}
	return math.Abs(planar.Area(p.Ring()))
}

// IsClockwise reports whether the vertices wind clockwise with Y up.
// Polygons without area are not clockwise.
func (p *Polygon) IsClockwise() bool {
	if len(p.Vertices) < 3 {
		return false
	}
	return p.Ring().Orientation() == orb.CW
}

// Reverse reverses the vertex order in place. Entry and Exit are mapped
// so they keep pointing at the same vertices.
func (p *Polygon) Reverse() {
	n := len(p.Vertices)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		p.Vertices[i], p.Vertices[j] = p.Vertices[j], p.Vertices[i]
	}
	if n > 0 {
		p.Entry = n - 1 - p.Entry
		p.Exit = n - 1 - p.Exit
	}
}

// Bounds returns the aggregate bounds of polys. ok is false when polys
// holds no vertices.
func Bounds(polys []Polygon) (r Rect, ok bool) {
	for _, p := range polys {
		if len(p.Vertices) == 0 {
			continue
		}
		if !ok {
			r, ok = p.Bounds, true
			continue
		}
		r = r.Union(p.Bounds)
	}
	return r, ok
}

// VertexCount sums the vertices of polys.
func VertexCount(polys []Polygon) int {
	n := 0
	for _, p := range polys {
		n += len(p.Vertices)
	}
	return n
}

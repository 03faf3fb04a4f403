package polygon

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultClosureDistance = 5.0
	DefaultSmoothTolerance = 0.3
)

// Simplifier classifies polygons as open or closed and compacts runs of
// nearly collinear vertices.
type Simplifier struct {
	// ClosureDistance is the largest gap between the first and last
	// vertex of a closed polygon.
	ClosureDistance float64
	// Tolerance is the largest perpendicular distance a vertex may sit
	// from a chord and still be dropped by Smooth.
	Tolerance float64
}

// DefaultSimplifier returns a Simplifier with the default thresholds.
func DefaultSimplifier() Simplifier {
	return Simplifier{ClosureDistance: DefaultClosureDistance, Tolerance: DefaultSmoothTolerance}
}

// ClassifyOpen reports whether the first and last vertices are further
// apart than the closure distance.
func (s Simplifier) ClassifyOpen(p *Polygon) bool {
	if len(p.Vertices) == 0 {
		return false
	}
	return r2.Norm(r2.Sub(vec(p.First()), vec(p.Last()))) > s.ClosureDistance
}

// Smooth compacts runs of nearly collinear vertices. Each pass walks from
// the first vertex to the last; from vertex i it finds the furthest j such
// that every vertex strictly between i and j lies within Tolerance of the
// line through i and j, and removes those vertices. Passes repeat until
// one removes nothing, so smoothing a smoothed polygon is a no-op. The
// vertex list is treated as an open chain.
func (s Simplifier) Smooth(p *Polygon) {
	v := p.Vertices
	for {
		n := len(v)
		v = s.smoothPass(v)
		if len(v) == n {
			break
		}
	}
	p.Vertices = v
	p.UpdateBounds()
}

func (s Simplifier) smoothPass(v []image.Point) []image.Point {
	for i := 0; i < len(v)-1; i++ {
		j := i + 2
		for j < len(v) && s.within(v, i, j) {
			j++
		}
		// j-1 is the last end that kept every vertex in tolerance.
		if last := j - 1; last > i+1 {
			v = append(v[:i+1], v[last:]...)
		}
	}
	return v
}

func (s Simplifier) within(v []image.Point, i, j int) bool {
	a, b := vec(v[i]), vec(v[j])
	for k := i + 1; k < j; k++ {
		if lineDistance(vec(v[k]), a, b) > s.Tolerance {
			return false
		}
	}
	return true
}

// TrimClosure drops the repeated closing vertex of a closed polygon.
func (s Simplifier) TrimClosure(p *Polygon) {
	if p.Open || len(p.Vertices) < 2 || p.First() != p.Last() {
		return
	}
	p.Vertices = p.Vertices[:len(p.Vertices)-1]
	p.UpdateBounds()
}

// Simplify classifies p, smooths it and trims a repeated closing vertex.
// The open flag is decided before anything is removed.
func (s Simplifier) Simplify(p *Polygon) {
	p.Open = s.ClassifyOpen(p)
	s.Smooth(p)
	s.TrimClosure(p)
}

// lineDistance returns the distance from q to the line through a and b,
// or to a itself when a and b coincide.
func lineDistance(q, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	n := r2.Norm(ab)
	if n == 0 {
		return r2.Norm(r2.Sub(q, a))
	}
	aq := r2.Sub(q, a)
	return math.Abs(ab.X*aq.Y-ab.Y*aq.X) / n
}

func vec(p image.Point) r2.Vec { return r2.Vec{X: float64(p.X), Y: float64(p.Y)} }

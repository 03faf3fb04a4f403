// Package slicer cuts mesh facets with horizontal planes.
//
// Planes sit at z_i = i × thickness for i in [0, SliceCount). A facet is
// only tested against the planes inside its own Z range, and each test
// yields at most one segment.
package slicer

import (
	"fmt"

	"github.com/chazu/lamina/pkg/mesh"
	"gonum.org/v1/gonum/spatial/r2"
)

// Segment is a piece of a slice outline projected onto the XY plane.
type Segment struct {
	A, B r2.Vec
}

// Degenerate reports whether both ends coincide.
func (s Segment) Degenerate() bool { return s.A == s.B }

// Case says how a facet met a plane.
type Case int

const (
	CaseNone     Case = iota // no vertex on the plane and no sign change
	CaseCrossing             // the plane cuts through the facet
	CaseEdge                 // one facet edge lies in the plane
	CaseVertex               // one vertex touches the plane and nothing crosses
	CaseCoplanar             // the whole facet lies in the plane
)

var caseNames = [...]string{"none", "crossing", "edge", "vertex", "coplanar"}

func (c Case) String() string {
	if int(c) < len(caseNames) {
		return caseNames[c]
	}
	return fmt.Sprintf("Case(%d)", int(c))
}

// Intersect returns the segment where tri meets the plane at height z.
// The second result is false when the facet contributes nothing.
func Intersect(tri mesh.Triangle, z float64) (Segment, bool) {
	seg, c := Classify(tri, z)
	return seg, c == CaseCrossing || c == CaseEdge
}

// Classify intersects tri with the plane at height z and reports which
// case applied. The segment is only meaningful for CaseCrossing and
// CaseEdge.
func Classify(tri mesh.Triangle, z float64) (Segment, Case) {
	var d [3]float64
	var on []int
	for i, v := range tri {
		d[i] = v.Z - z
		if d[i] == 0 {
			on = append(on, i)
		}
	}

	switch len(on) {
	case 3:
		return Segment{}, CaseCoplanar
	case 2:
		return Segment{A: project(tri[on[0]]), B: project(tri[on[1]])}, CaseEdge
	case 1:
		// Only the edge opposite the touching vertex can still cross.
		a, b := (on[0]+1)%3, (on[0]+2)%3
		if (d[a] < 0) == (d[b] < 0) {
			return Segment{}, CaseVertex
		}
		return Segment{A: project(tri[on[0]]), B: lerp(tri[a], tri[b], d[a], d[b])}, CaseCrossing
	}

	var pts [2]r2.Vec
	n := 0
	for i := 0; i < 3; i++ {
		j := (i + 1) % 3
		if (d[i] < 0) != (d[j] < 0) {
			pts[n] = lerp(tri[i], tri[j], d[i], d[j])
			n++
		}
	}
	if n != 2 {
		return Segment{}, CaseNone
	}
	return Segment{A: pts[0], B: pts[1]}, CaseCrossing
}

// lerp returns the XY point where the edge a→b reaches the plane, given
// the signed distances of its ends. The ends are put in a fixed order first
// so that the two facets sharing an edge compute bit-identical points.
func lerp(a, b mesh.Vec3, da, db float64) r2.Vec {
	if less(b, a) {
		a, b, da, db = b, a, db, da
	}
	s := da / (da - db)
	return r2.Vec{X: a.X + s*(b.X-a.X), Y: a.Y + s*(b.Y-a.Y)}
}

func less(a, b mesh.Vec3) bool {
	if a.Z != b.Z {
		return a.Z < b.Z
	}
	if a.X != b.X {
		return a.X < b.X
	}
	return a.Y < b.Y
}

func project(v mesh.Vec3) r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

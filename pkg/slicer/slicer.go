package slicer

import (
	"math"

	"github.com/chazu/lamina/pkg/mesh"
)

// SliceCount returns the number of planes needed for a part of the given
// height: one per thickness step plus a pad above the top.
func SliceCount(height, thickness float64) int {
	return int(math.Floor(height/thickness)) + 2
}

// Height returns the Z of plane i.
func Height(i int, thickness float64) float64 {
	return float64(i) * thickness
}

// CandidateRange returns the inclusive range of plane indices that can
// meet tri. lo > hi means the facet sits strictly between two planes.
func CandidateRange(tri mesh.Triangle, thickness float64) (lo, hi int) {
	zmin, zmax := tri.ZRange()
	lo = int(math.Ceil(zmin / thickness))
	hi = int(math.Floor(zmax / thickness))
	return max(lo, 0), hi
}

// Stats counts how facets met their candidate planes.
type Stats struct {
	Tests    int
	Segments int
	Cases    [5]int // indexed by Case
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Tests += o.Tests
	s.Segments += o.Segments
	for i := range s.Cases {
		s.Cases[i] += o.Cases[i]
	}
}

// Count returns how many tests ended in case c.
func (s Stats) Count(c Case) int { return s.Cases[c] }

// Bin intersects every facet with its candidate planes and groups the
// resulting segments by plane index. The mesh is expected to rest on
// Z = 0; planes are indexed from there.
func Bin(m *mesh.Mesh, thickness float64) ([][]Segment, Stats) {
	n := SliceCount(m.Bounds.Max.Z, thickness)
	return BinRange(m.Triangles, thickness, n)
}

// BinRange is Bin over an explicit facet list and plane count. Segments
// that would land on planes at or beyond n are dropped.
func BinRange(tris []mesh.Triangle, thickness float64, n int) ([][]Segment, Stats) {
	layers := make([][]Segment, n)
	var st Stats
	for _, tri := range tris {
		lo, hi := CandidateRange(tri, thickness)
		hi = min(hi, n-1)
		for i := lo; i <= hi; i++ {
			seg, c := Classify(tri, Height(i, thickness))
			st.Tests++
			st.Cases[c]++
			if c != CaseCrossing && c != CaseEdge {
				continue
			}
			st.Segments++
			layers[i] = append(layers[i], seg)
		}
	}
	return layers, st
}

package contour

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// MinLoopVertices is the smallest loop Prune keeps.
const MinLoopVertices = 2

// PruneOptions holds the thresholds used by Prune. Areas are in square
// pixels, BoundaryEpsilon in pixels.
type PruneOptions struct {
	MinArea         float64
	DuplicateArea   float64
	BoundaryEpsilon int
}

// DefaultPruneOptions returns the thresholds for a dim × dim plane.
func DefaultPruneOptions(dim int) PruneOptions {
	return PruneOptions{
		MinArea:         float64(dim) / 100,
		DuplicateArea:   float64(dim) / 20,
		BoundaryEpsilon: 2,
	}
}

// Ring returns the loop as an orb ring.
func (l Loop) Ring() orb.Ring {
	r := make(orb.Ring, len(l))
	for i, p := range l {
		r[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	return r
}

// Area returns the shoelace area of the loop, treating it as closed.
func (l Loop) Area() float64 {
	if len(l) < 3 {
		return 0
	}
	return planar.Area(l.Ring())
}

type pruneCandidate struct {
	loop  Loop
	area  float64
	bound orb.Bound
}

// Prune drops loops that are too short or too small, and the second of
// any two loops tracing the same boundary. Survivors keep their order.
func Prune(loops []Loop, opts PruneOptions) []Loop {
	var kept []pruneCandidate
	for _, l := range loops {
		if len(l) < MinLoopVertices {
			continue
		}
		a := math.Abs(l.Area())
		if a < opts.MinArea {
			continue
		}
		kept = append(kept, pruneCandidate{loop: l, area: a, bound: l.Ring().Bound()})
	}

	dropped := make([]bool, len(kept))
	for j := range kept {
		if dropped[j] {
			continue
		}
		for k := j + 1; k < len(kept); k++ {
			if dropped[k] {
				continue
			}
			if sameBounds(kept[j].bound, kept[k].bound, float64(opts.BoundaryEpsilon)) &&
				math.Abs(kept[j].area-kept[k].area) < opts.DuplicateArea {
				dropped[k] = true
			}
		}
	}

	out := make([]Loop, 0, len(kept))
	for i, c := range kept {
		if !dropped[i] {
			out = append(out, c.loop)
		}
	}
	return out
}

func sameBounds(a, b orb.Bound, eps float64) bool {
	return math.Abs(a.Left()-b.Left()) < eps &&
		math.Abs(a.Right()-b.Right()) < eps &&
		math.Abs(a.Bottom()-b.Bottom()) < eps &&
		math.Abs(a.Top()-b.Top()) < eps
}

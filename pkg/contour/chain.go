package contour

import (
	"image"
	"slices"
	"sort"

	"github.com/chazu/lamina/pkg/slicer"
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultTolerance is the model-space distance under which two segment
// ends are treated as the same point.
const DefaultTolerance = 1e-6

// ChainExtractor joins segments end to end in model space and only snaps
// to pixels once a loop is complete. It does not lose thin features to
// rasterisation, and each boundary is traced once.
type ChainExtractor struct {
	Plane     Plane
	Tolerance float64 // zero means DefaultTolerance
}

var _ Extractor = (*ChainExtractor)(nil)

// endpoint is one end of a segment, indexed in the r-tree.
type endpoint struct {
	seg int
	end int // 0 for A, 1 for B
	p   r2.Vec
	bb  rtreego.Rect
}

func (e *endpoint) Bounds() rtreego.Rect { return e.bb }

// chainIndex finds unused segment ends near a point.
type chainIndex struct {
	tree *rtreego.Rtree
	segs []slicer.Segment
	used []bool
	tol  float64
}

func newChainIndex(tol float64) *chainIndex {
	return &chainIndex{tree: rtreego.NewTree(2, 4, 16), tol: tol}
}

// add indexes s unless it is degenerate or repeats an indexed segment.
func (ix *chainIndex) add(s slicer.Segment) bool {
	if r2.Norm(r2.Sub(s.A, s.B)) <= ix.tol {
		return false
	}
	for _, e := range ix.near(s.A, false) {
		other := ix.segs[e.seg].A
		if e.end == 0 {
			other = ix.segs[e.seg].B
		}
		if r2.Norm(r2.Sub(other, s.B)) <= ix.tol {
			return false
		}
	}
	i := len(ix.segs)
	ix.segs = append(ix.segs, s)
	ix.used = append(ix.used, false)
	ix.insert(i, 0, s.A)
	ix.insert(i, 1, s.B)
	return true
}

func (ix *chainIndex) insert(seg, end int, p r2.Vec) {
	ix.tree.Insert(&endpoint{seg: seg, end: end, p: p, bb: rtreego.Point{p.X, p.Y}.ToRect(ix.tol / 4)})
}

// near returns the indexed ends within tolerance of p, lowest segment
// first. With unusedOnly set, ends of consumed segments are skipped.
func (ix *chainIndex) near(p r2.Vec, unusedOnly bool) []*endpoint {
	hits := ix.tree.SearchIntersect(rtreego.Point{p.X, p.Y}.ToRect(ix.tol))
	out := make([]*endpoint, 0, len(hits))
	for _, h := range hits {
		e := h.(*endpoint)
		if unusedOnly && ix.used[e.seg] {
			continue
		}
		if r2.Norm(r2.Sub(e.p, p)) <= ix.tol {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].seg != out[j].seg {
			return out[i].seg < out[j].seg
		}
		return out[i].end < out[j].end
	})
	return out
}

// next consumes the first unused segment touching p and returns its far end.
func (ix *chainIndex) next(p r2.Vec) (r2.Vec, bool) {
	hits := ix.near(p, true)
	if len(hits) == 0 {
		return r2.Vec{}, false
	}
	e := hits[0]
	ix.used[e.seg] = true
	if e.end == 0 {
		return ix.segs[e.seg].B, true
	}
	return ix.segs[e.seg].A, true
}

// Extract chains segs into loops. Closed chains come back with their first
// pixel repeated at the end and start at their lowest (y, x) pixel.
func (c *ChainExtractor) Extract(segs []slicer.Segment) []Loop {
	tol := c.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	ix := newChainIndex(tol)
	for _, s := range segs {
		ix.add(s)
	}

	var loops []Loop
	for i := range ix.segs {
		if ix.used[i] {
			continue
		}
		ix.used[i] = true
		chain := []r2.Vec{ix.segs[i].A, ix.segs[i].B}
		closed := false
		for {
			p, ok := ix.next(chain[len(chain)-1])
			if !ok {
				break
			}
			if r2.Norm(r2.Sub(p, chain[0])) <= tol {
				chain = append(chain, chain[0])
				closed = true
				break
			}
			chain = append(chain, p)
		}
		if !closed {
			// Walk back from the first point so an open chain is emitted whole.
			var back []r2.Vec
			for cur := chain[0]; ; {
				p, ok := ix.next(cur)
				if !ok {
					break
				}
				back = append(back, p)
				cur = p
			}
			slices.Reverse(back)
			chain = append(back, chain...)
		}
		if l := c.toLoop(chain, closed); len(l) > 0 {
			loops = append(loops, l)
		}
	}
	return loops
}

func (c *ChainExtractor) toLoop(chain []r2.Vec, closed bool) Loop {
	l := make(Loop, 0, len(chain))
	for _, v := range chain {
		px := c.Plane.Pixel(v)
		if len(l) > 0 && l[len(l)-1] == px {
			continue
		}
		l = append(l, px)
	}
	if closed && len(l) > 2 {
		l = rotateToLowest(l)
	}
	return l
}

// rotateToLowest rotates a closed loop so it starts at its lowest (y, x)
// pixel, keeping the closing repeat.
func rotateToLowest(l Loop) Loop {
	ring := l[:len(l)-1]
	best := 0
	for i, p := range ring {
		if lowerPoint(p, ring[best]) {
			best = i
		}
	}
	out := make(Loop, 0, len(ring)+1)
	out = append(out, ring[best:]...)
	out = append(out, ring[:best]...)
	return append(out, out[0])
}

func lowerPoint(a, b image.Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

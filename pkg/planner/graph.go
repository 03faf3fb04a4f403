package planner

import (
	"image"
	"math"

	"github.com/chazu/lamina/pkg/polygon"
	"gonum.org/v1/gonum/spatial/r2"
)

// Graph is the complete travel graph of one slice. Weights and refined
// vertex indices live in two n × n arrays indexed by polygon ordinal.
type Graph struct {
	n      int
	weight []int
	vertex []int
}

// NewGraph builds the graph for polys. For every pair it finds the
// closest pair of bounding-box corners (first minimum wins), stores the
// floored distance as the weight, and refines each side to the vertex
// nearest the other side's winning corner.
func NewGraph(polys []polygon.Polygon) *Graph {
	n := len(polys)
	g := &Graph{n: n, weight: make([]int, n*n), vertex: make([]int, n*n)}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			ca, cb, d := closestCorners(&polys[a], &polys[b])
			w := int(math.Floor(d))
			g.weight[a*n+b] = w
			g.weight[b*n+a] = w
			g.vertex[a*n+b] = polys[a].Closest(cb)
			g.vertex[b*n+a] = polys[b].Closest(ca)
		}
	}
	return g
}

// Len returns the number of polygons in the graph.
func (g *Graph) Len() int { return g.n }

// Weight returns the floored corner distance between polygons a and b.
func (g *Graph) Weight(a, b int) int { return g.weight[a*g.n+b] }

// Vertex returns the index of the vertex of a nearest to b.
func (g *Graph) Vertex(a, b int) int { return g.vertex[a*g.n+b] }

func closestCorners(a, b *polygon.Polygon) (ca, cb image.Point, d float64) {
	d = math.Inf(1)
	for _, p := range a.Corners {
		for _, q := range b.Corners {
			if dd := distance(p, q); dd < d {
				ca, cb, d = p, q, dd
			}
		}
	}
	return ca, cb, d
}

func distance(p, q image.Point) float64 {
	return r2.Norm(r2.Sub(vec(p), vec(q)))
}

func vec(p image.Point) r2.Vec { return r2.Vec{X: float64(p.X), Y: float64(p.Y)} }

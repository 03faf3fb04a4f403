// Package planner orders the polygons of a slice into a travel tour and
// picks where each polygon is entered and left.
//
// The tour is greedy: it starts at the polygon with a bounding-box corner
// nearest the cursor and repeatedly moves to the nearest unvisited
// polygon. The cursor returned by Plan is fed to the next slice.
//
// The last polygon of a tour always exits at vertex 0; choosing a better
// exit needs a path inside the polygon, which is not computed here.
//
// Facets lying exactly on a slice plane add no segments to that slice, so
// the tour is planned over whatever the remaining facets outline. This is
// not an error: the pipeline counts such facets and logs a warning.
package planner

import (
	"fmt"
	"image"
	"math"

	"github.com/chazu/lamina/pkg/polygon"
)

// Plan orders polys, sets their Entry and Exit, and returns the tour and
// the cursor for the next slice. With no polygons it returns a nil order
// and the cursor unchanged. A single polygon is returned as-is.
//
// Plan panics if the tour cannot be completed or an assigned index is
// out of range; both mean the graph was built wrongly.
func Plan(polys []polygon.Polygon, cursor image.Point) ([]int, image.Point) {
	switch len(polys) {
	case 0:
		return nil, cursor
	case 1:
		return []int{0}, polys[0].Last()
	}

	g := NewGraph(polys)
	start, startVertex := Start(polys, cursor)
	order := g.Tour(start)
	assign(polys, g, order, startVertex)

	last := &polys[order[len(order)-1]]
	return order, last.Last()
}

// Start returns the polygon owning the bounding-box corner nearest the
// cursor and that polygon's vertex nearest the cursor.
func Start(polys []polygon.Polygon, cursor image.Point) (poly, vertex int) {
	best := math.Inf(1)
	for i := range polys {
		for _, c := range polys[i].Corners {
			if d := distance(cursor, c); d < best {
				best, poly = d, i
			}
		}
	}
	return poly, polys[poly].Closest(cursor)
}

// Tour walks the graph from start, always moving to the unvisited node
// with the lowest weight. Ties go to the lower index.
func (g *Graph) Tour(start int) []int {
	visited := make([]bool, g.n)
	order := make([]int, 0, g.n)
	cur := start
	visited[cur] = true
	order = append(order, cur)
	for len(order) < g.n {
		next := -1
		for j := 0; j < g.n; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || g.Weight(cur, j) < g.Weight(cur, next) {
				next = j
			}
		}
		if next < 0 {
			panic(fmt.Sprintf("planner: no unvisited polygon reachable from %d (%d of %d visited)", cur, len(order), g.n))
		}
		visited[next] = true
		order = append(order, next)
		cur = next
	}
	return order
}

func assign(polys []polygon.Polygon, g *Graph, order []int, startVertex int) {
	n := len(order)
	for i, id := range order {
		p := &polys[id]
		switch i {
		case 0:
			p.Entry = startVertex
			p.Exit = g.Vertex(id, order[1])
		case n - 1:
			p.Entry = g.Vertex(id, order[i-1])
			p.Exit = 0
		default:
			p.Entry = g.Vertex(id, order[i-1])
			p.Exit = g.Vertex(id, order[i+1])
		}
		if p.Entry < 0 || p.Entry >= len(p.Vertices) {
			panic(fmt.Sprintf("planner: polygon %d entry %d out of range [0, %d)", id, p.Entry, len(p.Vertices)))
		}
		if p.Exit < 0 || p.Exit >= len(p.Vertices) {
			panic(fmt.Sprintf("planner: polygon %d exit %d out of range [0, %d)", id, p.Exit, len(p.Vertices)))
		}
	}
}

// TravelDistance returns the length of the jumps a tour makes: from the
// cursor to the first entry, then from each exit to the next entry.
func TravelDistance(polys []polygon.Polygon, order []int, cursor image.Point) float64 {
	total := 0.0
	at := cursor
	for _, id := range order {
		p := &polys[id]
		total += distance(at, p.Vertices[p.Entry])
		at = p.Vertices[p.Exit]
	}
	return total
}

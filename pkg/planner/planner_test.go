package planner

import (
	"image"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/chazu/lamina/pkg/polygon"
	"github.com/google/go-cmp/cmp"
)

// square returns the polygon with corners (x, y) and (x+size, y+size),
// listed counterclockwise from (x, y).
func square(x, y, size int) polygon.Polygon {
	return polygon.New([]image.Point{
		{X: x, Y: y},
		{X: x + size, Y: y},
		{X: x + size, Y: y + size},
		{X: x, Y: y + size},
	})
}

func TestPlanEmpty(t *testing.T) {
	cursor := image.Point{X: 7, Y: 9}
	order, next := Plan(nil, cursor)
	if order != nil || next != cursor {
		t.Errorf("Plan(nil) = %v, %v, want nil, %v", order, next, cursor)
	}
}

func TestPlanSingle(t *testing.T) {
	polys := []polygon.Polygon{square(445, 445, 10)}
	order, next := Plan(polys, image.Point{X: 900, Y: 900})
	if diff := cmp.Diff([]int{0}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if polys[0].Entry != 0 || polys[0].Exit != 0 {
		t.Errorf("Entry/Exit = %d/%d, want 0/0", polys[0].Entry, polys[0].Exit)
	}
	if want := (image.Point{X: 445, Y: 455}); next != want {
		t.Errorf("cursor = %v, want %v", next, want)
	}
}

func TestPlanTwoSquares(t *testing.T) {
	tests := []struct {
		name       string
		cursor     image.Point
		order      []int
		entry      [2]int
		exit       [2]int
		nextCursor image.Point
	}{
		{
			name:       "from the left",
			cursor:     image.Point{},
			order:      []int{0, 1},
			entry:      [2]int{0, 3}, // a at (0,0); b at (20,10)
			exit:       [2]int{2, 0}, // a at (10,10); b falls back to vertex 0
			nextCursor: image.Point{X: 20, Y: 10},
		},
		{
			name:       "from the right",
			cursor:     image.Point{X: 40},
			order:      []int{1, 0},
			entry:      [2]int{2, 1}, // a at (10,10); b at (30,0)
			exit:       [2]int{0, 3}, // a falls back to vertex 0; b at (20,10)
			nextCursor: image.Point{X: 0, Y: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			polys := []polygon.Polygon{square(0, 0, 10), square(20, 0, 10)}
			order, next := Plan(polys, tt.cursor)
			if diff := cmp.Diff(tt.order, order); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
			for i, p := range polys {
				if p.Entry != tt.entry[i] || p.Exit != tt.exit[i] {
					t.Errorf("polygon %d: Entry/Exit = %d/%d, want %d/%d", i, p.Entry, p.Exit, tt.entry[i], tt.exit[i])
				}
			}
			if next != tt.nextCursor {
				t.Errorf("cursor = %v, want %v", next, tt.nextCursor)
			}
		})
	}
}

func TestGraph(t *testing.T) {
	polys := []polygon.Polygon{square(0, 0, 10), square(20, 0, 10), square(20, 20, 10)}
	g := NewGraph(polys)
	if g.Len() != 3 {
		t.Fatalf("Len = %d", g.Len())
	}
	tests := []struct {
		a, b, weight, vertex int
	}{
		{0, 1, 10, 2},
		{1, 0, 10, 3},
		{0, 2, 14, 2}, // sqrt(200) floored
		{2, 0, 14, 0},
		{1, 2, 10, 3},
		{2, 1, 10, 0},
	}
	for _, tt := range tests {
		if got := g.Weight(tt.a, tt.b); got != tt.weight {
			t.Errorf("Weight(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.weight)
		}
		if got := g.Vertex(tt.a, tt.b); got != tt.vertex {
			t.Errorf("Vertex(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.vertex)
		}
	}
}

func TestTourGreedy(t *testing.T) {
	polys := []polygon.Polygon{square(0, 0, 10), square(100, 0, 10), square(30, 0, 10)}
	order, _ := Plan(polys, image.Point{})
	if diff := cmp.Diff([]int{0, 2, 1}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestTourTieGoesToLowerIndex(t *testing.T) {
	// Both neighbours of polygon 0 are exactly 10 away.
	polys := []polygon.Polygon{square(0, 0, 10), square(20, 0, 10), square(0, 20, 10)}
	order, _ := Plan(polys, image.Point{})
	if diff := cmp.Diff([]int{0, 1, 2}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.IntN(12)
		polys := make([]polygon.Polygon, n)
		for i := range polys {
			polys[i] = square(rng.IntN(800), rng.IntN(800), 1+rng.IntN(60))
		}
		cursor := image.Point{X: rng.IntN(900), Y: rng.IntN(900)}

		g := NewGraph(polys)
		for a := 0; a < n; a++ {
			for b := 0; b < n; b++ {
				if g.Weight(a, b) != g.Weight(b, a) {
					t.Fatalf("trial %d: Weight(%d, %d) != Weight(%d, %d)", trial, a, b, b, a)
				}
			}
		}

		order, next := Plan(polys, cursor)
		sorted := slices.Clone(order)
		slices.Sort(sorted)
		for i, v := range sorted {
			if v != i {
				t.Fatalf("trial %d: order %v is not a permutation of 0..%d", trial, order, n-1)
			}
		}
		for i, p := range polys {
			if p.Entry < 0 || p.Entry >= len(p.Vertices) || p.Exit < 0 || p.Exit >= len(p.Vertices) {
				t.Fatalf("trial %d: polygon %d Entry/Exit %d/%d out of range", trial, i, p.Entry, p.Exit)
			}
		}
		if want := polys[order[n-1]].Last(); next != want {
			t.Fatalf("trial %d: cursor = %v, want %v", trial, next, want)
		}
	}
}

func TestPlanPanicsOnEmptyPolygon(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Plan did not panic")
		}
		if msg, ok := r.(string); !ok || !strings.HasPrefix(msg, "planner:") {
			t.Errorf("panic = %v, want planner: message", r)
		}
	}()
	Plan([]polygon.Polygon{square(0, 0, 10), {}}, image.Point{X: 50, Y: 50})
}

func TestTravelDistance(t *testing.T) {
	polys := []polygon.Polygon{square(0, 0, 10), square(20, 0, 10)}
	order, _ := Plan(polys, image.Point{})
	if got := TravelDistance(polys, order, image.Point{}); got != 10 {
		t.Errorf("TravelDistance = %v, want 10", got)
	}
}

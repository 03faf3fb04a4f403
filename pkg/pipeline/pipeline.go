// Package pipeline runs a mesh through slicing, loop extraction,
// pruning, simplification and path planning.
//
// Geometry for all slices is computed concurrently. Planning then runs
// slice by slice in increasing height, because each slice starts from the
// cursor the previous one left behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/chazu/lamina/pkg/contour"
	"github.com/chazu/lamina/pkg/mesh"
	"github.com/chazu/lamina/pkg/planner"
	"github.com/chazu/lamina/pkg/polygon"
	"github.com/chazu/lamina/pkg/slicer"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidOptions is returned by Run for options it cannot work with.
var ErrInvalidOptions = errors.New("pipeline: invalid options")

// Options controls a run.
type Options struct {
	Scale      float64 // uniform scale applied before slicing; 0 means 1
	Center     bool    // move the XY midpoint to the origin
	Thickness  float64
	Dim        int
	Extractor  contour.Kind
	Prune      contour.PruneOptions
	Simplifier polygon.Simplifier
	Workers    int         // 0 means GOMAXPROCS
	Origin     image.Point // cursor for the first slice
}

// DefaultOptions returns the options for a dim × dim plane with unit
// slice thickness.
func DefaultOptions(dim int) Options {
	return Options{
		Scale:      1,
		Center:     true,
		Thickness:  1,
		Dim:        dim,
		Extractor:  contour.KindChain,
		Prune:      contour.DefaultPruneOptions(dim),
		Simplifier: polygon.DefaultSimplifier(),
	}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Slice is one cross-section. Polygons keep extraction order; Order lists
// them in travel order. Cursor is where the tool stood when the slice
// began.
type Slice struct {
	Index       int
	Z           float64
	Segments    int
	Loops       int // before pruning
	RawVertices int // of the surviving loops, before simplification
	Polygons    []polygon.Polygon
	Order       []int
	Bounds      polygon.Rect
	Cursor      image.Point
}

// Empty reports whether the slice has no polygons.
func (s *Slice) Empty() bool { return len(s.Polygons) == 0 }

// Ordered returns the polygons in travel order.
func (s *Slice) Ordered() []polygon.Polygon {
	return lo.Map(s.Order, func(id int, _ int) polygon.Polygon { return s.Polygons[id] })
}

// Stats summarises a run.
type Stats struct {
	Facets       int
	Slices       int
	EmptySlices  int
	Segments     int
	Loops        int
	Polygons     int
	OpenPolygons int
	RawVertices  int // before simplification
	Vertices     int
	Coplanar     int
	VertexOnly   int
	Travel       float64
	MeanVertices float64 // per non-empty slice
	StdVertices  float64
	Elapsed      time.Duration
}

// Result is the output of Run.
type Result struct {
	Mesh   *mesh.Mesh // as sliced, after scaling and centring
	Slices []Slice
	Stats  Stats
	Cursor image.Point // after the last slice

	Dim       int // working plane size in pixels
	Thickness float64
}

// Prepare scales m and moves it so its lowest point is at Z = 0,
// centring it in XY when center is set.
func Prepare(m *mesh.Mesh, scale float64, center bool) *mesh.Mesh {
	if scale != 0 && scale != 1 {
		m = m.Scale(scale)
	}
	if center {
		return m.Center()
	}
	return m.Translate(mesh.Vec3{Z: -m.Bounds.Min.Z})
}

// Run slices m with opts.
func Run(ctx context.Context, m *mesh.Mesh, opts Options) (*Result, error) {
	if m == nil || len(m.Triangles) == 0 {
		return nil, mesh.ErrEmptyMesh
	}
	if opts.Thickness <= 0 {
		return nil, fmt.Errorf("%w: thickness %v", ErrInvalidOptions, opts.Thickness)
	}
	if opts.Dim <= 0 {
		return nil, fmt.Errorf("%w: plane dimension %d", ErrInvalidOptions, opts.Dim)
	}
	ex, err := contour.New(opts.Extractor, opts.Dim)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	log := Logger()
	m = Prepare(m, opts.Scale, opts.Center)

	layers, cases := slicer.Bin(m, opts.Thickness)
	if n := cases.Count(slicer.CaseCoplanar); n > 0 {
		log.Warn("facets lie on slice planes and were skipped", "facets", n)
	}

	slices := make([]Slice, len(layers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range layers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slices[i] = buildSlice(i, layers[i], ex, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	cursor := opts.Origin
	travel := 0.0
	for i := range slices {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		s := &slices[i]
		s.Cursor = cursor
		if s.Empty() {
			continue
		}
		var next image.Point
		s.Order, next = planner.Plan(s.Polygons, cursor)
		travel += planner.TravelDistance(s.Polygons, s.Order, cursor)
		log.Debug("slice planned", "index", s.Index, "z", s.Z, "polygons", len(s.Polygons), "from", cursor, "to", next)
		cursor = next
	}

	res := &Result{Mesh: m, Slices: slices, Cursor: cursor, Dim: opts.Dim, Thickness: opts.Thickness}
	res.Stats = summarize(slices, cases)
	res.Stats.Facets = len(m.Triangles)
	res.Stats.Travel = travel
	res.Stats.Elapsed = time.Since(start)
	log.Info("slicing done",
		"slices", res.Stats.Slices,
		"polygons", res.Stats.Polygons,
		"vertices", res.Stats.Vertices,
		"elapsed", res.Stats.Elapsed)
	return res, nil
}

func buildSlice(i int, segs []slicer.Segment, ex contour.Extractor, opts Options) Slice {
	s := Slice{Index: i, Z: slicer.Height(i, opts.Thickness), Segments: len(segs)}
	if len(segs) == 0 {
		return s
	}
	loops := ex.Extract(segs)
	s.Loops = len(loops)
	for _, l := range contour.Prune(loops, opts.Prune) {
		s.RawVertices += len(l)
		p := polygon.New(l)
		opts.Simplifier.Simplify(&p)
		if p.Len() == 0 {
			continue
		}
		s.Polygons = append(s.Polygons, p)
	}
	s.Bounds, _ = polygon.Bounds(s.Polygons)
	return s
}

func summarize(slices []Slice, cases slicer.Stats) Stats {
	st := Stats{
		Slices:      len(slices),
		EmptySlices: lo.CountBy(slices, func(s Slice) bool { return s.Empty() }),
		Segments:    cases.Segments,
		Coplanar:    cases.Count(slicer.CaseCoplanar),
		VertexOnly:  cases.Count(slicer.CaseVertex),
	}
	var perSlice []float64
	for _, s := range slices {
		st.Loops += s.Loops
		st.RawVertices += s.RawVertices
		st.Polygons += len(s.Polygons)
		st.OpenPolygons += lo.CountBy(s.Polygons, func(p polygon.Polygon) bool { return p.Open })
		n := polygon.VertexCount(s.Polygons)
		st.Vertices += n
		if !s.Empty() {
			perSlice = append(perSlice, float64(n))
		}
	}
	if len(perSlice) > 0 {
		st.MeanVertices, st.StdVertices = stat.PopMeanStdDev(perSlice, nil)
	}
	return st
}

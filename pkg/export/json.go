package export

import (
	"encoding/json"
	"image"
	"io"

	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/polygon"
	"github.com/samber/lo"
)

// ResultJSON is the serialised form of a pipeline.Result.
type ResultJSON struct {
	Dim       int         `json:"dim"`
	Thickness float64     `json:"thickness"`
	Cursor    [2]int      `json:"cursor"`
	Stats     StatsJSON   `json:"stats"`
	Slices    []SliceJSON `json:"slices"`
}

// StatsJSON mirrors pipeline.Stats.
type StatsJSON struct {
	Facets       int     `json:"facets"`
	Slices       int     `json:"slices"`
	EmptySlices  int     `json:"empty_slices"`
	Segments     int     `json:"segments"`
	Loops        int     `json:"loops"`
	Polygons     int     `json:"polygons"`
	OpenPolygons int     `json:"open_polygons"`
	RawVertices  int     `json:"raw_vertices"`
	Vertices     int     `json:"vertices"`
	Coplanar     int     `json:"coplanar_facets"`
	VertexOnly   int     `json:"vertex_only_facets"`
	Travel       float64 `json:"travel"`
	MeanVertices float64 `json:"mean_vertices"`
	StdVertices  float64 `json:"std_vertices"`
	ElapsedMS    int64   `json:"elapsed_ms"`
}

// SliceJSON is one slice. Polygons are listed in travel order.
type SliceJSON struct {
	Index    int           `json:"index"`
	Z        float64       `json:"z"`
	Segments int           `json:"segments"`
	Loops    int           `json:"loops"`
	RawVerts int           `json:"raw_vertices"`
	Cursor   [2]int        `json:"cursor"`
	Bounds   [4]int        `json:"bounds"` // xmin, ymin, xmax, ymax
	Order    []int         `json:"order,omitempty"`
	Polygons []PolygonJSON `json:"polygons,omitempty"`
}

// PolygonJSON is one polygon with its planned entry and exit.
type PolygonJSON struct {
	ID       int      `json:"id"`
	Open     bool     `json:"open"`
	Entry    int      `json:"entry"`
	Exit     int      `json:"exit"`
	Vertices [][2]int `json:"vertices"`
}

func pt(p image.Point) [2]int { return [2]int{p.X, p.Y} }

// NewResultJSON converts res for serialisation.
func NewResultJSON(res *pipeline.Result) ResultJSON {
	st := res.Stats
	out := ResultJSON{
		Dim:       res.Dim,
		Thickness: res.Thickness,
		Cursor:    pt(res.Cursor),
		Stats: StatsJSON{
			Facets:       st.Facets,
			Slices:       st.Slices,
			EmptySlices:  st.EmptySlices,
			Segments:     st.Segments,
			Loops:        st.Loops,
			Polygons:     st.Polygons,
			OpenPolygons: st.OpenPolygons,
			RawVertices:  st.RawVertices,
			Vertices:     st.Vertices,
			Coplanar:     st.Coplanar,
			VertexOnly:   st.VertexOnly,
			Travel:       st.Travel,
			MeanVertices: st.MeanVertices,
			StdVertices:  st.StdVertices,
			ElapsedMS:    st.Elapsed.Milliseconds(),
		},
		Slices: make([]SliceJSON, len(res.Slices)),
	}
	for i := range res.Slices {
		s := &res.Slices[i]
		sj := SliceJSON{
			Index:    s.Index,
			Z:        s.Z,
			Segments: s.Segments,
			Loops:    s.Loops,
			RawVerts: s.RawVertices,
			Cursor:   pt(s.Cursor),
			Order:    s.Order,
		}
		if !s.Empty() {
			sj.Bounds = [4]int{s.Bounds.Min.X, s.Bounds.Min.Y, s.Bounds.Max.X, s.Bounds.Max.Y}
			sj.Polygons = lo.Map(s.Order, func(id int, _ int) PolygonJSON {
				return newPolygonJSON(id, &s.Polygons[id])
			})
		}
		out.Slices[i] = sj
	}
	return out
}

func newPolygonJSON(id int, p *polygon.Polygon) PolygonJSON {
	return PolygonJSON{
		ID:       id,
		Open:     p.Open,
		Entry:    p.Entry,
		Exit:     p.Exit,
		Vertices: lo.Map(p.Vertices, func(v image.Point, _ int) [2]int { return pt(v) }),
	}
}

// JSON writes res as indented JSON.
func JSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewResultJSON(res))
}

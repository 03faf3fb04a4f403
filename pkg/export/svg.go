package export

import (
	"fmt"
	"io"

	"github.com/chazu/lamina/pkg/pipeline"
	svg "github.com/ajstarks/svgo"
)

const (
	contourStyle = "fill:none;stroke:black;stroke-width:1"
	openStyle    = "fill:none;stroke:orange;stroke-width:1"
	travelStyle  = "stroke:red;stroke-width:0.5;stroke-dasharray:4,2"
	entryStyle   = "fill:blue"
	labelStyle   = "font-family:monospace;font-size:12px;fill:gray"
)

// SVG draws one slice on a dim × dim canvas: polygons in travel order,
// a dot on each entry vertex and dashed travel moves.
func SVG(w io.Writer, s *pipeline.Slice, dim int) error {
	canvas := svg.New(w)
	canvas.Start(dim, dim)
	canvas.Text(4, 14, fmt.Sprintf("slice %d  z=%g", s.Index, s.Z), labelStyle)

	for _, p := range s.Ordered() {
		xs := make([]int, len(p.Vertices))
		ys := make([]int, len(p.Vertices))
		for i, v := range p.Vertices {
			xs[i], ys[i] = v.X, v.Y
		}
		if p.Open {
			canvas.Polyline(xs, ys, openStyle)
		} else {
			canvas.Polygon(xs, ys, contourStyle)
		}
		e := p.Vertices[p.Entry]
		canvas.Circle(e.X, e.Y, 2, entryStyle)
	}

	canvas.Gstyle(travelStyle)
	for _, m := range TravelMoves(s) {
		canvas.Line(m.From.X, m.From.Y, m.To.X, m.To.Y)
	}
	canvas.Gend()

	canvas.End()
	return nil
}

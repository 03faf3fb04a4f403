package export

import (
	"fmt"
	"image/color"
	"io"

	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/polygon"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Summary plots polygons and vertices per slice against slice height and
// writes the chart as PNG.
func Summary(w io.Writer, res *pipeline.Result) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d slices, %d polygons, %d vertices",
		res.Stats.Slices, res.Stats.Polygons, res.Stats.Vertices)
	p.X.Label.Text = "height"
	p.Y.Label.Text = "count"

	polys := make(plotter.XYs, 0, len(res.Slices))
	verts := make(plotter.XYs, 0, len(res.Slices))
	for _, s := range res.Slices {
		polys = append(polys, plotter.XY{X: s.Z, Y: float64(len(s.Polygons))})
		verts = append(verts, plotter.XY{X: s.Z, Y: float64(polygon.VertexCount(s.Polygons))})
	}

	series := []struct {
		name string
		pts  plotter.XYs
		c    color.RGBA
	}{
		{"polygons", polys, color.RGBA{R: 30, G: 60, B: 220, A: 255}},
		{"vertices", verts, color.RGBA{R: 220, G: 30, B: 30, A: 255}},
	}
	for _, sr := range series {
		line, err := plotter.NewLine(sr.pts)
		if err != nil {
			return fmt.Errorf("summary: %s: %w", sr.name, err)
		}
		line.Color = sr.c
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(sr.name, line)
	}
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(8*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

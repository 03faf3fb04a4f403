package export

import (
	"fmt"

	"github.com/chazu/lamina/pkg/contour"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/entity"
)

// DXF writes all non-empty slices to a single drawing at path. Each slice
// gets its own layer and each polygon one LWPOLYLINE in model units.
// Closed polygons repeat their first vertex.
func DXF(path string, res *pipeline.Result) error {
	plane := contour.Plane{Dim: res.Dim}
	d := dxf.NewDrawing()
	d.Header().LtScale = 1.0

	for i := range res.Slices {
		s := &res.Slices[i]
		if s.Empty() {
			continue
		}
		layer := SliceName(s)
		d.AddLayer(layer, color.Red, dxf.DefaultLineType, true)
		d.ChangeLayer(layer)

		for _, p := range s.Ordered() {
			n := len(p.Vertices)
			if !p.Open && n > 1 {
				n++
			}
			lwp := entity.NewLwPolyline(n)
			for j := 0; j < n; j++ {
				v := plane.Model(p.Vertices[j%len(p.Vertices)])
				lwp.Vertices[j] = []float64{v.X, v.Y}
			}
			d.AddEntity(lwp)
		}
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("export: dxf: %w", err)
	}
	return nil
}

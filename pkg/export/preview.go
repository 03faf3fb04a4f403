package export

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
)

var (
	previewContour = color.RGBA{0, 0, 0, 255}
	previewOpen    = color.RGBA{230, 140, 0, 255}
	previewTravel  = color.RGBA{220, 30, 30, 255}
	previewEntry   = color.RGBA{30, 60, 220, 255}
)

// Render draws a slice preview: contours in black (open ones in orange),
// entry vertices in blue and travel moves as red arrows.
func Render(s *pipeline.Slice, dim int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, dim, dim))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	gc := draw2dimg.NewGraphicContext(img)
	gc.SetLineWidth(1)

	for _, p := range s.Ordered() {
		if len(p.Vertices) == 0 {
			continue
		}
		if p.Open {
			gc.SetStrokeColor(previewOpen)
		} else {
			gc.SetStrokeColor(previewContour)
		}
		gc.BeginPath()
		first := p.Vertices[0]
		gc.MoveTo(float64(first.X)+0.5, float64(first.Y)+0.5)
		for _, v := range p.Vertices[1:] {
			gc.LineTo(float64(v.X)+0.5, float64(v.Y)+0.5)
		}
		if !p.Open {
			gc.Close()
		}
		gc.Stroke()

		e := p.Vertices[p.Entry]
		gc.SetFillColor(previewEntry)
		gc.BeginPath()
		draw2dkit.Circle(gc, float64(e.X)+0.5, float64(e.Y)+0.5, 2)
		gc.Fill()
	}

	gc.SetStrokeColor(previewTravel)
	for _, m := range TravelMoves(s) {
		arrow(gc, m)
	}
	return img
}

// arrow strokes a move with a small head at its end.
func arrow(gc *draw2dimg.GraphicContext, m Move) {
	x0, y0 := float64(m.From.X)+0.5, float64(m.From.Y)+0.5
	x1, y1 := float64(m.To.X)+0.5, float64(m.To.Y)+0.5
	gc.BeginPath()
	gc.MoveTo(x0, y0)
	gc.LineTo(x1, y1)

	if dx, dy := x1-x0, y1-y0; dx != 0 || dy != 0 {
		const head, spread = 6.0, math.Pi / 7
		a := math.Atan2(dy, dx)
		gc.MoveTo(x1, y1)
		gc.LineTo(x1-head*math.Cos(a-spread), y1-head*math.Sin(a-spread))
		gc.MoveTo(x1, y1)
		gc.LineTo(x1-head*math.Cos(a+spread), y1-head*math.Sin(a+spread))
	}
	gc.Stroke()
}

// Preview writes Render's image as PNG.
func Preview(w io.Writer, s *pipeline.Slice, dim int) error {
	return png.Encode(w, Render(s, dim))
}

package export

import (
	"image"
	"image/png"
	"io"

	"github.com/chazu/lamina/pkg/pipeline"
	"golang.org/x/image/vector"
)

// maskThreshold is the coverage at which a pixel counts as inside.
const maskThreshold = 0x80

// Mask fills the slice's polygons into a dim × dim bitmap. Polygons are
// composed even-odd, so a loop inside another cuts a hole and a loop
// inside that hole is solid again. Inside pixels are 0xff.
func Mask(s *pipeline.Slice, dim int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, dim, dim))
	if s.Empty() {
		return out
	}

	cover := image.NewAlpha(out.Bounds())
	z := vector.NewRasterizer(dim, dim)
	for _, p := range s.Polygons {
		if len(p.Vertices) < 3 {
			continue
		}
		clear(cover.Pix)
		z.Reset(dim, dim)
		first := p.Vertices[0]
		z.MoveTo(float32(first.X)+0.5, float32(first.Y)+0.5)
		for _, v := range p.Vertices[1:] {
			z.LineTo(float32(v.X)+0.5, float32(v.Y)+0.5)
		}
		z.ClosePath()
		z.Draw(cover, cover.Bounds(), image.Opaque, image.Point{})

		for i, a := range cover.Pix {
			if a >= maskThreshold {
				out.Pix[i] ^= 0xff
			}
		}
	}
	return out
}

// WriteMask writes Mask's bitmap as PNG.
func WriteMask(w io.Writer, s *pipeline.Slice, dim int) error {
	return png.Encode(w, Mask(s, dim))
}

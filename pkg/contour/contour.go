// Package contour turns the segments of one slice into vertex loops on an
// integer working plane, and prunes the loops that should not become
// polygons.
//
// The working plane is Dim × Dim pixels with the model origin at its
// centre, so a model point (x, y) lands on pixel
// (round(x) + Dim/2, round(y) + Dim/2).
package contour

import (
	"fmt"
	"image"
	"math"

	"github.com/chazu/lamina/pkg/slicer"
	"gonum.org/v1/gonum/spatial/r2"
)

// Loop is an ordered run of working-plane pixels. A loop may or may not
// repeat its first point at the end.
type Loop []image.Point

// Closed reports whether the loop ends where it starts.
func (l Loop) Closed() bool {
	return len(l) > 1 && l[0] == l[len(l)-1]
}

// Extractor turns the unordered segments of one slice into loops.
type Extractor interface {
	Extract(segs []slicer.Segment) []Loop
}

// Plane maps model coordinates onto the working plane.
type Plane struct {
	Dim int
}

// Pixel returns the working-plane pixel for a model point.
func (p Plane) Pixel(v r2.Vec) image.Point {
	half := p.Dim / 2
	return image.Point{X: int(math.Round(v.X)) + half, Y: int(math.Round(v.Y)) + half}
}

// Model returns the model point at the centre of a working-plane pixel.
func (p Plane) Model(pt image.Point) r2.Vec {
	half := p.Dim / 2
	return r2.Vec{X: float64(pt.X - half), Y: float64(pt.Y - half)}
}

// Contains reports whether pt lies on the working plane.
func (p Plane) Contains(pt image.Point) bool {
	return pt.X >= 0 && pt.Y >= 0 && pt.X < p.Dim && pt.Y < p.Dim
}

// Kind names an Extractor implementation.
type Kind string

const (
	KindChain  Kind = "chain"
	KindRaster Kind = "raster"
)

// New returns the extractor for kind on a dim × dim working plane.
func New(kind Kind, dim int) (Extractor, error) {
	switch kind {
	case KindChain, "":
		return &ChainExtractor{Plane: Plane{Dim: dim}}, nil
	case KindRaster:
		return &RasterExtractor{Plane: Plane{Dim: dim}}, nil
	}
	return nil, fmt.Errorf("contour: unknown extractor %q", kind)
}

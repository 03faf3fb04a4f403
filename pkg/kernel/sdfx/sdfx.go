// Package sdfx implements kernel.Kernel on top of the signed distance
// field library github.com/deadsy/sdfx. Solids are tessellated with
// uniform marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/lamina/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ kernel.Kernel = (*Kernel)(nil)

// DefaultCells is the marching cubes resolution along the longest axis.
const DefaultCells = 200

type solid struct {
	s sdf.SDF3
}

func (s *solid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	return [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}, [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
}

// Kernel is an sdfx-backed kernel.Kernel.
type Kernel struct {
	cells int
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithCells sets the marching cubes resolution. Values below 8 are raised to 8.
func WithCells(n int) Option {
	return func(k *Kernel) {
		k.cells = max(n, 8)
	}
}

// New returns a Kernel with DefaultCells resolution unless overridden.
func New(opts ...Option) *Kernel {
	k := &Kernel{cells: DefaultCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// Cells returns the marching cubes resolution.
func (k *Kernel) Cells() int { return k.cells }

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*solid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &solid{s: s}
}

// Box returns a box centred on the origin. sdfx only fails here on
// non-positive sizes, which callers validate, so the error panics.
func (k *Kernel) Box(x, y, z float64) kernel.Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	return wrap(s)
}

// Cylinder returns a Z-aligned cylinder centred on the origin.
func (k *Kernel) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(s)
}

// Sphere returns a sphere centred on the origin.
func (k *Kernel) Sphere(radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(s)
}

func (k *Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Intersect3D(unwrap(a), unwrap(b)))
}

func (k *Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})))
}

// Rotate applies X, then Y, then Z rotations given in degrees.
func (k *Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	m := sdf.RotateZ(rad(z)).Mul(sdf.RotateY(rad(y))).Mul(sdf.RotateX(rad(x)))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh tessellates s. Vertices shared between triangles are merged so
// the result is an indexed mesh.
func (k *Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	tris := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	if len(tris) == 0 {
		return nil, fmt.Errorf("sdfx: tessellation produced no triangles")
	}

	index := make(map[[3]float32]uint32, len(tris)*3/2)
	out := &kernel.Mesh{
		Vertices: make([]float32, 0, len(tris)*3*3/2),
		Indices:  make([]uint32, 0, len(tris)*3),
	}
	for _, tri := range tris {
		for j := 0; j < 3; j++ {
			v := tri[j]
			key := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
			idx, ok := index[key]
			if !ok {
				idx = uint32(len(out.Vertices) / 3)
				index[key] = idx
				out.Vertices = append(out.Vertices, key[0], key[1], key[2])
			}
			out.Indices = append(out.Indices, idx)
		}
	}
	return out, nil
}

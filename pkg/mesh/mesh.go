// Package mesh holds the triangle mesh that slicing reads from.
// A Mesh is built once (from an STL file or a kernel solid) and is
// read-only afterwards; the transforms return new meshes.
package mesh

import (
	"errors"
	"math"
)

// ErrEmptyMesh is returned when a mesh has no triangles.
var ErrEmptyMesh = errors.New("mesh: no triangles")

// Vec3 is a point or direction in model space.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * f.
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v.X * f, v.Y * f, v.Z * f} }

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean norm of v.
func (v Vec3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Triangle is one facet of the mesh.
type Triangle [3]Vec3

// ZRange returns the lowest and highest Z of the facet.
func (t Triangle) ZRange() (lo, hi float64) {
	lo, hi = t[0].Z, t[0].Z
	for _, v := range t[1:] {
		lo = math.Min(lo, v.Z)
		hi = math.Max(hi, v.Z)
	}
	return lo, hi
}

// Normal returns the unit facet normal following the right-hand rule.
// Degenerate facets return the zero vector.
func (t Triangle) Normal() Vec3 {
	n := t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
	l := n.Length()
	if l == 0 {
		return Vec3{}
	}
	return n.Scale(1 / l)
}

// Area returns the facet area.
func (t Triangle) Area() float64 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length() / 2
}

// Bounds is an axis-aligned box given by its per-axis minima and maxima.
type Bounds struct {
	Min, Max Vec3
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() Vec3 { return b.Max.Sub(b.Min) }

// Mesh is an immutable triangle list together with its bounds.
type Mesh struct {
	Header    string
	Triangles []Triangle
	Bounds    Bounds
}

// New builds a Mesh from triangles and computes its bounds.
// The slice is owned by the mesh after the call.
func New(tris []Triangle) (*Mesh, error) {
	if len(tris) == 0 {
		return nil, ErrEmptyMesh
	}
	return &Mesh{Triangles: tris, Bounds: boundsOf(tris)}, nil
}

func boundsOf(tris []Triangle) Bounds {
	inf := math.Inf(1)
	b := Bounds{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
	for _, t := range tris {
		for _, v := range t {
			b.Min.X = math.Min(b.Min.X, v.X)
			b.Min.Y = math.Min(b.Min.Y, v.Y)
			b.Min.Z = math.Min(b.Min.Z, v.Z)
			b.Max.X = math.Max(b.Max.X, v.X)
			b.Max.Y = math.Max(b.Max.Y, v.Y)
			b.Max.Z = math.Max(b.Max.Z, v.Z)
		}
	}
	return b
}

// TriangleCount returns the number of facets.
func (m *Mesh) TriangleCount() int { return len(m.Triangles) }

// Height returns the Z extent of the mesh.
func (m *Mesh) Height() float64 { return m.Bounds.Max.Z - m.Bounds.Min.Z }

// Translate returns a copy of m moved by d.
func (m *Mesh) Translate(d Vec3) *Mesh {
	return m.transform(func(v Vec3) Vec3 { return v.Add(d) })
}

// Scale returns a copy of m scaled uniformly about the origin.
func (m *Mesh) Scale(f float64) *Mesh {
	return m.transform(func(v Vec3) Vec3 { return v.Scale(f) })
}

// Center returns a copy of m with its XY midpoint on the origin and its
// lowest point at Z = 0, which is where slicing starts.
func (m *Mesh) Center() *Mesh {
	mid := m.Bounds.Min.Add(m.Bounds.Max).Scale(0.5)
	return m.Translate(Vec3{X: -mid.X, Y: -mid.Y, Z: -m.Bounds.Min.Z})
}

func (m *Mesh) transform(fn func(Vec3) Vec3) *Mesh {
	tris := make([]Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		tris[i] = Triangle{fn(t[0]), fn(t[1]), fn(t[2])}
	}
	return &Mesh{Header: m.Header, Triangles: tris, Bounds: boundsOf(tris)}
}

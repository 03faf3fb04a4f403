package mesh

import (
	"fmt"

	"github.com/chazu/lamina/pkg/kernel"
)

// FromKernel converts a flat-array kernel mesh into a Mesh.
func FromKernel(km *kernel.Mesh) (*Mesh, error) {
	if km == nil || km.TriangleCount() == 0 {
		return nil, ErrEmptyMesh
	}
	nv := uint32(km.VertexCount())
	tris := make([]Triangle, 0, km.TriangleCount())
	for i := 0; i+2 < len(km.Indices); i += 3 {
		var t Triangle
		for j := 0; j < 3; j++ {
			idx := km.Indices[i+j]
			if idx >= nv {
				return nil, fmt.Errorf("mesh: kernel index %d out of range (%d vertices)", idx, nv)
			}
			t[j] = Vec3{
				X: float64(km.Vertices[3*idx]),
				Y: float64(km.Vertices[3*idx+1]),
				Z: float64(km.Vertices[3*idx+2]),
			}
		}
		tris = append(tris, t)
	}
	m, err := New(tris)
	if err != nil {
		return nil, err
	}
	m.Header = km.Name
	return m, nil
}

package kernel

// Mesh is the kernel's tessellation output in flat-array form:
// three floats per vertex and three indices per triangle.
type Mesh struct {
	Vertices []float32
	Indices  []uint32
	Name     string
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.Indices) == 0
}

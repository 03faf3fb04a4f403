package mesh

// Box returns an exact axis-aligned box with its minimum corner at the
// origin, as 12 outward-facing triangles.
func Box(size Vec3) *Mesh {
	x, y, z := size.X, size.Y, size.Z
	c := [8]Vec3{
		{0, 0, 0}, {x, 0, 0}, {x, y, 0}, {0, y, 0},
		{0, 0, z}, {x, 0, z}, {x, y, z}, {0, y, z},
	}
	quads := [6][4]int{
		{0, 3, 2, 1}, // bottom
		{4, 5, 6, 7}, // top
		{0, 1, 5, 4}, // front
		{1, 2, 6, 5}, // right
		{2, 3, 7, 6}, // back
		{3, 0, 4, 7}, // left
	}
	tris := make([]Triangle, 0, 12)
	for _, q := range quads {
		tris = append(tris,
			Triangle{c[q[0]], c[q[1]], c[q[2]]},
			Triangle{c[q[0]], c[q[2]], c[q[3]]},
		)
	}
	m, _ := New(tris)
	m.Header = "box"
	return m
}

package mesh

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// ErrTruncated is returned when an STL stream ends before the declared
// number of facets has been read.
var ErrTruncated = errors.New("mesh: truncated STL data")

const (
	maxInitialFacets = 1 << 16

	stlHeaderSize = 80
	stlRecordSize = 12 + 3*12 + 2 // normal, three vertices, attribute
)

// stlHeader is the fixed preamble of a binary STL file.
type stlHeader struct {
	Text  [stlHeaderSize]byte
	Count uint32
}

// LoadSTL opens path and reads it as a binary STL file.
func LoadSTL(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mesh: open %s: %w", path, err)
	}
	defer f.Close()

	m, err := ReadSTL(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("mesh: load %s: %w", path, err)
	}
	return m, nil
}

// ReadSTL decodes a binary STL stream. Facet normals and attribute bytes
// are ignored; the vertices are widened to float64.
func ReadSTL(r io.Reader) (*Mesh, error) {
	var h stlHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncated
		}
		return nil, err
	}
	if h.Count == 0 {
		return nil, ErrEmptyMesh
	}

	// The header count is not trusted for allocation; a short stream is
	// caught by the reads below.
	tris := make([]Triangle, 0, min(h.Count, maxInitialFacets))
	buf := make([]byte, stlRecordSize)
	for i := uint32(0); i < h.Count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("facet %d of %d: %w", i, h.Count, ErrTruncated)
			}
			return nil, err
		}
		var t Triangle
		for v := 0; v < 3; v++ {
			off := 12 + 12*v
			t[v] = Vec3{
				X: float64(readFloat32(buf[off:])),
				Y: float64(readFloat32(buf[off+4:])),
				Z: float64(readFloat32(buf[off+8:])),
			}
		}
		tris = append(tris, t)
	}

	m, err := New(tris)
	if err != nil {
		return nil, err
	}
	m.Header = strings.TrimRight(string(h.Text[:]), " \x00")
	return m, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// SaveSTL writes m to path as a binary STL file.
func SaveSTL(path string, m *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mesh: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := WriteSTL(w, m); err != nil {
		f.Close()
		return fmt.Errorf("mesh: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("mesh: write %s: %w", path, err)
	}
	return f.Close()
}

// WriteSTL encodes m as binary STL. Facet normals are recomputed from the
// vertex winding.
func WriteSTL(w io.Writer, m *Mesh) error {
	var h stlHeader
	copy(h.Text[:], m.Header)
	h.Count = uint32(len(m.Triangles))
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}

	buf := make([]byte, stlRecordSize)
	for _, t := range m.Triangles {
		n := t.Normal()
		putVec(buf[0:], n)
		putVec(buf[12:], t[0])
		putVec(buf[24:], t[1])
		putVec(buf[36:], t[2])
		buf[48], buf[49] = 0, 0
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func putVec(b []byte, v Vec3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

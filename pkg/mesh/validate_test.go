package mesh

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/lamina/pkg/kernel"
)

func hasFinding(list []ValidationError, substr string) bool {
	for _, e := range list {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateCleanBox(t *testing.T) {
	r := Validate(Box(Vec3{10, 10, 10}).Translate(Vec3{0, 0, 0.5}), 1)
	if !r.OK() {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", r.Warnings)
	}
}

func TestValidateCoplanarCaps(t *testing.T) {
	r := Validate(Box(Vec3{10, 10, 10}), 1)
	if !r.OK() {
		t.Fatalf("unexpected errors: %v", r.Errors)
	}
	if !hasFinding(r.Warnings, "4 facets lie exactly on a slice plane") {
		t.Errorf("expected coplanar warning, got %v", r.Warnings)
	}
}

func TestValidateNonFinite(t *testing.T) {
	m := Box(Vec3{1, 1, 1})
	m.Triangles[3][1].Y = math.NaN()
	r := Validate(m, 0)
	if r.OK() {
		t.Fatal("expected an error for NaN vertex")
	}
	if r.Errors[0].Facet != 3 {
		t.Errorf("Facet = %d, want 3", r.Errors[0].Facet)
	}
	if !strings.HasPrefix(r.Errors[0].Error(), "[error] facet 3:") {
		t.Errorf("Error() = %q", r.Errors[0].Error())
	}
}

func TestValidateDegenerate(t *testing.T) {
	m, err := New([]Triangle{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := Validate(m, 0)
	if !hasFinding(r.Warnings, "zero-area facet") {
		t.Errorf("expected zero-area warning, got %v", r.Warnings)
	}
}

func TestValidateNilMesh(t *testing.T) {
	if Validate(nil, 1).OK() {
		t.Error("nil mesh should not validate")
	}
}

func TestFromKernel(t *testing.T) {
	km := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 2},
		Indices:  []uint32{0, 1, 2, 0, 1, 3},
		Name:     "wedge",
	}
	m, err := FromKernel(km)
	if err != nil {
		t.Fatalf("FromKernel: %v", err)
	}
	if m.TriangleCount() != 2 {
		t.Fatalf("TriangleCount() = %d, want 2", m.TriangleCount())
	}
	if m.Bounds.Max.Z != 2 {
		t.Errorf("max Z = %v, want 2", m.Bounds.Max.Z)
	}
	if m.Header != "wedge" {
		t.Errorf("Header = %q, want wedge", m.Header)
	}
}

func TestFromKernelBadIndex(t *testing.T) {
	km := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 7},
	}
	if _, err := FromKernel(km); err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}

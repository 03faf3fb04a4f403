package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/lamina/pkg/contour"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/polygon"
	"github.com/google/go-cmp/cmp"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() is invalid: %v", err)
	}
	if cfg.GetMinContourArea() != 9 {
		t.Errorf("GetMinContourArea() = %v, want 9", cfg.GetMinContourArea())
	}
	if cfg.GetDuplicateAreaEpsilon() != 45 {
		t.Errorf("GetDuplicateAreaEpsilon() = %v, want 45", cfg.GetDuplicateAreaEpsilon())
	}
	if !cfg.Output.Any() {
		t.Error("default output writes nothing")
	}
}

func TestDefaultMatchesPipelineDefaults(t *testing.T) {
	got := Default().PipelineOptions()
	want := pipeline.DefaultOptions(DefaultPlaneDimension)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PipelineOptions mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.json")
	testJSON := `{
  "mesh_path": "part.stl",
  "scale": 9,
  "slice_thickness": 0.5,
  "plane_dimension": 400,
  "min_contour_area": 1.5,
  "extractor": "raster",
  "output": {"dir": "slices", "dxf": true}
}`
	if err := os.WriteFile(path, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.MeshPath != "part.stl" || cfg.Scale != 9 || cfg.SliceThickness != 0.5 || cfg.PlaneDimension != 400 {
		t.Errorf("unexpected values: %+v", cfg)
	}
	// Missing fields keep their defaults.
	if !cfg.Center || cfg.BoundaryEpsilon != 2 || cfg.SmoothTolerance != 0.3 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.GetMinContourArea() != 1.5 {
		t.Errorf("GetMinContourArea() = %v, want 1.5", cfg.GetMinContourArea())
	}
	if cfg.GetDuplicateAreaEpsilon() != 20 {
		t.Errorf("GetDuplicateAreaEpsilon() = %v, want 20", cfg.GetDuplicateAreaEpsilon())
	}
	// Nested objects merge over the defaults too.
	want := Output{Dir: "slices", SVG: true, DXF: true}
	if cfg.Output != want {
		t.Errorf("Output = %+v, want %+v", cfg.Output, want)
	}

	opts := cfg.PipelineOptions()
	if opts.Extractor != contour.KindRaster || opts.Prune.MinArea != 1.5 || opts.Dim != 400 {
		t.Errorf("PipelineOptions = %+v", opts)
	}
	if opts.Simplifier != (polygon.Simplifier{ClosureDistance: 5, Tolerance: 0.3}) {
		t.Errorf("Simplifier = %+v", opts.Simplifier)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"wrong extension", write("job.yaml", "{}"), ".json extension"},
		{"missing", filepath.Join(dir, "nope.json"), "failed to stat"},
		{"bad json", write("bad.json", "{"), "failed to parse"},
		{"invalid value", write("neg.json", `{"slice_thickness": -1}`), "slice_thickness must be positive"},
		{"too large", write("big.json", `{"mesh_path": "`+strings.Repeat("x", maxFileSize)+`"}`), "too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"negative scale", func(c *Config) { c.Scale = -1 }, "scale"},
		{"zero plane", func(c *Config) { c.PlaneDimension = 0 }, "plane_dimension"},
		{"negative min area", func(c *Config) { c.SetMinContourArea(-1) }, "min_contour_area"},
		{"negative duplicate area", func(c *Config) { c.SetDuplicateAreaEpsilon(-1) }, "duplicate_area_epsilon"},
		{"negative boundary", func(c *Config) { c.BoundaryEpsilon = -1 }, "boundary_epsilon"},
		{"negative closure", func(c *Config) { c.ClosureDistance = -1 }, "closure_distance"},
		{"negative tolerance", func(c *Config) { c.SmoothTolerance = -1 }, "smooth_tolerance"},
		{"unknown extractor", func(c *Config) { c.Extractor = "marching" }, "extractor"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			err := c.Validate()
			if err == nil || !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error about %s", err, tt.want)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	cfg := Default()
	cfg.MeshPath = "ring.stl"
	cfg.SetDuplicateAreaEpsilon(3)
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("reloaded config mismatch (-want +got):\n%s", diff)
	}
}

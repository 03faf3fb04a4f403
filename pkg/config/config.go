// Package config holds the settings of a slicing run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/lamina/pkg/contour"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/polygon"
)

const (
	DefaultThickness      = 1.0
	DefaultPlaneDimension = 900
	DefaultOutputDir      = "out"

	maxFileSize = 1 * 1024 * 1024 // 1MB
)

// Output selects which files a run writes and where.
type Output struct {
	Dir     string `json:"dir"`
	SVG     bool   `json:"svg"`
	DXF     bool   `json:"dxf"`
	Preview bool   `json:"preview"`
	Mask    bool   `json:"mask"`
	Summary bool   `json:"summary"`
	JSON    bool   `json:"json"`
}

// Any reports whether at least one format is selected.
func (o Output) Any() bool {
	return o.SVG || o.DXF || o.Preview || o.Mask || o.Summary || o.JSON
}

// Config is the JSON configuration of a run. The two area thresholds are
// derived from the plane dimension unless set explicitly.
type Config struct {
	MeshPath       string  `json:"mesh_path,omitempty"`
	Scale          float64 `json:"scale"`
	Center         bool    `json:"center"`
	SliceThickness float64 `json:"slice_thickness"`
	PlaneDimension int     `json:"plane_dimension"`

	MinContourArea       *float64 `json:"min_contour_area,omitempty"`
	DuplicateAreaEpsilon *float64 `json:"duplicate_area_epsilon,omitempty"`
	BoundaryEpsilon      int      `json:"boundary_epsilon"`
	ClosureDistance      float64  `json:"closure_distance"`
	SmoothTolerance      float64  `json:"smooth_tolerance"`

	Extractor string `json:"extractor"`
	Workers   int    `json:"workers"`
	Output    Output `json:"output"`
	DBPath    string `json:"db_path,omitempty"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Scale:           1,
		Center:          true,
		SliceThickness:  DefaultThickness,
		PlaneDimension:  DefaultPlaneDimension,
		BoundaryEpsilon: 2,
		ClosureDistance: polygon.DefaultClosureDistance,
		SmoothTolerance: polygon.DefaultSmoothTolerance,
		Extractor:       string(contour.KindChain),
		Output:          Output{Dir: DefaultOutputDir, SVG: true},
	}
}

// Load reads a configuration from a JSON file. The file must have a .json
// extension and be under 1MB. Fields missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes c as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Scale < 0 {
		return fmt.Errorf("scale must be non-negative, got %f", c.Scale)
	}
	if c.SliceThickness <= 0 {
		return fmt.Errorf("slice_thickness must be positive, got %f", c.SliceThickness)
	}
	if c.PlaneDimension <= 0 {
		return fmt.Errorf("plane_dimension must be positive, got %d", c.PlaneDimension)
	}
	if c.MinContourArea != nil && *c.MinContourArea < 0 {
		return fmt.Errorf("min_contour_area must be non-negative, got %f", *c.MinContourArea)
	}
	if c.DuplicateAreaEpsilon != nil && *c.DuplicateAreaEpsilon < 0 {
		return fmt.Errorf("duplicate_area_epsilon must be non-negative, got %f", *c.DuplicateAreaEpsilon)
	}
	if c.BoundaryEpsilon < 0 {
		return fmt.Errorf("boundary_epsilon must be non-negative, got %d", c.BoundaryEpsilon)
	}
	if c.ClosureDistance < 0 {
		return fmt.Errorf("closure_distance must be non-negative, got %f", c.ClosureDistance)
	}
	if c.SmoothTolerance < 0 {
		return fmt.Errorf("smooth_tolerance must be non-negative, got %f", c.SmoothTolerance)
	}
	switch contour.Kind(c.Extractor) {
	case "", contour.KindChain, contour.KindRaster:
	default:
		return fmt.Errorf("extractor must be %q or %q, got %q", contour.KindChain, contour.KindRaster, c.Extractor)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// GetMinContourArea returns min_contour_area or plane_dimension / 100.
func (c *Config) GetMinContourArea() float64 {
	if c.MinContourArea == nil {
		return float64(c.PlaneDimension) / 100
	}
	return *c.MinContourArea
}

// GetDuplicateAreaEpsilon returns duplicate_area_epsilon or
// plane_dimension / 20.
func (c *Config) GetDuplicateAreaEpsilon() float64 {
	if c.DuplicateAreaEpsilon == nil {
		return float64(c.PlaneDimension) / 20
	}
	return *c.DuplicateAreaEpsilon
}

// PipelineOptions converts c into options for pipeline.Run.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Scale:     c.Scale,
		Center:    c.Center,
		Thickness: c.SliceThickness,
		Dim:       c.PlaneDimension,
		Extractor: contour.Kind(c.Extractor),
		Prune: contour.PruneOptions{
			MinArea:         c.GetMinContourArea(),
			DuplicateArea:   c.GetDuplicateAreaEpsilon(),
			BoundaryEpsilon: c.BoundaryEpsilon,
		},
		Simplifier: polygon.Simplifier{
			ClosureDistance: c.ClosureDistance,
			Tolerance:       c.SmoothTolerance,
		},
		Workers: c.Workers,
	}
}

func ptrFloat64(v float64) *float64 { return &v }

// SetMinContourArea and SetDuplicateAreaEpsilon override the derived
// thresholds.
func (c *Config) SetMinContourArea(v float64)       { c.MinContourArea = ptrFloat64(v) }
func (c *Config) SetDuplicateAreaEpsilon(v float64) { c.DuplicateAreaEpsilon = ptrFloat64(v) }

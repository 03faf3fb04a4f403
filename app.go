package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/chazu/lamina/pkg/config"
	"github.com/chazu/lamina/pkg/engine"
	"github.com/chazu/lamina/pkg/export"
	"github.com/chazu/lamina/pkg/kernel"
	"github.com/chazu/lamina/pkg/mesh"
	"github.com/chazu/lamina/pkg/pipeline"
	"github.com/chazu/lamina/pkg/store"
)

// errNoJob is returned for scripts that evaluate cleanly but never call
// slice-job with something to slice.
var errNoJob = errors.New("script defines no slice-job with a :mesh or :solid")

// App wires the job engine, the solid kernel, the slicing pipeline, the
// exporters and the run history together. The CLI commands are thin
// wrappers around it.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
}

// NewApp creates an App whose scripts and fixtures are built with k.
// opts configure the script engine.
func NewApp(k kernel.Kernel, opts ...engine.Option) *App {
	return &App{
		engine: engine.NewEngine(k, opts...),
		kernel: k,
	}
}

// Report is what one slicing run produced.
type Report struct {
	Name     string
	Result   *pipeline.Result
	Written  []string
	Run      *store.Run // nil unless the config names a database
	Warnings []mesh.ValidationError
}

// Slice loads cfg.MeshPath and slices it.
func (a *App) Slice(ctx context.Context, cfg *config.Config) (*Report, error) {
	if cfg.MeshPath == "" {
		return nil, fmt.Errorf("no mesh path given")
	}
	m, err := mesh.LoadSTL(cfg.MeshPath)
	if err != nil {
		return nil, err
	}
	return a.SliceMesh(ctx, cfg, m, filepath.Base(cfg.MeshPath))
}

// SliceMesh validates m, slices it with cfg, writes the configured outputs
// and records the run when cfg.DBPath is set.
func (a *App) SliceMesh(ctx context.Context, cfg *config.Config, m *mesh.Mesh, name string) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	v := mesh.Validate(m, 0)
	for _, w := range v.Warnings {
		log.Printf("%s: %v", name, w)
	}
	if !v.OK() {
		return nil, fmt.Errorf("%s: %w", name, v.Errors[0])
	}

	res, err := pipeline.Run(ctx, m, cfg.PipelineOptions())
	if err != nil {
		return nil, err
	}
	rep := &Report{Name: name, Result: res, Warnings: v.Warnings}

	if cfg.Output.Any() {
		rep.Written, err = export.WriteAll(res, cfg.Output)
		if err != nil {
			return rep, err
		}
	}

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return rep, err
		}
		defer st.Close()
		rep.Run, err = st.SaveRun(ctx, name, cfg.MeshPath, cfg, res)
		if err != nil {
			return rep, err
		}
	}

	log.Printf("%s: %d slices, %d polygons, %d vertices, travel %.1f",
		name, res.Stats.Slices, res.Stats.Polygons, res.Stats.Vertices, res.Stats.Travel)
	return rep, nil
}

// RunScript evaluates a job script and slices the mesh or solid it
// describes. override, when non-nil, adjusts the script's config before
// slicing. Script problems come back as EvalErrors with a nil error.
func (a *App) RunScript(ctx context.Context, source string, override func(*config.Config)) (*Report, []engine.EvalError, error) {
	job, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		return nil, nil, err
	}
	if len(evalErrs) > 0 {
		return nil, evalErrs, nil
	}
	if !job.Defined || !job.HasInput() {
		return nil, nil, errNoJob
	}
	if override != nil {
		override(job.Config)
	}

	if job.Solid == nil {
		rep, err := a.Slice(ctx, job.Config)
		return rep, nil, err
	}
	m, err := a.tessellate(job.Solid)
	if err != nil {
		return nil, nil, err
	}
	rep, err := a.SliceMesh(ctx, job.Config, m, job.SolidName)
	return rep, nil, err
}

// Generate builds the named fixture solid and writes it as binary STL.
func (a *App) Generate(shape, path string) (*mesh.Mesh, error) {
	s, err := kernel.Fixture(a.kernel, shape)
	if err != nil {
		return nil, err
	}
	m, err := a.tessellate(s)
	if err != nil {
		return nil, err
	}
	if err := mesh.SaveSTL(path, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Runs lists the runs stored in the database at dbPath, newest first.
func (a *App) Runs(ctx context.Context, dbPath string) ([]*store.Run, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ListRuns(ctx)
}

func (a *App) tessellate(s kernel.Solid) (*mesh.Mesh, error) {
	km, err := a.kernel.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellation failed: %w", err)
	}
	return mesh.FromKernel(km)
}

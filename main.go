// Command lamina slices triangle meshes into ordered planar
// cross-sections for layer-by-layer fabrication.
//
//	lamina slice [flags] part.stl
//	lamina run [flags] job.lisp
//	lamina gen -shape tube -out tube.stl
//	lamina runs -db runs.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chazu/lamina/pkg/config"
	"github.com/chazu/lamina/pkg/engine"
	"github.com/chazu/lamina/pkg/kernel"
	"github.com/chazu/lamina/pkg/kernel/sdfx"
	"github.com/chazu/lamina/pkg/pipeline"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: lamina <command> [flags]

commands:
  slice   slice an STL file
  run     evaluate a job script and slice its mesh or solid
  gen     write a fixture solid as STL (%s)
  runs    list stored runs

Run "lamina <command> -h" for the flags of a command.
`, strings.Join(kernel.FixtureNames(), ", "))
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("lamina: ")
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "slice":
		err = cmdSlice(ctx, args)
	case "run":
		err = cmdRun(ctx, args)
	case "gen":
		err = cmdGen(args)
	case "runs":
		err = cmdRuns(ctx, args)
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		log.Printf("unknown command %q", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// overrides holds the flags shared by slice and run. Only flags given on
// the command line replace config values.
type overrides struct {
	fs        *flag.FlagSet
	verbose   *bool
	thickness *float64
	scale     *float64
	dim       *int
	center    *bool
	extractor *string
	workers   *int
	minArea   *float64
	out       *string
	formats   *string
	db        *string
}

func newOverrides(fs *flag.FlagSet) *overrides {
	def := config.Default()
	return &overrides{
		fs:        fs,
		verbose:   fs.Bool("v", false, "log pipeline progress to stderr"),
		thickness: fs.Float64("thickness", def.SliceThickness, "slice thickness in model units"),
		scale:     fs.Float64("scale", def.Scale, "uniform scale applied before slicing"),
		dim:       fs.Int("dim", def.PlaneDimension, "working plane size in pixels"),
		center:    fs.Bool("center", def.Center, "centre the mesh on the working plane"),
		extractor: fs.String("extractor", def.Extractor, "loop extractor: chain or raster"),
		workers:   fs.Int("workers", def.Workers, "parallel slice workers (0 = GOMAXPROCS)"),
		minArea:   fs.Float64("min-area", 0, "minimum loop area in pixels (default dim/100)"),
		out:       fs.String("out", def.Output.Dir, "output directory"),
		formats:   fs.String("formats", "svg", "comma separated outputs: svg,dxf,preview,mask,summary,json or none"),
		db:        fs.String("db", "", "record the run in this SQLite database"),
	}
}

func (o *overrides) apply(cfg *config.Config) error {
	var err error
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "thickness":
			cfg.SliceThickness = *o.thickness
		case "scale":
			cfg.Scale = *o.scale
		case "dim":
			cfg.PlaneDimension = *o.dim
		case "center":
			cfg.Center = *o.center
		case "extractor":
			cfg.Extractor = *o.extractor
		case "workers":
			cfg.Workers = *o.workers
		case "min-area":
			cfg.SetMinContourArea(*o.minArea)
		case "out":
			cfg.Output.Dir = *o.out
		case "formats":
			var out config.Output
			out, err = parseFormats(*o.formats)
			out.Dir = cfg.Output.Dir
			cfg.Output = out
		case "db":
			cfg.DBPath = *o.db
		}
	})
	if err != nil {
		return err
	}
	if *o.verbose {
		pipeline.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return nil
}

func parseFormats(s string) (config.Output, error) {
	var out config.Output
	if s == "none" || s == "" {
		return out, nil
	}
	for _, f := range strings.Split(s, ",") {
		switch strings.TrimSpace(f) {
		case "svg":
			out.SVG = true
		case "dxf":
			out.DXF = true
		case "preview":
			out.Preview = true
		case "mask":
			out.Mask = true
		case "summary":
			out.Summary = true
		case "json":
			out.JSON = true
		default:
			return out, fmt.Errorf("unknown format %q", f)
		}
	}
	return out, nil
}

func cmdSlice(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("slice", flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	o := newOverrides(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: lamina slice [flags] part.stl")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if fs.NArg() > 0 {
		cfg.MeshPath = fs.Arg(0)
	}
	if err := o.apply(cfg); err != nil {
		return err
	}
	if cfg.MeshPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	rep, err := NewApp(sdfx.New()).Slice(ctx, cfg)
	if err != nil {
		return err
	}
	printReport(rep)
	return nil
}

func cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	timeout := fs.Duration("timeout", engine.DefaultEvalTimeout, "script evaluation time limit")
	o := newOverrides(fs)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: lamina run [flags] job.lisp")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	source, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	var applyErr error
	rep, evalErrs, err := NewApp(sdfx.New(), engine.WithTimeout(*timeout)).RunScript(ctx, string(source), func(cfg *config.Config) {
		applyErr = o.apply(cfg)
	})
	if applyErr != nil {
		return applyErr
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			log.Printf("%s: %v", fs.Arg(0), e)
		}
		return fmt.Errorf("%s: %d error(s)", fs.Arg(0), len(evalErrs))
	}
	if err != nil {
		return err
	}
	printReport(rep)
	return nil
}

func cmdGen(args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	shape := fs.String("shape", "box", "fixture: "+strings.Join(kernel.FixtureNames(), ", "))
	out := fs.String("out", "", "output STL path (default <shape>.stl)")
	cells := fs.Int("cells", sdfx.DefaultCells, "marching cubes resolution")
	fs.Parse(args)

	path := *out
	if path == "" {
		path = *shape + ".stl"
	}
	m, err := NewApp(sdfx.New(sdfx.WithCells(*cells))).Generate(*shape, path)
	if err != nil {
		return err
	}
	size := m.Bounds.Size()
	fmt.Printf("%s: %d triangles, %.2f x %.2f x %.2f\n", path, m.TriangleCount(), size.X, size.Y, size.Z)
	return nil
}

func cmdRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	db := fs.String("db", "lamina.db", "SQLite database")
	fs.Parse(args)

	runs, err := NewApp(nil).Runs(ctx, *db)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tNAME\tCREATED\tSLICES\tPOLYGONS\tVERTICES\tTRAVEL")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f\n",
			r.ID, r.Name, time.Unix(0, r.CreatedAt).Format(time.DateTime),
			r.Slices, r.Polygons, r.Vertices, r.Travel)
	}
	return w.Flush()
}

func printReport(rep *Report) {
	st := rep.Result.Stats
	fmt.Printf("%s: %d slices (%d empty), %d polygons (%d open), %d vertices in %s\n",
		rep.Name, st.Slices, st.EmptySlices, st.Polygons, st.OpenPolygons, st.Vertices, st.Elapsed.Round(time.Millisecond))
	if st.Coplanar > 0 {
		fmt.Printf("  %d facets lay on slice planes and were skipped\n", st.Coplanar)
	}
	fmt.Printf("  travel %.1f px, final cursor %v\n", st.Travel, rep.Result.Cursor)
	for _, p := range rep.Written {
		fmt.Printf("  wrote %s\n", p)
	}
	if rep.Run != nil {
		fmt.Printf("  recorded run %s\n", rep.Run.ID)
	}
}

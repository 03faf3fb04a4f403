package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/lamina/pkg/config"
	"github.com/chazu/lamina/pkg/kernel/sdfx"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(slice-job :mesh "part.stl")`,
			expect: `(slice_job "__kw_mesh" "part.stl")`,
		},
		{
			name:   "multiple keywords",
			input:  `(cylinder :height 20 :radius 10)`,
			expect: `(cylinder "__kw_height" 20 "__kw_radius" 10)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "escaped quote in string",
			input:  `"say \":hi\"" :x`,
			expect: `"say \":hi\"" "__kw_x"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative number preserved",
			input:  `(translate s 0 -5 0)`,
			expect: `(translate s 0 -5 0)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:min-area`,
			expect: `"__kw_min-area"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// slice-job
// ---------------------------------------------------------------------------

func evalJob(t *testing.T, eng *Engine, src string) *Job {
	t.Helper()
	job, evalErrs, err := eng.Evaluate(src)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if job == nil {
		t.Fatal("expected non-nil job")
	}
	return job
}

func TestSliceJob(t *testing.T) {
	source := `
; slice a scaled part at half-unit layers
(slice-job :mesh "bracket.stl"
           :thickness 0.5 :scale 9 :plane 400 :center false
           :extractor :raster :workers 2
           :min-area 4 :duplicate-area 12.5 :boundary-epsilon 3
           :closure-distance 4 :smooth-tolerance 0.25
           :out "layers" :formats (list :svg :dxf :json)
           :db "runs.db")
`
	job := evalJob(t, NewEngine(nil), source)
	if !job.Defined || !job.HasInput() {
		t.Fatalf("job not defined: %+v", job)
	}

	want := config.Default()
	want.MeshPath = "bracket.stl"
	want.SliceThickness = 0.5
	want.Scale = 9
	want.PlaneDimension = 400
	want.Center = false
	want.Extractor = "raster"
	want.Workers = 2
	want.SetMinContourArea(4)
	want.SetDuplicateAreaEpsilon(12.5)
	want.BoundaryEpsilon = 3
	want.ClosureDistance = 4
	want.SmoothTolerance = 0.25
	want.Output = config.Output{Dir: "layers", SVG: true, DXF: true, JSON: true}
	want.DBPath = "runs.db"

	got := job.Config
	if got.MeshPath != want.MeshPath || got.SliceThickness != want.SliceThickness ||
		got.Scale != want.Scale || got.PlaneDimension != want.PlaneDimension ||
		got.Center != want.Center || got.Extractor != want.Extractor || got.Workers != want.Workers {
		t.Errorf("basic fields: got %+v", got)
	}
	if got.GetMinContourArea() != 4 || got.GetDuplicateAreaEpsilon() != 12.5 || got.BoundaryEpsilon != 3 {
		t.Errorf("prune fields: got %+v", got)
	}
	if got.ClosureDistance != 4 || got.SmoothTolerance != 0.25 {
		t.Errorf("simplify fields: got %+v", got)
	}
	if got.Output != want.Output {
		t.Errorf("Output = %+v, want %+v", got.Output, want.Output)
	}
	if got.DBPath != want.DBPath {
		t.Errorf("DBPath = %q, want %q", got.DBPath, want.DBPath)
	}
}

func TestSliceJobKeepsDefaults(t *testing.T) {
	job := evalJob(t, NewEngine(nil), `(slice-job :mesh "a.stl")`)
	want := config.Default()
	want.MeshPath = "a.stl"
	if job.Config.SliceThickness != want.SliceThickness || job.Config.PlaneDimension != want.PlaneDimension {
		t.Errorf("defaults lost: %+v", job.Config)
	}
	if job.Config.Output != want.Output {
		t.Errorf("Output = %+v, want %+v", job.Config.Output, want.Output)
	}
}

func TestSliceJobErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"called twice", `(slice-job :mesh "a.stl") (slice-job :mesh "b.stl")`, "only be called once"},
		{"unknown option", `(slice-job :mesh "a.stl" :speed 3)`, "unknown option"},
		{"positional", `(slice-job "a.stl")`, "keyword arguments only"},
		{"wrong type", `(slice-job :mesh 3)`, "expected string"},
		{"negative thickness", `(slice-job :mesh "a.stl" :thickness -1)`, "positive"},
		{"unknown format", `(slice-job :mesh "a.stl" :formats (list :gif))`, "unknown format"},
		{"mesh and solid", `(slice-job :mesh "a.stl" :solid (box 1 1 1))`, "not both"},
		{"bad extractor", `(slice-job :mesh "a.stl" :extractor :marching)`, "extractor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, evalErrs, err := NewEngine(sdfx.New()).Evaluate(tt.source)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if job != nil {
				t.Fatalf("expected nil job, got %+v", job)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval errors")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Solids
// ---------------------------------------------------------------------------

func approxBounds(t *testing.T, job *Job, wantMin, wantMax [3]float64) {
	t.Helper()
	if job.Solid == nil {
		t.Fatal("job has no solid")
	}
	gotMin, gotMax := job.Solid.BoundingBox()
	for i := 0; i < 3; i++ {
		if math.Abs(gotMin[i]-wantMin[i]) > 1e-6 || math.Abs(gotMax[i]-wantMax[i]) > 1e-6 {
			t.Fatalf("bounds = %v..%v, want %v..%v", gotMin, gotMax, wantMin, wantMax)
		}
	}
}

func TestSolidBuiltins(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMin [3]float64
		wantMax [3]float64
	}{
		{
			name:    "box",
			source:  `(slice-job :solid (box 20 10 4))`,
			wantMin: [3]float64{-10, -5, -2},
			wantMax: [3]float64{10, 5, 2},
		},
		{
			name:    "box from vec3",
			source:  `(slice-job :solid (box (vec3 2 4 6)))`,
			wantMin: [3]float64{-1, -2, -3},
			wantMax: [3]float64{1, 2, 3},
		},
		{
			name:    "translated box",
			source:  `(slice-job :solid (translate (box 2 2 2) 10 0 1))`,
			wantMin: [3]float64{9, -1, 0},
			wantMax: [3]float64{11, 1, 2},
		},
		{
			name:    "union of spaced boxes",
			source:  `(def b (box 2 2 2)) (slice-job :solid (union b (translate b (vec3 4 0 0))))`,
			wantMin: [3]float64{-1, -1, -1},
			wantMax: [3]float64{5, 1, 1},
		},
		{
			name:    "cylinder with keywords",
			source:  `(slice-job :solid (cylinder :height 6 :radius 2))`,
			wantMin: [3]float64{-2, -2, -3},
			wantMax: [3]float64{2, 2, 3},
		},
		{
			name:    "sphere",
			source:  `(slice-job :solid (sphere 3))`,
			wantMin: [3]float64{-3, -3, -3},
			wantMax: [3]float64{3, 3, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := evalJob(t, NewEngine(sdfx.New()), tt.source)
			if !job.HasInput() {
				t.Fatal("job has no input")
			}
			approxBounds(t, job, tt.wantMin, tt.wantMax)
		})
	}
}

func TestSolidName(t *testing.T) {
	eng := NewEngine(sdfx.New())

	job := evalJob(t, eng, `(slice-job :solid (box 1 2 3))`)
	if job.SolidName != "(box 1 2 3)" {
		t.Errorf("SolidName = %q", job.SolidName)
	}

	job = evalJob(t, eng, `(slice-job :solid (box 1 2 3) :name "plate")`)
	if job.SolidName != "plate" {
		t.Errorf("SolidName = %q, want plate", job.SolidName)
	}
}

func TestFixtureBuiltin(t *testing.T) {
	job := evalJob(t, NewEngine(sdfx.New()), `(slice-job :solid (fixture :box))`)
	approxBounds(t, job, [3]float64{-10, -10, -5}, [3]float64{10, 10, 5})
	if job.SolidName != "box" {
		t.Errorf("SolidName = %q, want box", job.SolidName)
	}
}

func TestSolidErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"zero size", `(box 0 1 1)`, "positive"},
		{"wrong arity", `(box 1 1)`, "three numbers"},
		{"union of one", `(union (box 1 1 1))`, "at least 2"},
		{"union of number", `(union (box 1 1 1) 3)`, "expected solid"},
		{"cylinder without radius", `(cylinder :height 2)`, "height and a radius"},
		{"unknown fixture", `(fixture :teapot)`, "unknown fixture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, evalErrs, err := NewEngine(sdfx.New()).Evaluate(tt.source)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval errors")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}

func TestSolidsNeedKernel(t *testing.T) {
	_, evalErrs, err := NewEngine(nil).Evaluate(`(box 1 1 1)`)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "no solid kernel") {
		t.Errorf("evalErrs = %v", evalErrs)
	}
}

func TestVec3(t *testing.T) {
	_, evalErrs, err := NewEngine(nil).Evaluate(`(vec3 1 2)`)
	if err != nil {
		t.Fatal(err)
	}
	if len(evalErrs) == 0 || !strings.Contains(evalErrs[0].Message, "exactly 3") {
		t.Errorf("evalErrs = %v", evalErrs)
	}

	job := evalJob(t, NewEngine(nil), `(def v (vec3 1 2.5 3)) (+ 1 2)`)
	if job.Defined {
		t.Error("vec3 alone should not define a job")
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	job := evalJob(t, NewEngine(nil), `(def w (* 2 (+ 3 4))) (slice-job :mesh "a.stl" :plane (* w 10))`)
	if job.Config.PlaneDimension != 140 {
		t.Errorf("PlaneDimension = %d, want 140", job.Config.PlaneDimension)
	}
}

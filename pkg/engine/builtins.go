package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/lamina/pkg/config"
	"github.com/chazu/lamina/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid wraps a kernel.Solid so it can be passed between builtins.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string { return s.desc }
func (s *sexpSolid) Type() *zygo.RegisteredType            { return nil }

// sexpVec3 wraps three coordinates.
type sexpVec3 struct {
	x, y, z float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.x, v.y, v.z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toPositive(s zygo.Sexp) (float64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("expected a positive number, got %g", f)
	}
	return f, nil
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_svg) and plain strings ("svg").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (*sexpVec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// vecArgs reads three coordinates either as one vec3 or as three numbers.
func vecArgs(args []zygo.Sexp) (x, y, z float64, err error) {
	switch len(args) {
	case 1:
		v, err := toVec3(args[0])
		if err != nil {
			return 0, 0, 0, err
		}
		return v.x, v.y, v.z, nil
	case 3:
		var f [3]float64
		for i, a := range args {
			if f[i], err = toFloat64(a); err != nil {
				return 0, 0, 0, err
			}
		}
		return f[0], f[1], f[2], nil
	}
	return 0, 0, 0, fmt.Errorf("expected a vec3 or three numbers, got %d arguments", len(args))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtinFunc = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// jobBuilder is the per-evaluation state the builtins write to.
type jobBuilder struct {
	kernel kernel.Kernel
	job    *Job
}

func (b *jobBuilder) needKernel(fn string) error {
	if b.kernel == nil {
		return fmt.Errorf("%s: no solid kernel configured", fn)
	}
	return nil
}

// registerBuiltins installs the job and solid builtins into env.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *jobBuilder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		x, y, z, err := vecArgs(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{x: x, y: y, z: z}, nil
	})

	// -----------------------------------------------------------------------
	// (box 20 20 10) or (box (vec3 20 20 10))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := b.needKernel("box"); err != nil {
			return zygo.SexpNull, err
		}
		x, y, z, err := vecArgs(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if x <= 0 || y <= 0 || z <= 0 {
			return zygo.SexpNull, fmt.Errorf("box: sizes must be positive, got %g %g %g", x, y, z)
		}
		return &sexpSolid{
			solid: b.kernel.Box(x, y, z),
			desc:  fmt.Sprintf("(box %g %g %g)", x, y, z),
		}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 20 :radius 10) or (cylinder 20 10)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := b.needKernel("cylinder"); err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		hs, rs := pa.kw["height"], pa.kw["radius"]
		if len(pa.positional) == 2 {
			hs, rs = pa.positional[0], pa.positional[1]
		}
		if hs == nil || rs == nil {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a height and a radius")
		}
		h, err := toPositive(hs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: height: %w", err)
		}
		r, err := toPositive(rs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: radius: %w", err)
		}
		return &sexpSolid{
			solid: b.kernel.Cylinder(h, r),
			desc:  fmt.Sprintf("(cylinder %g %g)", h, r),
		}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere 10) or (sphere :radius 10)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := b.needKernel("sphere"); err != nil {
			return zygo.SexpNull, err
		}
		pa := parseArgs(args)
		rs := pa.kw["radius"]
		if len(pa.positional) == 1 {
			rs = pa.positional[0]
		}
		if rs == nil {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
		}
		r, err := toPositive(rs)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
		}
		return &sexpSolid{solid: b.kernel.Sphere(r), desc: fmt.Sprintf("(sphere %g)", r)}, nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	combine := func(op string, fn func(a, b kernel.Solid) kernel.Solid) builtinFunc {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := b.needKernel(op); err != nil {
				return zygo.SexpNull, err
			}
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 2 solids, got %d", op, len(args))
			}
			acc, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: argument 1: %w", op, err)
			}
			out := &sexpSolid{solid: acc.solid, desc: acc.desc}
			descs := []string{acc.desc}
			for i, a := range args[1:] {
				s, err := toSolid(a)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", op, i+2, err)
				}
				out.solid = fn(out.solid, s.solid)
				descs = append(descs, s.desc)
			}
			out.desc = "(" + op + " " + strings.Join(descs, " ") + ")"
			return out, nil
		}
	}
	env.AddFunction("union", combine("union", func(x, y kernel.Solid) kernel.Solid { return b.kernel.Union(x, y) }))
	env.AddFunction("difference", combine("difference", func(x, y kernel.Solid) kernel.Solid { return b.kernel.Difference(x, y) }))
	env.AddFunction("intersection", combine("intersection", func(x, y kernel.Solid) kernel.Solid { return b.kernel.Intersection(x, y) }))

	// -----------------------------------------------------------------------
	// (translate s (vec3 1 2 3)) or (translate s 1 2 3)
	// (rotate s (vec3 0 90 0)), angles in degrees
	// -----------------------------------------------------------------------
	transform := func(op string, fn func(s kernel.Solid, x, y, z float64) kernel.Solid) builtinFunc {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := b.needKernel(op); err != nil {
				return zygo.SexpNull, err
			}
			if len(args) < 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and an offset", op)
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			x, y, z, err := vecArgs(args[1:])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op, err)
			}
			return &sexpSolid{
				solid: fn(s.solid, x, y, z),
				desc:  fmt.Sprintf("(%s %s %g %g %g)", op, s.desc, x, y, z),
			}, nil
		}
	}
	env.AddFunction("translate", transform("translate", func(s kernel.Solid, x, y, z float64) kernel.Solid {
		return b.kernel.Translate(s, x, y, z)
	}))
	env.AddFunction("rotate", transform("rotate", func(s kernel.Solid, x, y, z float64) kernel.Solid {
		return b.kernel.Rotate(s, x, y, z)
	}))

	// -----------------------------------------------------------------------
	// (fixture :tube)
	// -----------------------------------------------------------------------
	env.AddFunction("fixture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if err := b.needKernel("fixture"); err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("fixture requires a name")
		}
		fname, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("fixture: %w", err)
		}
		s, err := kernel.Fixture(b.kernel, fname)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{solid: s, desc: fname}, nil
	})

	// -----------------------------------------------------------------------
	// (slice-job :mesh "part.stl" :thickness 1 :scale 9 :plane 900
	//            :extractor :chain :center true :workers 4
	//            :min-area 9 :duplicate-area 45 :boundary-epsilon 2
	//            :closure-distance 5 :smooth-tolerance 0.3
	//            :out "out" :formats (list :svg :dxf) :db "runs.db")
	//
	// :solid may replace :mesh. Registered as "slice_job"; the
	// preprocessor rewrites slice-job.
	// -----------------------------------------------------------------------
	env.AddFunction("slice_job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if b.job.Defined {
			return zygo.SexpNull, fmt.Errorf("slice-job may only be called once")
		}
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("slice-job takes keyword arguments only")
		}
		if err := b.applyJob(pa.kw); err != nil {
			return zygo.SexpNull, fmt.Errorf("slice-job: %w", err)
		}
		b.job.Defined = true
		return zygo.SexpNull, nil
	})
}

// jobSetters maps slice-job keywords onto config fields.
var jobSetters = map[string]func(c *config.Config, v zygo.Sexp) error{
	"mesh": func(c *config.Config, v zygo.Sexp) (err error) {
		c.MeshPath, err = toString(v)
		return err
	},
	"thickness": func(c *config.Config, v zygo.Sexp) (err error) {
		c.SliceThickness, err = toPositive(v)
		return err
	},
	"scale": func(c *config.Config, v zygo.Sexp) (err error) {
		c.Scale, err = toPositive(v)
		return err
	},
	"plane": func(c *config.Config, v zygo.Sexp) (err error) {
		c.PlaneDimension, err = toInt(v)
		return err
	},
	"center": func(c *config.Config, v zygo.Sexp) (err error) {
		c.Center, err = toBool(v)
		return err
	},
	"extractor": func(c *config.Config, v zygo.Sexp) (err error) {
		c.Extractor, err = toKeywordString(v)
		return err
	},
	"workers": func(c *config.Config, v zygo.Sexp) (err error) {
		c.Workers, err = toInt(v)
		return err
	},
	"min-area": func(c *config.Config, v zygo.Sexp) error {
		f, err := toFloat64(v)
		c.SetMinContourArea(f)
		return err
	},
	"duplicate-area": func(c *config.Config, v zygo.Sexp) error {
		f, err := toFloat64(v)
		c.SetDuplicateAreaEpsilon(f)
		return err
	},
	"boundary-epsilon": func(c *config.Config, v zygo.Sexp) (err error) {
		c.BoundaryEpsilon, err = toInt(v)
		return err
	},
	"closure-distance": func(c *config.Config, v zygo.Sexp) (err error) {
		c.ClosureDistance, err = toFloat64(v)
		return err
	},
	"smooth-tolerance": func(c *config.Config, v zygo.Sexp) (err error) {
		c.SmoothTolerance, err = toFloat64(v)
		return err
	},
	"out": func(c *config.Config, v zygo.Sexp) (err error) {
		c.Output.Dir, err = toString(v)
		return err
	},
	"formats": func(c *config.Config, v zygo.Sexp) error {
		items, err := sexpListToSlice(v)
		if err != nil {
			return err
		}
		out := config.Output{Dir: c.Output.Dir}
		for _, item := range items {
			f, err := toKeywordString(item)
			if err != nil {
				return err
			}
			if err := setFormat(&out, f); err != nil {
				return err
			}
		}
		c.Output = out
		return nil
	},
	"db": func(c *config.Config, v zygo.Sexp) (err error) {
		c.DBPath, err = toString(v)
		return err
	},
}

func setFormat(o *config.Output, name string) error {
	switch name {
	case "svg":
		o.SVG = true
	case "dxf":
		o.DXF = true
	case "preview":
		o.Preview = true
	case "mask":
		o.Mask = true
	case "summary":
		o.Summary = true
	case "json":
		o.JSON = true
	default:
		return fmt.Errorf("unknown format %q", name)
	}
	return nil
}

func (b *jobBuilder) applyJob(kw map[string]zygo.Sexp) error {
	for key, v := range kw {
		switch key {
		case "solid":
			s, err := toSolid(v)
			if err != nil {
				return fmt.Errorf("solid: %w", err)
			}
			b.job.Solid = s.solid
			if b.job.SolidName == "" {
				b.job.SolidName = s.desc
			}
			continue
		case "name":
			n, err := toString(v)
			if err != nil {
				return fmt.Errorf("name: %w", err)
			}
			b.job.SolidName = n
			continue
		}
		set, ok := jobSetters[key]
		if !ok {
			return fmt.Errorf("unknown option :%s", key)
		}
		if err := set(b.job.Config, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	if b.job.Solid != nil && b.job.Config.MeshPath != "" {
		return fmt.Errorf("give either :mesh or :solid, not both")
	}
	return nil
}

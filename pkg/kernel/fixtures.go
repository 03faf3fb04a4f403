package kernel

import (
	"fmt"
	"sort"
)

// fixtures are the named parts `lamina gen` can build. Each exercises a
// different slice topology.
var fixtures = map[string]func(Kernel) Solid{
	// One outline per layer.
	"box": func(k Kernel) Solid {
		return k.Box(20, 20, 10)
	},
	// An outer outline and a hole per layer.
	"tube": func(k Kernel) Solid {
		return k.Difference(k.Cylinder(20, 10), k.Cylinder(24, 5))
	},
	// Three disjoint outlines per layer, so the planner has a tour to build.
	"pegs": func(k Kernel) Solid {
		peg := k.Cylinder(12, 3)
		return k.Union(
			k.Translate(peg, -12, 0, 0),
			k.Union(peg, k.Translate(peg, 12, 4, 0)),
		)
	},
	// Slices with shrinking circular outlines.
	"ball": func(k Kernel) Solid {
		return k.Sphere(10)
	},
}

// FixtureNames returns the available fixture names in sorted order.
func FixtureNames() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fixture builds the named fixture solid with k.
func Fixture(k Kernel, name string) (Solid, error) {
	build, ok := fixtures[name]
	if !ok {
		return nil, fmt.Errorf("kernel: unknown fixture %q (have %v)", name, FixtureNames())
	}
	return build(k), nil
}

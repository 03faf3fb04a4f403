package mesh

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a finding should stop a run or is
// only reported.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // run cannot proceed
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single finding. Facet is -1 for mesh-level
// findings.
type ValidationError struct {
	Facet    int
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Facet < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] facet %d: %s", e.Severity, e.Facet, e.Message)
}

// ValidationResult separates blocking findings from advisory ones.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no blocking findings.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// maxReported caps the number of per-facet findings of one kind so that a
// badly broken file does not flood the log.
const maxReported = 16

// Validate checks the mesh for problems slicing cannot cope with.
// Non-finite coordinates are errors; zero-area facets are warnings.
// When thickness is positive, horizontal facets lying exactly on a slice
// plane are also reported, since they produce no segments there.
func Validate(m *Mesh, thickness float64) ValidationResult {
	var r ValidationResult
	if m == nil || len(m.Triangles) == 0 {
		r.Errors = append(r.Errors, ValidationError{Facet: -1, Message: "mesh has no triangles", Severity: SeverityError})
		return r
	}

	r.Errors = append(r.Errors, validateFinite(m)...)
	r.Warnings = append(r.Warnings, validateDegenerate(m)...)
	if thickness > 0 {
		r.Warnings = append(r.Warnings, validateCoplanar(m, thickness)...)
	}
	return r
}

func validateFinite(m *Mesh) []ValidationError {
	var errs []ValidationError
	for i, t := range m.Triangles {
		for _, v := range t {
			if !finite(v.X) || !finite(v.Y) || !finite(v.Z) {
				errs = append(errs, ValidationError{
					Facet:    i,
					Message:  fmt.Sprintf("non-finite vertex (%g, %g, %g)", v.X, v.Y, v.Z),
					Severity: SeverityError,
				})
				break
			}
		}
		if len(errs) >= maxReported {
			break
		}
	}
	return errs
}

func validateDegenerate(m *Mesh) []ValidationError {
	var warnings []ValidationError
	count := 0
	for i, t := range m.Triangles {
		if t.Area() > 0 {
			continue
		}
		count++
		if len(warnings) < maxReported {
			warnings = append(warnings, ValidationError{
				Facet:    i,
				Message:  "zero-area facet",
				Severity: SeverityWarning,
			})
		}
	}
	if count > maxReported {
		warnings = append(warnings, ValidationError{
			Facet:    -1,
			Message:  fmt.Sprintf("%d zero-area facets in total", count),
			Severity: SeverityWarning,
		})
	}
	return warnings
}

func validateCoplanar(m *Mesh, thickness float64) []ValidationError {
	count := 0
	for _, t := range m.Triangles {
		lo, hi := t.ZRange()
		if lo != hi {
			continue
		}
		if k := lo / thickness; k == math.Trunc(k) {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return []ValidationError{{
		Facet:    -1,
		Message:  fmt.Sprintf("%d facets lie exactly on a slice plane and contribute no segments", count),
		Severity: SeverityWarning,
	}}
}

func finite(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }

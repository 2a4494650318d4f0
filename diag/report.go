// Copyright 2024 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package diag

import (
	"fmt"
	"strings"

	"github.com/arrowlang/dlc/ast"
)

// Severity is one of the three levels spec.md §7 defines.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported problem: an instantiated Kind error, a
// severity, a primary location, and zero or more supplementary locations
// (e.g. the other end of a cyclic dependency).
type Diagnostic struct {
	Severity      Severity
	Err           error // built from a Kind.New(...) call in package diag
	Primary       ast.SourceLocation
	Supplementary []ast.SourceLocation
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s", d.Primary, d.Severity, d.Err)
	for _, s := range d.Supplementary {
		fmt.Fprintf(&b, "\n  also see: %s", s)
	}
	return b.String()
}

// Report accumulates diagnostics across a compilation. Errors abort the
// pipeline at the end of the current pass (spec.md §7: "Errors abort the
// pipeline at the end of the current transformer (not mid-visit)");
// warnings and info are accumulated and reported at the end. Report is not
// a global singleton: compile.Context carries the one for a compile run
// (spec.md §9).
type Report struct {
	diags []Diagnostic
}

// NewReport returns an empty report.
func NewReport() *Report { return &Report{} }

// Add records a diagnostic.
func (r *Report) Add(d Diagnostic) { r.diags = append(r.diags, d) }

// Errorf is a convenience that builds and records an Error-severity
// diagnostic from a Kind.
func (r *Report) Errorf(loc ast.SourceLocation, err error, supplementary ...ast.SourceLocation) {
	r.Add(Diagnostic{Severity: Error, Err: err, Primary: loc, Supplementary: supplementary})
}

// Warnf records a Warning-severity diagnostic.
func (r *Report) Warnf(loc ast.SourceLocation, err error, supplementary ...ast.SourceLocation) {
	r.Add(Diagnostic{Severity: Warning, Err: err, Primary: loc, Supplementary: supplementary})
}

// Infof records an Info-severity diagnostic (suppressed by default per
// spec.md §7; still collected so a caller who wants them can ask).
func (r *Report) Infof(loc ast.SourceLocation, err error, supplementary ...ast.SourceLocation) {
	r.Add(Diagnostic{Severity: Info, Err: err, Primary: loc, Supplementary: supplementary})
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (r *Report) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, in recording order.
func (r *Report) All() []Diagnostic { return append([]Diagnostic(nil), r.diags...) }

// Filter returns only diagnostics at or above the given severity.
func (r *Report) Filter(min Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.diags {
		if d.Severity >= min {
			out = append(out, d)
		}
	}
	return out
}

// Merge appends another report's diagnostics onto r, preserving order.
func (r *Report) Merge(other *Report) {
	r.diags = append(r.diags, other.diags...)
}

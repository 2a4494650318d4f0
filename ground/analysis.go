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

// Package ground implements the groundedness analysis of spec.md §4.3: a
// monotone boolean-disjunct lattice (false ⊑ true) solved to a fixpoint,
// determining which argument occurrences are transitively bound by a
// positive atom, a constant, an aggregator, or an equality/functor chain
// rooted in one of those.
package ground

import "github.com/arrowlang/dlc/ast"

// Result maps every argument occurrence in a clause to its groundedness.
// Like typesys.Result, named-variable occurrences share one bit across the
// whole clause; every other argument kind gets its own independent bit.
type Result struct {
	byVar map[string]bool
	byPtr map[ast.Argument]bool
}

func newResult() *Result {
	return &Result{byVar: make(map[string]bool), byPtr: make(map[ast.Argument]bool)}
}

// IsGrounded reports whether a specific argument occurrence is grounded.
func (r *Result) IsGrounded(a ast.Argument) bool {
	if v, ok := a.(*ast.Variable); ok {
		return r.byVar[v.Name]
	}
	return r.byPtr[a]
}

// mark sets a's bit to true (the lattice only ever moves false -> true) and
// reports whether anything changed.
func (r *Result) mark(a ast.Argument) bool {
	if v, ok := a.(*ast.Variable); ok {
		if r.byVar[v.Name] {
			return false
		}
		r.byVar[v.Name] = true
		return true
	}
	if r.byPtr[a] {
		return false
	}
	r.byPtr[a] = true
	return true
}

// Infer runs the groundedness fixpoint over c and returns the per-argument
// result.
func Infer(c *ast.Clause) *Result {
	r := newResult()

	var markArgTree func(a ast.Argument) bool
	markArgTree = func(a ast.Argument) bool {
		changed := false
		switch v := a.(type) {
		case *ast.NumberConstant, *ast.StringConstant:
			if r.mark(a) {
				changed = true
			}
		case *ast.Aggregator:
			// Aggregators are always grounded regardless of internal
			// groundedness (spec.md §4.3); the witness check (package
			// check) separately verifies nothing inside the body leaks
			// out as if it were grounded in the enclosing scope.
			if r.mark(a) {
				changed = true
			}
			if v.Target != nil {
				if markArgTree(v.Target) {
					changed = true
				}
			}
		case *ast.Functor:
			for _, op := range v.Operands {
				if markArgTree(op) {
					changed = true
				}
			}
			allGrounded := true
			for _, op := range v.Operands {
				if !r.IsGrounded(op) {
					allGrounded = false
					break
				}
			}
			if allGrounded {
				if r.mark(v) {
					changed = true
				}
			}
		case *ast.RecordInit:
			for _, el := range v.Elements {
				if markArgTree(el) {
					changed = true
				}
			}
			allGrounded := true
			for _, el := range v.Elements {
				if !r.IsGrounded(el) {
					allGrounded = false
					break
				}
			}
			if allGrounded {
				if r.mark(v) {
					changed = true
				}
			} else if r.IsGrounded(v) {
				// The record was grounded some other way (e.g. unified via
				// equality with an already-grounded term); propagate down
				// to its fields (spec.md §4.3: "if grounded, propagates to
				// fields").
				for _, el := range v.Elements {
					if r.mark(el) {
						changed = true
					}
				}
			}
		}
		return changed
	}

	markPositiveAtomArgs := func(atom *ast.Atom) bool {
		changed := false
		for _, a := range atom.Args {
			if r.mark(a) {
				changed = true
			}
			if markArgTree(a) {
				changed = true
			}
		}
		return changed
	}

	for iter, changed := 0, true; changed && iter < 64; iter++ {
		changed = false
		for _, l := range c.Body {
			switch lit := l.(type) {
			case *ast.Atom:
				if markPositiveAtomArgs(lit) {
					changed = true
				}
			case *ast.Negation:
				for _, a := range lit.Atom.Args {
					if markArgTree(a) {
						changed = true
					}
				}
			case *ast.Constraint:
				if markArgTree(lit.LHS) {
					changed = true
				}
				if markArgTree(lit.RHS) {
					changed = true
				}
				if lit.Op == ast.OpEq {
					lg, rg := r.IsGrounded(lit.LHS), r.IsGrounded(lit.RHS)
					if lg && !rg {
						if r.mark(lit.RHS) {
							changed = true
						}
					}
					if rg && !lg {
						if r.mark(lit.LHS) {
							changed = true
						}
					}
				}
			}
		}
		for _, a := range c.Head.Args {
			if markArgTree(a) {
				changed = true
			}
		}
	}
	return r
}

// UngroundedHeadVars returns every distinct variable name used in the
// clause's head that is not grounded (spec.md invariant 2).
func UngroundedHeadVars(c *ast.Clause, r *Result) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(a ast.Argument)
	walk = func(a ast.Argument) {
		switch v := a.(type) {
		case *ast.Variable:
			if !r.IsGrounded(v) && !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case *ast.Functor:
			for _, o := range v.Operands {
				walk(o)
			}
		case *ast.RecordInit:
			for _, e := range v.Elements {
				walk(e)
			}
		}
	}
	for _, a := range c.Head.Args {
		walk(a)
	}
	return out
}

// UngroundedNegatedVars returns, for every negated body atom, the variable
// names used inside it that are not grounded elsewhere in the clause
// (spec.md invariant 2).
func UngroundedNegatedVars(c *ast.Clause, r *Result) map[*ast.Negation][]string {
	out := make(map[*ast.Negation][]string)
	for _, l := range c.Body {
		neg, ok := l.(*ast.Negation)
		if !ok {
			continue
		}
		seen := make(map[string]bool)
		var names []string
		for _, a := range neg.Atom.Args {
			if v, ok := a.(*ast.Variable); ok && !r.IsGrounded(v) && !seen[v.Name] {
				seen[v.Name] = true
				names = append(names, v.Name)
			}
		}
		if len(names) > 0 {
			out[neg] = names
		}
	}
	return out
}

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

package transform

import (
	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/precedence"
)

// RemoveEmptyRelations drops clauses referencing an empty relation
// positively, drops a negated reference to one (it always holds), and
// removes relations proved unreachable from any output relation
// (spec.md §4.4 "Remove empty/redundant relations").
func RemoveEmptyRelations(prog *ast.Program) bool {
	changed := false

	for _, rel := range prog.RelationsInOrder() {
		var kept []*ast.Clause
		for _, c := range rel.Clauses {
			if clauseRefersEmptyPositively(prog, c) {
				changed = true
				continue
			}
			nc, didChange := dropEmptyNegations(prog, c)
			if didChange {
				changed = true
			}
			kept = append(kept, nc)
		}
		rel.Clauses = kept
	}

	if removeUnreachable(prog) {
		changed = true
	}
	return changed
}

func clauseRefersEmptyPositively(prog *ast.Program, c *ast.Clause) bool {
	for _, a := range c.BodyAtoms() {
		if rel, ok := prog.Relation(a.Relation); ok && rel.IsEmpty() {
			return true
		}
	}
	return false
}

func dropEmptyNegations(prog *ast.Program, c *ast.Clause) (*ast.Clause, bool) {
	changed := false
	var body []ast.Literal
	for _, l := range c.Body {
		if neg, ok := l.(*ast.Negation); ok {
			if rel, ok := prog.Relation(neg.Atom.Relation); ok && rel.IsEmpty() {
				changed = true
				continue
			}
		}
		body = append(body, l)
	}
	if !changed {
		return c, false
	}
	return &ast.Clause{Head: c.Head, Body: body, Plans: c.Plans, Generation: c.Generation, Location: c.Location}, true
}

// removeUnreachable drops every relation that no output relation reaches
// through the precedence graph's edges (head relation to body relation).
func removeUnreachable(prog *ast.Program) bool {
	g := precedence.Build(prog)
	reachesOutput := make(map[string]bool)
	var outputs []string
	for _, rel := range prog.RelationsInOrder() {
		if rel.Output || rel.PrintSize {
			outputs = append(outputs, rel.ID.String())
		}
	}
	// Forward reachability: walk from every output to the relations its
	// clauses mention, transitively.
	reverse := make(map[string][]string)
	for _, e := range g.Edges {
		reverse[e.From.String()] = append(reverse[e.From.String()], e.To.String())
	}
	var stack []string
	stack = append(stack, outputs...)
	for _, o := range outputs {
		reachesOutput[o] = true
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, pred := range reverse[n] {
			if !reachesOutput[pred] {
				reachesOutput[pred] = true
				stack = append(stack, pred)
			}
		}
	}

	changed := false
	for _, rel := range prog.RelationsInOrder() {
		if rel.Input || rel.Output || rel.PrintSize || rel.Computed {
			continue
		}
		if !reachesOutput[rel.ID.String()] {
			prog.RemoveRelation(rel.ID)
			changed = true
		}
	}
	return changed
}

// RemoveBooleanConstraints drops clauses containing a literally-false
// constraint, elides literally-true constraints, and rewrites an
// aggregator's body the same way once it empties out entirely (spec.md
// §4.4 "Remove boolean constraints").
func RemoveBooleanConstraints(prog *ast.Program) bool {
	changed := false
	for _, rel := range prog.RelationsInOrder() {
		var kept []*ast.Clause
		for _, c := range rel.Clauses {
			if clauseHasFalseConstraint(c.Body) {
				changed = true
				continue
			}
			nc, didChange := elideTrueConstraints(c)
			if didChange {
				changed = true
			}
			kept = append(kept, nc)
		}
		rel.Clauses = kept
	}
	return changed
}

func isLiterallyTrue(cst *ast.Constraint) bool {
	return cst.Op == ast.OpEq && isNumberValue(cst.LHS, 1) && isNumberValue(cst.RHS, 1)
}

func isLiterallyFalse(cst *ast.Constraint) bool {
	return cst.Op == ast.OpEq && isNumberValue(cst.LHS, 0) && isNumberValue(cst.RHS, 1)
}

func isNumberValue(a ast.Argument, v int64) bool {
	n, ok := a.(*ast.NumberConstant)
	return ok && n.Value == v
}

func clauseHasFalseConstraint(body []ast.Literal) bool {
	for _, l := range body {
		if cst, ok := l.(*ast.Constraint); ok && isLiterallyFalse(cst) {
			return true
		}
	}
	return false
}

func elideTrueConstraints(c *ast.Clause) (*ast.Clause, bool) {
	changed := false
	var body []ast.Literal
	for _, l := range c.Body {
		if cst, ok := l.(*ast.Constraint); ok && isLiterallyTrue(cst) {
			changed = true
			continue
		}
		body = append(body, l)
	}

	var aggChanged bool
	mapper := func(a ast.Argument) ast.Argument {
		agg, ok := a.(*ast.Aggregator)
		if !ok {
			return a
		}
		if clauseHasFalseConstraint(agg.Body) {
			aggChanged = true
			return &ast.Aggregator{Func: agg.Func, Target: agg.Target, Body: []ast.Literal{ast.False(agg.Location)}, VisitIndex: agg.VisitIndex, Location: agg.Location}
		}
		var newBody []ast.Literal
		for _, l := range agg.Body {
			if cst, ok := l.(*ast.Constraint); ok && isLiterallyTrue(cst) {
				aggChanged = true
				continue
			}
			newBody = append(newBody, l)
		}
		if len(newBody) == 0 {
			aggChanged = true
			newBody = []ast.Literal{ast.True(agg.Location)}
		}
		if !aggChanged {
			return agg
		}
		return &ast.Aggregator{Func: agg.Func, Target: agg.Target, Body: newBody, VisitIndex: agg.VisitIndex, Location: agg.Location}
	}

	nc := &ast.Clause{Head: c.Head, Body: body, Plans: c.Plans, Generation: c.Generation, Location: c.Location}
	nc = ast.MapClauseArgs(nc, mapper)
	if aggChanged {
		changed = true
	}
	if !changed {
		return c, false
	}
	return nc, true
}

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

import "github.com/arrowlang/dlc/ast"

// InlineRelations expands every `inline`-marked relation at its call sites
// and removes it (spec.md §4.4 "Inline relations"). The semantic checker
// (package check, checkInlining) has already rejected cycles among inline
// relations, counters inside them, inline use inside an aggregator body, and
// a negated inline reference that is not fully ground at its head — so this
// pass only has to perform the substitution, not re-validate it.
//
// A positive reference `r(a1..an)` to an inline relation with clauses
// `r(p1..pn) :- body_k` fans out: the host clause is replaced by one clause
// per body_k, each with body_k spliced in place of the atom (De Morgan
// fan-out across the disjunction of defining clauses). A negated reference
// `!r(a1..an)` De Morgan-expands directly when every clause of r has a body
// of exactly one literal after substitution, giving one negated literal per
// clause (a Constraint is negated by its operator, spec.md's comment on
// ConstraintOp.Negate); otherwise the negation is redirected to a
// materialized shadow copy of r, the same technique materialize-aggregation-
// queries uses for a multi-literal aggregator body.
func InlineRelations(prog *ast.Program) bool {
	order := inlineTopoOrder(prog)
	if len(order) == 0 {
		return false
	}

	shadows := make(map[string]ast.RelationIdentifier)
	changed := false

	for _, id := range order {
		rel, ok := prog.Relation(ast.NewRelationIdentifier(id))
		if !ok {
			continue
		}
		if expandRelationClauses(prog, rel, shadows) {
			changed = true
		}
	}

	for _, rel := range prog.RelationsInOrder() {
		if rel.Inline {
			continue
		}
		if expandRelationClauses(prog, rel, shadows) {
			changed = true
		}
	}

	for _, id := range order {
		prog.RemoveRelation(ast.NewRelationIdentifier(id))
		changed = true
	}
	return changed
}

func inlineTopoOrder(prog *ast.Program) []string {
	var inlineIDs []string
	graph := make(map[string][]string)
	for _, rel := range prog.RelationsInOrder() {
		if !rel.Inline {
			continue
		}
		inlineIDs = append(inlineIDs, rel.ID.String())
	}
	for _, id := range inlineIDs {
		rel, _ := prog.Relation(ast.NewRelationIdentifier(id))
		for _, c := range rel.Clauses {
			for _, l := range c.Body {
				var target ast.RelationIdentifier
				switch lit := l.(type) {
				case *ast.Atom:
					target = lit.Relation
				case *ast.Negation:
					target = lit.Atom.Relation
				default:
					continue
				}
				if other, ok := prog.Relation(target); ok && other.Inline {
					graph[id] = append(graph[id], target.String())
				}
			}
		}
	}

	visited := make(map[string]bool)
	var order []string
	var visit func(string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range graph[id] {
			visit(dep)
		}
		order = append(order, id)
	}
	for _, id := range inlineIDs {
		visit(id)
	}
	return order
}

// expandRelationClauses rewrites rel.Clauses in place, expanding every
// reference to an inline relation, and reports whether anything changed.
func expandRelationClauses(prog *ast.Program, rel *ast.Relation, shadows map[string]ast.RelationIdentifier) bool {
	changed := false
	var out []*ast.Clause
	for _, c := range rel.Clauses {
		bodies, didChange := expandLiterals(prog, c.Body, shadows)
		if didChange {
			changed = true
		}
		for _, body := range bodies {
			out = append(out, &ast.Clause{Head: c.Head, Body: body, Plans: c.Plans, Generation: c.Generation, Location: c.Location})
		}
	}
	rel.Clauses = out
	return changed
}

// expandLiterals returns the cross product of alternative body-literal lists
// produced by expanding every inline reference in lits, in order.
func expandLiterals(prog *ast.Program, lits []ast.Literal, shadows map[string]ast.RelationIdentifier) ([][]ast.Literal, bool) {
	if len(lits) == 0 {
		return [][]ast.Literal{nil}, false
	}
	headAlts, headChanged := expandLiteral(prog, lits[0], shadows)
	restAlts, restChanged := expandLiterals(prog, lits[1:], shadows)
	out := make([][]ast.Literal, 0, len(headAlts)*len(restAlts))
	for _, ha := range headAlts {
		for _, ra := range restAlts {
			combined := make([]ast.Literal, 0, len(ha)+len(ra))
			combined = append(combined, ha...)
			combined = append(combined, ra...)
			out = append(out, combined)
		}
	}
	return out, headChanged || restChanged
}

func expandLiteral(prog *ast.Program, l ast.Literal, shadows map[string]ast.RelationIdentifier) ([][]ast.Literal, bool) {
	switch lit := l.(type) {
	case *ast.Atom:
		target, ok := prog.Relation(lit.Relation)
		if !ok || !target.Inline {
			return [][]ast.Literal{{l}}, false
		}
		var out [][]ast.Literal
		for _, tc := range target.Clauses {
			out = append(out, instantiateInlineBody(tc, lit.Args))
		}
		if len(out) == 0 {
			out = [][]ast.Literal{{ast.False(lit.Location)}}
		}
		return out, true
	case *ast.Negation:
		target, ok := prog.Relation(lit.Atom.Relation)
		if !ok || !target.Inline {
			return [][]ast.Literal{{l}}, false
		}
		if negated, ok := negateEachClauseBody(target, lit); ok {
			return [][]ast.Literal{negated}, true
		}
		shadowID := shadowRelationFor(prog, target, shadows)
		neg := &ast.Negation{Atom: &ast.Atom{Relation: shadowID, Args: lit.Atom.Args, Location: lit.Atom.Location}, Location: lit.Location}
		return [][]ast.Literal{{neg}}, true
	default:
		return [][]ast.Literal{{l}}, false
	}
}

// negateEachClauseBody implements the De Morgan fan-out of spec.md's
// scenario 6: when every defining clause of target reduces (after
// substitution) to a single literal, `!p(a1..an)` becomes the conjunction
// of that literal's negation across every clause — `!a(x), !b(x)` for
// `p(x):-a(x). p(x):-b(x).`. Reports false (caller must fall back to a
// materialized shadow) if any clause's body is not exactly one literal.
func negateEachClauseBody(target *ast.Relation, lit *ast.Negation) ([]ast.Literal, bool) {
	out := make([]ast.Literal, 0, len(target.Clauses))
	for _, tc := range target.Clauses {
		body := instantiateInlineBody(tc, lit.Atom.Args)
		if len(body) != 1 {
			return nil, false
		}
		switch l := body[0].(type) {
		case *ast.Atom:
			out = append(out, &ast.Negation{Atom: l, Location: lit.Location})
		case *ast.Negation:
			out = append(out, l.Atom)
		case *ast.Constraint:
			out = append(out, &ast.Constraint{Op: l.Op.Negate(), LHS: l.LHS, RHS: l.RHS, Location: lit.Location})
		default:
			return nil, false
		}
	}
	if len(out) == 0 {
		out = append(out, ast.True(lit.Location))
	}
	return out, true
}

// instantiateInlineBody substitutes callArgs for tc's head parameters and
// alpha-renames every other variable local to tc so repeated call sites
// never collide. A head parameter position that is not a plain variable
// (a constant or functor pattern) becomes an equality constraint instead of
// a substitution, matching how normalize-constraints itself handles
// non-variable argument positions.
func instantiateInlineBody(tc *ast.Clause, callArgs []ast.Argument) []ast.Literal {
	suffix := "$" + shortUUID()
	subst := make(map[string]string)
	var extra []ast.Literal
	renameLocal := func(headArg ast.Argument) ast.Argument {
		return ast.MapArgument(headArg, func(a ast.Argument) ast.Argument {
			v, ok := a.(*ast.Variable)
			if !ok {
				return a
			}
			return &ast.Variable{Name: v.Name + suffix, Location: v.Location}
		})
	}
	for i, headArg := range tc.Head.Args {
		if i >= len(callArgs) {
			break
		}
		headVar, headIsVar := headArg.(*ast.Variable)
		callVar, callIsVar := callArgs[i].(*ast.Variable)
		if headIsVar && callIsVar {
			subst[headVar.Name] = callVar.Name
			continue
		}
		// Either side is a non-variable pattern (a constant/functor literal,
		// or this pass ran ahead of normalize-constraints): fall back to an
		// equality constraint instead of a substitution, alpha-renaming any
		// variable the head pattern itself still contains.
		extra = append(extra, &ast.Constraint{Op: ast.OpEq, LHS: callArgs[i], RHS: renameLocal(headArg), Location: headArg.Loc()})
	}

	rename := func(a ast.Argument) ast.Argument {
		v, ok := a.(*ast.Variable)
		if !ok {
			return a
		}
		if mapped, ok := subst[v.Name]; ok {
			return &ast.Variable{Name: mapped, Location: v.Location}
		}
		return &ast.Variable{Name: v.Name + suffix, Location: v.Location}
	}

	body := ast.MapLiterals(tc.Body, rename)
	return append(body, extra...)
}

// shadowRelationFor returns a synthesized, non-inline relation holding a
// copy of target's clauses, creating it on first use, so a negated
// reference to an inline relation with a multi-literal body still has a
// single atom it can negate.
func shadowRelationFor(prog *ast.Program, target *ast.Relation, shadows map[string]ast.RelationIdentifier) ast.RelationIdentifier {
	key := target.ID.String()
	if id, ok := shadows[key]; ok {
		return id
	}
	shadowID := ast.NewRelationIdentifier("shadow_" + shortUUID())
	shadowRel := &ast.Relation{ID: shadowID, Attributes: append([]ast.Attribute(nil), target.Attributes...), Computed: true}
	for _, tc := range target.Clauses {
		shadowRel.Clauses = append(shadowRel.Clauses, &ast.Clause{
			Head:       &ast.Atom{Relation: shadowID, Args: tc.Head.Args, Location: tc.Head.Location},
			Body:       tc.Body,
			Plans:      tc.Plans,
			Generation: ast.Synthesized,
			Location:   tc.Location,
		})
	}
	prog.AddRelation(shadowRel)
	shadows[key] = shadowID
	return shadowID
}

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
	"fmt"

	"github.com/arrowlang/dlc/ast"
	uuid "github.com/satori/go.uuid"
)

// ResolveAliases runs Robinson-style unification over each clause's
// equality constraints and applies the resulting substitution (spec.md
// §4.4 "Resolve aliases"). It then drops trivial `t = t` residuals and
// re-introduces fresh variables for any functor term left sitting directly
// in an atom's argument list, so the backend only ever sees variables and
// constants in atom slots.
func ResolveAliases(prog *ast.Program) bool {
	changed := false
	for _, rel := range prog.RelationsInOrder() {
		for i, c := range rel.Clauses {
			nc, didChange := resolveAliasesInClause(c)
			if didChange {
				rel.Clauses[i] = nc
				changed = true
			}
		}
	}
	return changed
}

type equation struct {
	lhs, rhs ast.Argument
	loc      ast.SourceLocation
}

func resolveAliasesInClause(c *ast.Clause) (*ast.Clause, bool) {
	var equalities []equation
	var residualBody []ast.Literal
	for _, l := range c.Body {
		if cst, ok := l.(*ast.Constraint); ok && cst.Op == ast.OpEq {
			equalities = append(equalities, equation{lhs: cst.LHS, rhs: cst.RHS, loc: cst.Location})
			continue
		}
		residualBody = append(residualBody, l)
	}
	if len(equalities) == 0 {
		return normalizeFunctorPositions(c)
	}

	subst := make(map[string]ast.Argument)
	worklist := equalities
	var unresolved []equation

	for len(worklist) > 0 {
		eq := worklist[0]
		worklist = worklist[1:]

		lhs := applySubst(eq.lhs, subst)
		rhs := applySubst(eq.rhs, subst)

		lv, lIsVar := lhs.(*ast.Variable)
		rv, rIsVar := rhs.(*ast.Variable)
		lrec, lIsRecord := lhs.(*ast.RecordInit)
		rrec, rIsRecord := rhs.(*ast.RecordInit)

		switch {
		case lIsVar && rIsVar && lv.Name == rv.Name:
			// Trivial, drop.
		case lIsRecord && rIsRecord:
			if len(lrec.Elements) == len(rrec.Elements) {
				for i := range lrec.Elements {
					worklist = append(worklist, equation{lhs: lrec.Elements[i], rhs: rrec.Elements[i], loc: eq.loc})
				}
			} else {
				unresolved = append(unresolved, equation{lhs: lhs, rhs: rhs, loc: eq.loc})
			}
		case rIsVar && !lIsVar:
			if occursIn(rv.Name, lhs) {
				unresolved = append(unresolved, equation{lhs: lhs, rhs: rhs, loc: eq.loc})
				continue
			}
			subst[rv.Name] = lhs
			worklist = substituteWorklist(worklist, rv.Name, lhs)
		case lIsVar:
			if occursIn(lv.Name, rhs) {
				unresolved = append(unresolved, equation{lhs: lhs, rhs: rhs, loc: eq.loc})
				continue
			}
			subst[lv.Name] = rhs
			worklist = substituteWorklist(worklist, lv.Name, rhs)
		default:
			unresolved = append(unresolved, equation{lhs: lhs, rhs: rhs, loc: eq.loc})
		}
	}

	if len(subst) == 0 {
		// Nothing resolved; keep equalities as residual constraints.
		nc := &ast.Clause{Head: c.Head, Body: append(append([]ast.Literal(nil), residualBody...), unresolvedToLiterals(unresolved)...), Plans: c.Plans, Generation: c.Generation, Location: c.Location}
		return normalizeFunctorPositions(nc)
	}

	mapper := func(a ast.Argument) ast.Argument {
		if v, ok := a.(*ast.Variable); ok {
			if t, bound := subst[v.Name]; bound {
				return t
			}
		}
		return a
	}
	nc := ast.MapClauseArgs(c, mapper)
	nc.Body = append(append([]ast.Literal(nil), ast.MapLiterals(residualBody, mapper)...), ast.MapLiterals(unresolvedToLiterals(unresolved), mapper)...)

	nc2, _ := normalizeFunctorPositions(nc)
	return nc2, true
}

func isRecord(a ast.Argument) bool {
	_, ok := a.(*ast.RecordInit)
	return ok
}

func unresolvedToLiterals(eqs []equation) []ast.Literal {
	out := make([]ast.Literal, len(eqs))
	for i, eq := range eqs {
		out[i] = &ast.Constraint{Op: ast.OpEq, LHS: eq.lhs, RHS: eq.rhs, Location: eq.loc}
	}
	return out
}

func substituteWorklist(worklist []equation, name string, term ast.Argument) []equation {
	out := make([]equation, len(worklist))
	for i, eq := range worklist {
		out[i] = equation{lhs: substituteOne(eq.lhs, name, term), rhs: substituteOne(eq.rhs, name, term), loc: eq.loc}
	}
	return out
}

func substituteOne(a ast.Argument, name string, term ast.Argument) ast.Argument {
	return ast.MapArgument(a, func(x ast.Argument) ast.Argument {
		if v, ok := x.(*ast.Variable); ok && v.Name == name {
			return term
		}
		return x
	})
}

func applySubst(a ast.Argument, subst map[string]ast.Argument) ast.Argument {
	if v, ok := a.(*ast.Variable); ok {
		if t, ok := subst[v.Name]; ok {
			return t
		}
	}
	return a
}

func occursIn(name string, a ast.Argument) bool {
	found := false
	var walk func(ast.Argument)
	walk = func(x ast.Argument) {
		switch v := x.(type) {
		case *ast.Variable:
			if v.Name == name {
				found = true
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
	walk(a)
	return found
}

// freshTempName mints a collision-free temporary variable name. A plain
// incrementing counter would collide across concurrently-processed clauses
// once the pipeline is parallelized across relations, so this borrows the
// corpus's go.uuid gensym approach (SPEC_FULL.md "Domain stack"), truncated
// to a short hex suffix for readability in debug dumps.
func freshTempName() string {
	return fmt.Sprintf("$tmp_%s", shortUUID())
}

func shortUUID() string {
	id := uuid.NewV4()
	return id.String()[:8]
}

// normalizeFunctorPositions replaces any Functor sitting directly in an
// atom's argument list with a fresh variable, adding `fresh = functor` as a
// new body constraint (spec.md §4.4: "re-introduce temporary variables for
// non-trivial functor terms appearing inside head/body atoms").
func normalizeFunctorPositions(c *ast.Clause) (*ast.Clause, bool) {
	changed := false
	var extra []ast.Literal

	replace := func(args []ast.Argument) []ast.Argument {
		out := make([]ast.Argument, len(args))
		for i, a := range args {
			if f, ok := a.(*ast.Functor); ok {
				name := freshTempName()
				v := &ast.Variable{Name: name, Location: f.Location}
				extra = append(extra, &ast.Constraint{Op: ast.OpEq, LHS: v, RHS: f, Location: f.Location})
				out[i] = v
				changed = true
			} else {
				out[i] = a
			}
		}
		return out
	}

	newHead := &ast.Atom{Relation: c.Head.Relation, Args: replace(c.Head.Args), Location: c.Head.Location}
	var newBody []ast.Literal
	for _, l := range c.Body {
		switch lit := l.(type) {
		case *ast.Atom:
			newBody = append(newBody, &ast.Atom{Relation: lit.Relation, Args: replace(lit.Args), Location: lit.Location})
		case *ast.Negation:
			newAtom := &ast.Atom{Relation: lit.Atom.Relation, Args: replace(lit.Atom.Args), Location: lit.Atom.Location}
			newBody = append(newBody, &ast.Negation{Atom: newAtom, Location: lit.Location})
		default:
			newBody = append(newBody, l)
		}
	}
	newBody = append(newBody, extra...)

	if !changed {
		return c, false
	}
	return &ast.Clause{Head: newHead, Body: newBody, Plans: c.Plans, Generation: c.Generation, Location: c.Location}, true
}

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
	"github.com/arrowlang/dlc/typesys"
)

// UniqueAggregationVariables assigns each aggregator a clause-wide
// VisitIndex and, for aggregators with a target expression, renames any
// target variable that is also free in the aggregator's own body by
// appending that index — guaranteeing the name stays unique once nested
// aggregators are later flattened against each other (spec.md §4.4).
func UniqueAggregationVariables(prog *ast.Program) bool {
	changed := false
	for _, rel := range prog.RelationsInOrder() {
		for i, c := range rel.Clauses {
			nc, didChange := uniquifyClause(c)
			if didChange {
				rel.Clauses[i] = nc
				changed = true
			}
		}
	}
	return changed
}

func uniquifyClause(c *ast.Clause) (*ast.Clause, bool) {
	index := 0
	changed := false
	var mapper ast.ArgMapper
	mapper = func(a ast.Argument) ast.Argument {
		agg, ok := a.(*ast.Aggregator)
		if !ok {
			return a
		}
		myIndex := index
		index++
		if agg.Target == nil || agg.VisitIndex == myIndex {
			if agg.VisitIndex != myIndex {
				agg.VisitIndex = myIndex
				changed = true
			}
			return agg
		}
		bodyFree := bodyFreeVars(agg.Body)
		renamed := false
		suffix := fmt.Sprintf("$%d", myIndex)
		newTarget := ast.MapArgument(agg.Target, func(x ast.Argument) ast.Argument {
			v, ok := x.(*ast.Variable)
			if !ok || !bodyFree[v.Name] {
				return x
			}
			renamed = true
			return &ast.Variable{Name: v.Name + suffix, Location: v.Location}
		})
		var newBody []ast.Literal
		if renamed {
			newBody = ast.MapLiterals(agg.Body, func(x ast.Argument) ast.Argument {
				v, ok := x.(*ast.Variable)
				if !ok || !bodyFree[v.Name] {
					return x
				}
				return &ast.Variable{Name: v.Name + suffix, Location: v.Location}
			})
			changed = true
		} else {
			newBody = agg.Body
		}
		return &ast.Aggregator{Func: agg.Func, Target: newTarget, Body: newBody, VisitIndex: myIndex, Location: agg.Location}
	}
	nc := ast.MapClauseArgs(c, mapper)
	return nc, changed
}

func bodyFreeVars(body []ast.Literal) map[string]bool {
	out := make(map[string]bool)
	for _, l := range body {
		switch lit := l.(type) {
		case *ast.Atom:
			for _, a := range lit.Args {
				collectVarNames(a, out)
			}
		case *ast.Negation:
			for _, a := range lit.Atom.Args {
				collectVarNames(a, out)
			}
		case *ast.Constraint:
			collectVarNames(lit.LHS, out)
			collectVarNames(lit.RHS, out)
		}
	}
	return out
}

func collectVarNames(a ast.Argument, out map[string]bool) {
	switch v := a.(type) {
	case *ast.Variable:
		out[v.Name] = true
	case *ast.Functor:
		for _, o := range v.Operands {
			collectVarNames(o, out)
		}
	case *ast.RecordInit:
		for _, e := range v.Elements {
			collectVarNames(e, out)
		}
	}
}

// MaterializeAggregationQueries replaces every aggregator whose body has
// more than one literal, or whose single body atom repeats a variable,
// with a fresh relation holding the aggregator's free variables, and
// rewrites the aggregator to range over that relation's single atom with
// every column already bound in the enclosing clause blanked to `_` (spec.md
// §4.4, worked example in §8 Scenario 4: `total(c,s):-category(c), s=sum v:
// {item(c,v), v>0}.` materializes to `agg_<id>(c,v):-item(c,v), v>0.` with
// the aggregator body becoming `agg_<id>(_,v)` — `c` is blanked because it
// is bound outer, `v` stays named as the sum's target; <id> is a fresh
// UUID). Every synthesized attribute is typed number; type analysis is not
// consulted, so symbol-typed columns are also declared number. For count,
// `_` occurrences in the original body become fresh columns so tuples stay
// distinct.
func MaterializeAggregationQueries(prog *ast.Program) bool {
	changed := false
	for _, rel := range prog.RelationsInOrder() {
		env := typesys.NewEnv(prog)
		for i, c := range rel.Clauses {
			nc, didChange := materializeClause(prog, env, c)
			if didChange {
				rel.Clauses[i] = nc
				changed = true
			}
		}
	}
	return changed
}

func materializeClause(prog *ast.Program, env *typesys.Env, c *ast.Clause) (*ast.Clause, bool) {
	changed := false
	outerUse := clauseVarUseExcludingAggregators(c)
	var mapper ast.ArgMapper
	mapper = func(a ast.Argument) ast.Argument {
		agg, ok := a.(*ast.Aggregator)
		if !ok {
			return a
		}
		if !needsMaterialization(agg) {
			return agg
		}
		changed = true
		return materializeOne(prog, env, agg, outerUse)
	}
	nc := ast.MapClauseArgs(c, mapper)
	return nc, changed
}

// clauseVarUseExcludingAggregators counts every variable occurrence in c
// that is not inside an Aggregator body/target, used to decide which
// materialized-relation columns "escape" the aggregator and must stay
// named instead of being blanked to `_`.
func clauseVarUseExcludingAggregators(c *ast.Clause) map[string]bool {
	out := make(map[string]bool)
	var walk func(a ast.Argument)
	walk = func(a ast.Argument) {
		switch v := a.(type) {
		case *ast.Variable:
			out[v.Name] = true
		case *ast.Functor:
			for _, o := range v.Operands {
				walk(o)
			}
		case *ast.RecordInit:
			for _, e := range v.Elements {
				walk(e)
			}
		case *ast.Aggregator:
			// Do not recurse: the aggregator's own internal variables do
			// not count as outer use of that name.
		}
	}
	for _, a := range c.Head.Args {
		walk(a)
	}
	for _, l := range c.Body {
		switch lit := l.(type) {
		case *ast.Atom:
			for _, a := range lit.Args {
				walk(a)
			}
		case *ast.Negation:
			for _, a := range lit.Atom.Args {
				walk(a)
			}
		case *ast.Constraint:
			walk(lit.LHS)
			walk(lit.RHS)
		}
	}
	return out
}

func needsMaterialization(agg *ast.Aggregator) bool {
	if len(agg.Body) != 1 {
		return true
	}
	atom, ok := agg.Body[0].(*ast.Atom)
	if !ok {
		return true
	}
	seen := make(map[string]bool)
	for _, a := range atom.Args {
		if v, ok := a.(*ast.Variable); ok {
			if seen[v.Name] {
				return true
			}
			seen[v.Name] = true
		}
	}
	return false
}

func materializeOne(prog *ast.Program, env *typesys.Env, agg *ast.Aggregator, outerUse map[string]bool) *ast.Aggregator {
	local := bodyFreeVars(agg.Body)
	if agg.Target != nil {
		for name := range bodyFreeVars([]ast.Literal{&ast.Constraint{Op: ast.OpEq, LHS: agg.Target, RHS: agg.Target}}) {
			local[name] = true
		}
	}
	delete(local, "")

	isCount := agg.Func == ast.AggCount
	var cols []string
	for name := range local {
		cols = append(cols, name)
	}
	sortStrings(cols)

	if isCount {
		n := 0
		for _, l := range agg.Body {
			if atom, ok := l.(*ast.Atom); ok {
				for _, a := range atom.Args {
					if _, ok := a.(*ast.UnnamedVariable); ok {
						cols = append(cols, fmt.Sprintf("$blank%d", n))
						n++
					}
				}
			}
		}
	}

	relName := "agg_" + shortUUID()
	relID := ast.NewRelationIdentifier(relName)

	attrs := make([]ast.Attribute, len(cols))
	for i := range attrs {
		attrs[i] = ast.Attribute{Name: cols[i], Type: ast.NumberType}
	}

	headArgs := make([]ast.Argument, len(cols))
	blankIdx := 0
	bodyRewritten := ast.MapLiterals(agg.Body, func(a ast.Argument) ast.Argument {
		if v, ok := a.(*ast.UnnamedVariable); ok && isCount {
			name := fmt.Sprintf("$blank%d", blankIdx)
			blankIdx++
			return &ast.Variable{Name: name, Location: v.Location}
		}
		return a
	})
	for i, col := range cols {
		headArgs[i] = &ast.Variable{Name: col}
	}

	materialized := &ast.Relation{ID: relID, Attributes: attrs, Computed: true, Clauses: []*ast.Clause{
		{Head: &ast.Atom{Relation: relID, Args: headArgs}, Body: bodyRewritten, Generation: ast.Synthesized},
	}}
	prog.AddRelation(materialized)

	// spec.md Scenario 4: a column already bound in the enclosing clause
	// (outerUse) is blanked at the call site — package lower re-establishes
	// the join by matching the materialized relation's attribute name
	// against the outer value index, not by a repeated variable name here.
	// A column with no outer use (the aggregator's own target, or a
	// variable truly local to its body) stays named so its value can still
	// be read off the scan.
	newHeadArgs := make([]ast.Argument, len(cols))
	for i, col := range cols {
		if outerUse[col] {
			newHeadArgs[i] = &ast.UnnamedVariable{}
		} else {
			newHeadArgs[i] = &ast.Variable{Name: col}
		}
	}
	newBody := []ast.Literal{&ast.Atom{Relation: relID, Args: newHeadArgs}}

	return &ast.Aggregator{Func: agg.Func, Target: agg.Target, Body: newBody, VisitIndex: agg.VisitIndex, Location: agg.Location}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

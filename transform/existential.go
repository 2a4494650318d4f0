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

// ReduceExistentials replaces every relation whose arguments are ignored
// (`_`) at every use site with a 0-arity existential version (spec.md §4.4
// "Reduce existentials"). A relation is irreducible if it is input, output,
// computed, or used anywhere — including inside an aggregator body, which
// always counts as a real use regardless of its own argument pattern — with
// a non-`_` argument; reducing it would throw away column values something
// else still reads.
func ReduceExistentials(prog *ast.Program) bool {
	irreducible := make(map[string]bool)
	for _, rel := range prog.RelationsInOrder() {
		if rel.Input || rel.Output || rel.PrintSize || rel.Computed || rel.Arity() == 0 {
			irreducible[rel.ID.String()] = true
		}
	}

	// A relation is irreducible the moment any atom occurrence anywhere in
	// the program — regardless of which relation owns that clause — reads
	// one of its argument positions by a real (non-`_`) name. Scanning
	// every clause body in the program directly, rather than propagating
	// along a separately-built dependency graph, is deliberate: the latter
	// would mark every relation transitively feeding an output irreducible
	// (nearly everything, defeating the pass) regardless of whether the
	// use actually reads a value.
	for _, rel := range prog.RelationsInOrder() {
		for _, c := range rel.Clauses {
			walkAggregatorAtomsT(c, func(atom *ast.Atom) {
				irreducible[atom.Relation.String()] = true
			})
			for _, l := range c.Body {
				switch lit := l.(type) {
				case *ast.Atom:
					if !allUnderscore(lit.Args) {
						irreducible[lit.Relation.String()] = true
					}
				case *ast.Negation:
					if !allUnderscore(lit.Atom.Args) {
						irreducible[lit.Atom.Relation.String()] = true
					}
				}
			}
		}
	}

	changed := false
	for _, rel := range prog.RelationsInOrder() {
		if irreducible[rel.ID.String()] || rel.Arity() == 0 {
			continue
		}
		rel.Attributes = nil
		for _, c := range rel.Clauses {
			c.Head.Args = nil
		}
		changed = true
	}
	if !changed {
		return false
	}

	for _, rel := range prog.RelationsInOrder() {
		for i, c := range rel.Clauses {
			rel.Clauses[i] = blankReducedAtoms(c, irreducible)
		}
	}
	return true
}

func allUnderscore(args []ast.Argument) bool {
	for _, a := range args {
		if _, ok := a.(*ast.UnnamedVariable); !ok {
			return false
		}
	}
	return true
}

func blankReducedAtoms(c *ast.Clause, irreducible map[string]bool) *ast.Clause {
	rewrite := func(atom *ast.Atom) *ast.Atom {
		if irreducible[atom.Relation.String()] {
			return atom
		}
		return &ast.Atom{Relation: atom.Relation, Location: atom.Location}
	}
	newBody := make([]ast.Literal, len(c.Body))
	for i, l := range c.Body {
		switch lit := l.(type) {
		case *ast.Atom:
			newBody[i] = rewrite(lit)
		case *ast.Negation:
			newBody[i] = &ast.Negation{Atom: rewrite(lit.Atom), Location: lit.Location}
		default:
			newBody[i] = l
		}
	}
	return &ast.Clause{Head: c.Head, Body: newBody, Plans: c.Plans, Generation: c.Generation, Location: c.Location}
}

func walkAggregatorAtomsT(c *ast.Clause, visit func(*ast.Atom)) {
	ast.Walk(c, func(a ast.Argument) {
		agg, ok := a.(*ast.Aggregator)
		if !ok {
			return
		}
		for _, l := range agg.Body {
			switch lit := l.(type) {
			case *ast.Atom:
				visit(lit)
			case *ast.Negation:
				visit(lit.Atom)
			}
		}
	})
}

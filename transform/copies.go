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

// RemoveRelationCopies detects `r(x,y,...) :- s(x,y,...).` where r has a
// single non-computed defining clause and arguments are a positional,
// variable-for-variable copy of s, rewrites every reference to r as a
// reference to s (following the transitive alias chain), and drops the
// aliased relations. A cycle of aliases becomes empty: spec.md §4.4
// "detect cycles (those relations become empty); ... break cycles by
// deleting their sole clause."
func RemoveRelationCopies(prog *ast.Program) bool {
	alias := make(map[string]string) // relation key -> relation key it copies
	for _, rel := range prog.RelationsInOrder() {
		if rel.Computed || len(rel.Clauses) != 1 {
			continue
		}
		c := rel.Clauses[0]
		target, ok := copyTarget(rel, c)
		if !ok {
			continue
		}
		alias[rel.ID.String()] = target.String()
	}
	if len(alias) == 0 {
		return false
	}

	resolved := make(map[string]string)
	cyclic := make(map[string]bool)
	for k := range alias {
		root, isCyclic := resolveAlias(alias, k)
		resolved[k] = root
		if isCyclic {
			cyclic[k] = true
		}
	}

	changed := false
	for _, rel := range prog.RelationsInOrder() {
		for i, c := range rel.Clauses {
			nc := ast.MapClauseArgs(c, func(a ast.Argument) ast.Argument { return a })
			rewrote := false
			rewriteAtomRelations(nc.Head, resolved, cyclic, &rewrote)
			for _, l := range nc.Body {
				switch lit := l.(type) {
				case *ast.Atom:
					rewriteAtomRelations(lit, resolved, cyclic, &rewrote)
				case *ast.Negation:
					rewriteAtomRelations(lit.Atom, resolved, cyclic, &rewrote)
				}
			}
			if rewrote {
				rel.Clauses[i] = nc
				changed = true
			}
		}
	}

	for key := range alias {
		if cyclic[key] {
			if rel, ok := prog.Relation(ast.NewRelationIdentifier(key)); ok {
				rel.Clauses = nil
				changed = true
			}
			continue
		}
		if rel, ok := prog.Relation(ast.NewRelationIdentifier(key)); ok && !rel.Output && !rel.Input {
			prog.RemoveRelation(rel.ID)
			changed = true
		}
	}
	return changed
}

// copyTarget reports the single body atom c copies positionally, or false
// if c is not a pure variable-to-variable (or matching-record) projection.
func copyTarget(rel *ast.Relation, c *ast.Clause) (ast.RelationIdentifier, bool) {
	if len(c.Body) != 1 {
		return nil, false
	}
	atom, ok := c.Body[0].(*ast.Atom)
	if !ok {
		return nil, false
	}
	if len(atom.Args) != len(c.Head.Args) {
		return nil, false
	}
	for i, headArg := range c.Head.Args {
		if !positionallyIdentical(headArg, atom.Args[i]) {
			return nil, false
		}
	}
	return atom.Relation, true
}

func positionallyIdentical(a, b ast.Argument) bool {
	av, aok := a.(*ast.Variable)
	bv, bok := b.(*ast.Variable)
	if aok && bok {
		return av.Name == bv.Name
	}
	arec, aok := a.(*ast.RecordInit)
	brec, bok := b.(*ast.RecordInit)
	if aok && bok {
		if arec.Type != brec.Type || len(arec.Elements) != len(brec.Elements) {
			return false
		}
		for i := range arec.Elements {
			if !positionallyIdentical(arec.Elements[i], brec.Elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func resolveAlias(alias map[string]string, start string) (string, bool) {
	seen := map[string]bool{start: true}
	cur := start
	for {
		next, ok := alias[cur]
		if !ok {
			return cur, false
		}
		if seen[next] {
			return start, true
		}
		seen[next] = true
		cur = next
	}
}

func rewriteAtomRelations(atom *ast.Atom, resolved map[string]string, cyclic map[string]bool, rewrote *bool) {
	key := atom.Relation.String()
	if cyclic[key] {
		return
	}
	if target, ok := resolved[key]; ok && target != key {
		atom.Relation = ast.NewRelationIdentifier(target)
		*rewrote = true
	}
}

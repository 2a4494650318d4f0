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

// ExtractDisconnectedLiterals builds an undirected variable-co-occurrence
// graph per clause and peels off any literal whose variables all lie in a
// component disjoint from the head's, into a fresh 0-arity relation
// `disconnected_<id>`, <id> a fresh UUID (spec.md §4.4 "Extract
// disconnected literals").
func ExtractDisconnectedLiterals(prog *ast.Program) bool {
	changed := false
	for _, rel := range prog.RelationsInOrder() {
		var newClauses []*ast.Clause
		for _, c := range rel.Clauses {
			nc, didChange := extractFromClause(prog, c)
			if didChange {
				changed = true
			}
			newClauses = append(newClauses, nc)
		}
		rel.Clauses = newClauses
	}
	return changed
}

type unionFind struct{ parent map[string]string }

func newUnionFind() *unionFind { return &unionFind{parent: make(map[string]string)} }

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func extractFromClause(prog *ast.Program, c *ast.Clause) (*ast.Clause, bool) {
	if c.IsFact() {
		return c, false
	}
	uf := newUnionFind()
	litVars := make([]map[string]bool, len(c.Body))
	for i, l := range c.Body {
		vars := make(map[string]bool)
		for _, v := range literalVars(l) {
			vars[v] = true
		}
		litVars[i] = vars
		names := make([]string, 0, len(vars))
		for n := range vars {
			names = append(names, n)
		}
		for j := 1; j < len(names); j++ {
			uf.union(names[0], names[j])
		}
	}

	headVars := make(map[string]bool)
	for _, v := range argVars(c.Head.Args) {
		headVars[v] = true
		uf.find(v)
	}
	var headRoot string
	for v := range headVars {
		headRoot = uf.find(v)
		break
	}

	var keep []ast.Literal
	var disconnected []ast.Literal
	for i, l := range c.Body {
		if len(litVars[i]) == 0 {
			keep = append(keep, l)
			continue
		}
		var root string
		for v := range litVars[i] {
			root = uf.find(v)
			break
		}
		if headRoot != "" && root == headRoot {
			keep = append(keep, l)
		} else if len(headVars) == 0 {
			// No head variables: everything is trivially in the head's
			// (empty) component, nothing to disconnect.
			keep = append(keep, l)
		} else {
			disconnected = append(disconnected, l)
		}
	}
	if len(disconnected) == 0 {
		return c, false
	}

	relName := "disconnected_" + shortUUID()
	relID := ast.NewRelationIdentifier(relName)
	newRel := &ast.Relation{
		ID:       relID,
		Computed: true,
		Clauses: []*ast.Clause{
			{Head: &ast.Atom{Relation: relID}, Body: disconnected, Generation: ast.Synthesized},
		},
	}
	prog.AddRelation(newRel)

	newBody := append(keep, &ast.Atom{Relation: relID})
	nc := &ast.Clause{Head: c.Head, Body: newBody, Plans: c.Plans, Generation: c.Generation, Location: c.Location}
	return nc, true
}

func literalVars(l ast.Literal) []string {
	switch lit := l.(type) {
	case *ast.Atom:
		return argVars(lit.Args)
	case *ast.Negation:
		return argVars(lit.Atom.Args)
	case *ast.Constraint:
		out := argVars([]ast.Argument{lit.LHS})
		return append(out, argVars([]ast.Argument{lit.RHS})...)
	default:
		return nil
	}
}

func argVars(args []ast.Argument) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(a ast.Argument)
	walk = func(a ast.Argument) {
		switch v := a.(type) {
		case *ast.Variable:
			if !seen[v.Name] {
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
	for _, a := range args {
		walk(a)
	}
	return out
}

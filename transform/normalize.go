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

// NormalizeConstraints puts every body atom's argument list into the shape
// lowering expects: plain, possibly-repeated variable names. A constant or a
// functor/record expression at an atom argument position is replaced by a
// fresh bound variable plus a trailing equality constraint; a bare `_` is
// replaced by a fresh never-reused variable (spec.md §4.4 "Normalize
// constraints"). Head arguments and Constraint/Negation operands are left
// untouched — only positive-atom argument positions feed the scan/lookup
// operations that need this normal form.
func NormalizeConstraints(prog *ast.Program) bool {
	changed := false
	for _, rel := range prog.RelationsInOrder() {
		for i, c := range rel.Clauses {
			nc, didChange := normalizeClause(c)
			if didChange {
				rel.Clauses[i] = nc
				changed = true
			}
		}
	}
	return changed
}

func normalizeClause(c *ast.Clause) (*ast.Clause, bool) {
	changed := false
	freshName := func() string {
		return normalizedVarPrefix + shortUUID()
	}

	var extra []ast.Literal
	newBody := make([]ast.Literal, 0, len(c.Body))
	for _, l := range c.Body {
		atom, ok := l.(*ast.Atom)
		if !ok {
			newBody = append(newBody, l)
			continue
		}
		newArgs := make([]ast.Argument, len(atom.Args))
		atomChanged := false
		for i, a := range atom.Args {
			switch a.(type) {
			case *ast.Variable:
				newArgs[i] = a
			case *ast.UnnamedVariable:
				newArgs[i] = &ast.Variable{Name: freshName(), Location: a.Loc()}
				atomChanged = true
			default:
				name := freshName()
				newArgs[i] = &ast.Variable{Name: name, Location: a.Loc()}
				extra = append(extra, &ast.Constraint{
					Op:       ast.OpEq,
					LHS:      &ast.Variable{Name: name, Location: a.Loc()},
					RHS:      a,
					Location: a.Loc(),
				})
				atomChanged = true
			}
		}
		if atomChanged {
			changed = true
			newBody = append(newBody, &ast.Atom{Relation: atom.Relation, Args: newArgs, Location: atom.Location})
		} else {
			newBody = append(newBody, atom)
		}
	}
	if !changed {
		return c, false
	}
	newBody = append(newBody, extra...)
	return &ast.Clause{Head: c.Head, Body: newBody, Plans: c.Plans, Generation: c.Generation, Location: c.Location}, true
}

// normalizedVarPrefix marks variables synthesized by NormalizeConstraints so
// later passes (and the lowering value index) can recognize them as
// never-reused without tracking a separate set.
const normalizedVarPrefix = "$norm_"

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

package lower

import (
	"sort"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/precedence"
	"github.com/arrowlang/dlc/ram"
)

// BuildRecursiveBlock lowers one recursive SCC into the semi-naive
// preamble/loop/postamble shape of spec.md §4.7. scc.Relations holds
// relation identifier strings (precedence.SCC); prog resolves them back to
// *ast.Relation.
func BuildRecursiveBlock(ctx *Context, prog *ast.Program, scc *precedence.SCC) ram.Statement {
	members := append([]string(nil), scc.Relations...)
	sort.Strings(members)
	inSCC := make(map[string]bool, len(members))
	for _, m := range members {
		inSCC[m] = true
	}

	var preamble []ram.Statement
	for _, name := range members {
		rel := prog.Relations[name]
		if rel == nil {
			continue
		}
		for _, c := range rel.Clauses {
			if c.IsFact() {
				preamble = append(preamble, &ram.Fact{Relation: rel.ID, Values: FactStatement(ctx, c).Values})
				continue
			}
			if clauseTouchesSCC(c, inSCC) {
				continue
			}
			preamble = append(preamble, &ram.Insert{Op: Translate(ctx, prog, rel.ID, c, clauseOptions{})})
		}
		preamble = append(preamble, &ram.Merge{Target: deltaName(rel.ID), Source: rel.ID})
	}

	var loopBody []ram.Statement
	for _, name := range members {
		rel := prog.Relations[name]
		if rel == nil {
			continue
		}
		for _, c := range rel.Clauses {
			if c.IsFact() || !clauseTouchesSCC(c, inSCC) {
				continue
			}
			loopBody = append(loopBody, recursiveVariants(ctx, prog, rel, c, inSCC)...)
		}
	}

	var emptyConds []ram.Condition
	for _, name := range members {
		rel := prog.Relations[name]
		if rel == nil {
			continue
		}
		emptyConds = append(emptyConds, &ram.Empty{Relation: newName(rel.ID)})
	}
	var exitCond ram.Condition
	switch len(emptyConds) {
	case 0:
		exitCond = &ram.Empty{}
	case 1:
		exitCond = emptyConds[0]
	default:
		exitCond = &ram.And{Operands: emptyConds}
	}

	var update []ram.Statement
	for _, name := range members {
		rel := prog.Relations[name]
		if rel == nil {
			continue
		}
		update = append(update,
			&ram.Merge{Target: rel.ID, Source: newName(rel.ID)},
			&ram.Swap{A: deltaName(rel.ID), B: newName(rel.ID)},
			&ram.Clear{Relation: newName(rel.ID)},
		)
	}

	loop := &ram.Loop{Body: &ram.Sequence{Stmts: append(
		append([]ram.Statement{&ram.Parallel{Stmts: loopBody}}, &ram.Exit{Cond: exitCond}),
		update...,
	)}}

	var postamble []ram.Statement
	for _, name := range members {
		rel := prog.Relations[name]
		if rel == nil {
			continue
		}
		postamble = append(postamble, &ram.Drop{Relation: deltaName(rel.ID)}, &ram.Drop{Relation: newName(rel.ID)})
	}

	stmts := append(append([]ram.Statement{}, preamble...), loop)
	stmts = append(stmts, postamble...)
	return &ram.Sequence{Stmts: stmts}
}

// clauseTouchesSCC reports whether any positive body atom of c names a
// relation in the SCC — spec.md §4.6's "a clause is recursive iff its head
// relation is reachable from some body-literal relation", specialized to
// the membership test this SCC's preamble/loop split needs.
func clauseTouchesSCC(c *ast.Clause, inSCC map[string]bool) bool {
	for _, a := range c.BodyAtoms() {
		if inSCC[a.Relation.String()] {
			return true
		}
	}
	return false
}

// recursiveVariants builds one ram.Insert per in-SCC body-atom position j,
// per spec.md §4.7: a_j scans @delta_{rel(a_j)}, every later in-SCC
// position is guarded against also being a delta tuple (so the union over
// all j double-counts nothing), and the whole variant is guarded against
// already being present in the real (non-delta) head relation so only
// novel tuples are produced.
func recursiveVariants(ctx *Context, prog *ast.Program, rel *ast.Relation, c *ast.Clause, inSCC map[string]bool) []ram.Statement {
	atoms := orderAtoms(c)
	var sccPositions []int
	for i, a := range atoms {
		if inSCC[a.Relation.String()] {
			sccPositions = append(sccPositions, i)
		}
	}

	var variants []ram.Statement
	for _, j := range sccPositions {
		override := map[int]ast.RelationIdentifier{j: deltaName(atoms[j].Relation)}
		extra := map[int][]*ast.Atom{}
		for _, k := range sccPositions {
			if k <= j {
				continue
			}
			extra[k] = append(extra[k], &ast.Atom{Relation: deltaName(atoms[k].Relation), Args: atoms[k].Args})
		}
		lastLevel := len(atoms) - 1
		if lastLevel < 0 {
			lastLevel = 0
		}
		extra[lastLevel] = append(extra[lastLevel], &ast.Atom{Relation: rel.ID, Args: c.Head.Args})

		op := Translate(ctx, prog, newName(rel.ID), c, clauseOptions{
			atomOverride:   override,
			extraNotExists: extra,
		})
		variants = append(variants, &ram.Insert{Op: op})
	}
	return variants
}

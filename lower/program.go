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
	"fmt"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/precedence"
	"github.com/arrowlang/dlc/ram"
)

// Lower drives the whole program through the AST->RAM translator following
// the relation schedule of spec.md §4.6: Create every relation up front,
// Load every input, evaluate each schedule step (a single Insert sequence
// for a non-recursive SCC, the full semi-naive block of §4.7 for a
// recursive one), Store/LogSize outputs as they finish, and Drop relations
// once their schedule-computed Expire set says nothing downstream still
// reads them.
func Lower(ctx *Context, prog *ast.Program, sg *precedence.SCCGraph, sched *precedence.Schedule) *ram.Program {
	var stmts []ram.Statement

	for _, rel := range prog.RelationsInOrder() {
		stmts = append(stmts, &ram.Create{Relation: rel.ID})
	}
	for _, rel := range prog.RelationsInOrder() {
		if rel.Input {
			stmts = append(stmts, &ram.Load{Relation: rel.ID})
		}
	}

	for _, step := range sched.Steps {
		scc := sg.SCCs[step.SCCIndex]
		stmts = append(stmts, lowerStep(ctx, prog, scc)...)
		for _, name := range step.Compute {
			rel := prog.Relations[name]
			if rel == nil {
				continue
			}
			if rel.PrintSize {
				stmts = append(stmts, &ram.LogSize{Label: rel.ID.String(), Relation: rel.ID})
			}
			if rel.Output {
				stmts = append(stmts, &ram.Store{Relation: rel.ID})
			}
		}
		for _, name := range step.Expire {
			rel := prog.Relations[name]
			if rel == nil || rel.Input || rel.Output {
				continue
			}
			stmts = append(stmts, &ram.Drop{Relation: rel.ID})
		}
	}

	main := &ram.LogTimer{Label: "main", Body: &ram.Sequence{Stmts: stmts}}

	subs := make(map[string]ram.Statement)
	for _, rel := range prog.RelationsInOrder() {
		for i, c := range rel.Clauses {
			if c.IsFact() {
				continue
			}
			key := fmt.Sprintf("%s#%d", rel.ID.String(), i)
			subs[key] = &ram.Insert{Op: Translate(ctx, prog, rel.ID, c, clauseOptions{subroutine: true})}
		}
	}

	return &ram.Program{Main: main, Subroutines: subs}
}

func lowerStep(ctx *Context, prog *ast.Program, scc *precedence.SCC) []ram.Statement {
	if scc.Recursive {
		return []ram.Statement{&ram.DebugInfo{Text: "recursive scc", Body: BuildRecursiveBlock(ctx, prog, scc)}}
	}
	var stmts []ram.Statement
	for _, name := range scc.Relations {
		rel := prog.Relations[name]
		if rel == nil {
			continue
		}
		for _, c := range rel.Clauses {
			if c.IsFact() {
				stmts = append(stmts, FactStatement(ctx, c))
				continue
			}
			stmts = append(stmts, &ram.Insert{Op: Translate(ctx, prog, rel.ID, c, clauseOptions{})})
		}
	}
	return stmts
}

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

package typesys

import "github.com/arrowlang/dlc/ast"

// Env wraps a program's type declarations and flattens unions down to their
// concrete (primitive/record) leaf members, memoizing the result.
type Env struct {
	prog    *ast.Program
	leaves  map[ast.TypeIdentifier]TypeSet
	universe TypeSet
}

// NewEnv builds a type environment over prog's declared types.
func NewEnv(prog *ast.Program) *Env {
	e := &Env{prog: prog, leaves: make(map[ast.TypeIdentifier]TypeSet)}
	var u TypeSet
	for _, t := range prog.TypesInOrder() {
		if t.Kind == ast.TypePrimitive || t.Kind == ast.TypeRecord {
			if u == nil {
				u = make(TypeSet)
			}
			u[t.Name] = struct{}{}
		}
	}
	if u == nil {
		u = make(TypeSet)
	}
	e.universe = u
	return e
}

// Universe is the lattice bottom element: every concrete type, against
// which fixpoint narrows (spec.md §4.2 "Bottom element = universe of all
// types; fixpoint narrows toward a specific set per argument").
func (e *Env) Universe() TypeSet { return e.universe.Clone() }

// Leaves flattens name to the set of concrete (primitive/record) type
// names it resolves to: itself if already concrete, or the union of its
// members' leaves if it names a union. Cycles (which the checker rejects
// independently) are guarded against with a visited set so this never
// infinite-loops even on a malformed program.
func (e *Env) Leaves(name ast.TypeIdentifier) TypeSet {
	if cached, ok := e.leaves[name]; ok {
		return cached.Clone()
	}
	visited := make(map[ast.TypeIdentifier]bool)
	out := e.leavesRec(name, visited)
	e.leaves[name] = out
	return out.Clone()
}

func (e *Env) leavesRec(name ast.TypeIdentifier, visited map[ast.TypeIdentifier]bool) TypeSet {
	if visited[name] {
		return make(TypeSet)
	}
	visited[name] = true
	t, ok := e.prog.Type(name)
	if !ok {
		return make(TypeSet)
	}
	switch t.Kind {
	case ast.TypePrimitive, ast.TypeRecord:
		return NewTypeSet(name)
	case ast.TypeUnion:
		out := make(TypeSet)
		for _, m := range t.Members {
			for k := range e.leavesRec(m, visited) {
				out[k] = struct{}{}
			}
		}
		return out
	default:
		return make(TypeSet)
	}
}

// BaseKindOf returns the base kind (number/symbol) a concrete leaf type
// resolves to: a primitive's own base, or a record's implicit "not number
// or symbol directly" classification (records never satisfy a
// number/symbol functor signature, so BaseKindOf is only meaningful for
// primitives; ok is false for records/unknown names).
func (e *Env) BaseKindOf(name ast.TypeIdentifier) (ast.BaseKind, bool) {
	t, ok := e.prog.Type(name)
	if !ok || t.Kind != ast.TypePrimitive {
		return 0, false
	}
	return t.Base, true
}

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

// Package typesys implements the type environment and per-argument type
// inference of spec.md §4.2: a lattice of TypeSets with meet (greatest
// common subtype) and join (least common supertype) operators, solved by
// Kleene iteration to a fixpoint.
package typesys

import "github.com/arrowlang/dlc/ast"

// TypeSet is a set of concrete (primitive or record) leaf type names — the
// "permitted concrete types" an argument could resolve to. Unions are never
// members of a TypeSet directly; Env.Leaves flattens a union to its
// concrete members first.
type TypeSet map[ast.TypeIdentifier]struct{}

// NewTypeSet builds a TypeSet from a list of leaf type names.
func NewTypeSet(ids ...ast.TypeIdentifier) TypeSet {
	s := make(TypeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Clone returns an independent copy.
func (s TypeSet) Clone() TypeSet {
	cp := make(TypeSet, len(s))
	for k := range s {
		cp[k] = struct{}{}
	}
	return cp
}

// Empty reports whether the set has no permitted types left — this is the
// "uninferable type" error condition (spec.md invariant 4 / §7 "uninferable
// type set (empty solution)").
func (s TypeSet) Empty() bool { return len(s) == 0 }

// Contains reports whether t is a permitted concrete type.
func (s TypeSet) Contains(t ast.TypeIdentifier) bool {
	_, ok := s[t]
	return ok
}

// Meet is the greatest common subtype: intersection of permitted concrete
// types (spec.md §4.2).
func Meet(a, b TypeSet) TypeSet {
	out := make(TypeSet)
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for k := range small {
		if _, ok := big[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// Join is the least common supertype: union of permitted concrete types,
// used to loosely bound negated-atom arguments so they do not
// over-constrain the rest of the clause (spec.md §4.2).
func Join(a, b TypeSet) TypeSet {
	out := make(TypeSet, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

// Equal reports whether two TypeSets contain exactly the same types,
// used by the Kleene-iteration fixpoint check.
func Equal(a, b TypeSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

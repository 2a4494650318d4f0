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

package ast

// StorageHint names the backend storage representation the downstream RAM
// interpreter should use for a relation (opaque to the core beyond
// forwarding it, spec.md §3).
type StorageHint int

const (
	StorageBTree StorageHint = iota
	StorageBrie
	StorageEqrel
	StorageHashset
)

// Attribute is one (name, type) column of a relation.
type Attribute struct {
	Name string
	Type TypeIdentifier
}

// IODirective is one `.input`/`.output`-style directive attached to a
// relation. Every field beyond Kind/Relation is opaque to the core and
// forwarded verbatim to the downstream backend (spec.md §6).
type IODirective struct {
	Kind     string // "input", "output", "printsize", ...
	Relation RelationIdentifier
	// Extensions holds arbitrary key=value pairs (IO=, filename, delimiter,
	// headers, attributeNames, intermediate, plus anything else the
	// frontend captured) opaque to the core. Serializes losslessly via
	// gopkg.in/yaml.v2 for the DebugReport / golden-file tests.
	Extensions map[string]interface{}
	Location   SourceLocation
}

func (d *IODirective) Clone() *IODirective {
	cp := *d
	cp.Relation = d.Relation.Clone()
	cp.Extensions = make(map[string]interface{}, len(d.Extensions))
	for k, v := range d.Extensions {
		cp.Extensions[k] = v
	}
	return &cp
}

// Relation is a named, declared-arity predicate. The program node owns its
// clauses and I/O directives; this struct holds them directly (tree-shaped
// ownership, spec.md §3 "Ownership").
type Relation struct {
	ID         RelationIdentifier
	Attributes []Attribute

	Input      bool
	Output     bool
	PrintSize  bool
	Computed   bool
	Inline     bool
	Storage    StorageHint
	HasStorage bool

	Clauses []*Clause
	IO      []*IODirective

	Location SourceLocation
}

// Arity returns the relation's declared arity.
func (r *Relation) Arity() int { return len(r.Attributes) }

func (r *Relation) Clone() Node {
	cp := *r
	cp.ID = r.ID.Clone()
	cp.Attributes = append([]Attribute(nil), r.Attributes...)
	cp.Clauses = make([]*Clause, len(r.Clauses))
	for i, c := range r.Clauses {
		cp.Clauses[i] = c.Clone().(*Clause)
	}
	cp.IO = make([]*IODirective, len(r.IO))
	for i, d := range r.IO {
		cp.IO[i] = d.Clone()
	}
	return &cp
}

// IsEmpty reports whether this relation has no defining clauses and is not
// an input relation (spec.md §4.4 "Remove empty/redundant relations").
func (r *Relation) IsEmpty() bool {
	return len(r.Clauses) == 0 && !r.Input
}

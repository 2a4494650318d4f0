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

// Pragma is one `.pragma key value` directive, kept in declaration order so
// last-writer-wins / duplicate-warning semantics (SPEC_FULL.md, "Pragma
// last-writer-wins") can be computed without losing earlier occurrences.
type Pragma struct {
	Key, Value string
	Location   SourceLocation
}

// Program is the translation unit's single root: it exclusively owns every
// type, relation (and, through relations, every clause and I/O directive)
// and pragma (spec.md §3 "Ownership"). There is exactly one Program per
// compilation.
type Program struct {
	Types     map[TypeIdentifier]*Type
	Relations map[string]*Relation // keyed by RelationIdentifier.String()
	Pragmas   []Pragma

	// relOrder/typeOrder preserve declaration order for deterministic
	// iteration (diagnostics, pretty-printing, schedule construction all
	// depend on a stable order, not Go's randomized map iteration).
	relOrder  []string
	typeOrder []TypeIdentifier
}

// NewProgram returns an empty program pre-seeded with the two predefined
// primitive types (spec.md §3 invariant: "number and symbol are predefined
// and always present").
func NewProgram() *Program {
	p := &Program{
		Types:     make(map[TypeIdentifier]*Type),
		Relations: make(map[string]*Relation),
	}
	p.addType(NewPrimitiveType(NumberType, BaseNumber))
	p.addType(NewPrimitiveType(SymbolType, BaseSymbol))
	return p
}

func (p *Program) addType(t *Type) {
	if _, exists := p.Types[t.Name]; !exists {
		p.typeOrder = append(p.typeOrder, t.Name)
	}
	p.Types[t.Name] = t
}

// AddType registers a user type declaration (number/symbol are pre-seeded
// and may not be re-added).
func (p *Program) AddType(t *Type) {
	if t.Name == NumberType || t.Name == SymbolType {
		return
	}
	p.addType(t)
}

// AddRelation registers a relation declaration.
func (p *Program) AddRelation(r *Relation) {
	key := r.ID.String()
	if _, exists := p.Relations[key]; !exists {
		p.relOrder = append(p.relOrder, key)
	}
	p.Relations[key] = r
}

// RemoveRelation drops a relation entirely (used by remove-empty-relations
// and remove-relation-copies).
func (p *Program) RemoveRelation(id RelationIdentifier) {
	key := id.String()
	if _, ok := p.Relations[key]; !ok {
		return
	}
	delete(p.Relations, key)
	for i, k := range p.relOrder {
		if k == key {
			p.relOrder = append(p.relOrder[:i], p.relOrder[i+1:]...)
			break
		}
	}
}

// Relation looks up a relation by identifier.
func (p *Program) Relation(id RelationIdentifier) (*Relation, bool) {
	r, ok := p.Relations[id.String()]
	return r, ok
}

// Type looks up a type by identifier.
func (p *Program) Type(id TypeIdentifier) (*Type, bool) {
	t, ok := p.Types[id]
	return t, ok
}

// RelationsInOrder returns every relation in declaration order.
func (p *Program) RelationsInOrder() []*Relation {
	out := make([]*Relation, 0, len(p.relOrder))
	for _, k := range p.relOrder {
		if r, ok := p.Relations[k]; ok {
			out = append(out, r)
		}
	}
	return out
}

// TypesInOrder returns every type in declaration order, number/symbol
// first.
func (p *Program) TypesInOrder() []*Type {
	out := make([]*Type, 0, len(p.typeOrder))
	for _, k := range p.typeOrder {
		if t, ok := p.Types[k]; ok {
			out = append(out, t)
		}
	}
	return out
}

// AllClauses returns every clause in the program, relation-declaration
// order then clause order within the relation. Most passes iterate this
// way so rewrites are deterministic.
func (p *Program) AllClauses() []*Clause {
	var out []*Clause
	for _, r := range p.RelationsInOrder() {
		out = append(out, r.Clauses...)
	}
	return out
}

// Clone returns a deep, independently-owned copy of the whole program.
func (p *Program) Clone() *Program {
	cp := &Program{
		Types:     make(map[TypeIdentifier]*Type, len(p.Types)),
		Relations: make(map[string]*Relation, len(p.Relations)),
		Pragmas:   append([]Pragma(nil), p.Pragmas...),
		relOrder:  append([]string(nil), p.relOrder...),
		typeOrder: append([]TypeIdentifier(nil), p.typeOrder...),
	}
	for k, t := range p.Types {
		cp.Types[k] = t.Clone()
	}
	for k, r := range p.Relations {
		cp.Relations[k] = r.Clone().(*Relation)
	}
	return cp
}

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

// BaseKind is the two concrete primitive kinds every type ultimately
// resolves to (spec.md §3).
type BaseKind int

const (
	BaseNumber BaseKind = iota
	BaseSymbol
)

func (b BaseKind) String() string {
	if b == BaseNumber {
		return "number"
	}
	return "symbol"
}

// TypeKind discriminates the three Type variants.
type TypeKind int

const (
	TypePrimitive TypeKind = iota
	TypeUnion
	TypeRecord
)

// RecordField is one (name, type) pair of a record type.
type RecordField struct {
	Name string
	Type TypeIdentifier
}

// Type is one declaration in the type environment: primitive, union or
// record. Exactly one of the kind-specific fields is meaningful, selected by
// Kind.
type Type struct {
	Name TypeIdentifier
	Kind TypeKind
	Loc  SourceLocation

	// TypePrimitive
	Base BaseKind

	// TypeUnion
	Members []TypeIdentifier

	// TypeRecord
	Fields []RecordField
}

// Predefined type names, always present in every type environment (spec.md
// §3 invariant).
const (
	NumberType TypeIdentifier = "number"
	SymbolType TypeIdentifier = "symbol"
)

// NewPrimitiveType builds the program-defined number/symbol primitives, or a
// user primitive type with a declared base kind.
func NewPrimitiveType(name TypeIdentifier, base BaseKind) *Type {
	return &Type{Name: name, Kind: TypePrimitive, Base: base}
}

// NewUnionType builds a named union of member types sharing a base kind
// (checked by the semantic checker, not here).
func NewUnionType(name TypeIdentifier, members ...TypeIdentifier) *Type {
	m := make([]TypeIdentifier, len(members))
	copy(m, members)
	return &Type{Name: name, Kind: TypeUnion, Members: m}
}

// NewRecordType builds a named ordered record type.
func NewRecordType(name TypeIdentifier, fields ...RecordField) *Type {
	f := make([]RecordField, len(fields))
	copy(f, fields)
	return &Type{Name: name, Kind: TypeRecord, Fields: f}
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Members = append([]TypeIdentifier(nil), t.Members...)
	cp.Fields = append([]RecordField(nil), t.Fields...)
	return &cp
}

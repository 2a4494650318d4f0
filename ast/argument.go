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

import "fmt"

// Argument is the closed sum type of every argument variant (spec.md §3).
// The dozen C++ subclasses of a deep Argument hierarchy become one
// interface with an exhaustive type switch at every consumer instead of
// dynamic_cast (see DESIGN.md).
type Argument interface {
	Node
	isArgument()
	// Loc returns the argument's source location.
	Loc() SourceLocation
}

// Node is implemented by every AST node and exposes Clone for the
// tree-mapper protocol.
type Node interface {
	// Clone returns a deep, independently-owned copy.
	Clone() Node
}

// Variable is a named, user-introduced logic variable.
type Variable struct {
	Name     string
	Location SourceLocation
}

func (v *Variable) isArgument()          {}
func (v *Variable) Loc() SourceLocation  { return v.Location }
func (v *Variable) Clone() Node          { cp := *v; return &cp }
func (v *Variable) String() string       { return v.Name }

// UnnamedVariable is the `_` wildcard: always fresh, never unifies by name
// with another `_`.
type UnnamedVariable struct {
	Location SourceLocation
}

func (u *UnnamedVariable) isArgument()         {}
func (u *UnnamedVariable) Loc() SourceLocation { return u.Location }
func (u *UnnamedVariable) Clone() Node         { cp := *u; return &cp }

// Counter is the `$` auto-increment argument.
type Counter struct {
	Location SourceLocation
}

func (c *Counter) isArgument()         {}
func (c *Counter) Loc() SourceLocation { return c.Location }
func (c *Counter) Clone() Node         { cp := *c; return &cp }

// NumberConstant is a literal numeric constant.
type NumberConstant struct {
	Value    int64
	Location SourceLocation
}

func (n *NumberConstant) isArgument()         {}
func (n *NumberConstant) Loc() SourceLocation { return n.Location }
func (n *NumberConstant) Clone() Node         { cp := *n; return &cp }

// StringConstant is a literal symbol constant. The raw string is what the
// frontend handed us. Nothing in the compiler sets SymbolID: lowering
// interns Value through its symbol.Table directly (package lower).
type StringConstant struct {
	Value    string
	SymbolID uint64
	Location SourceLocation
}

func (s *StringConstant) isArgument()         {}
func (s *StringConstant) Loc() SourceLocation { return s.Location }
func (s *StringConstant) Clone() Node         { cp := *s; return &cp }

// FunctorOp names a built-in functor and its fixed number/symbol signature.
type FunctorOp string

const (
	// Arithmetic, number -> number.
	FunctorAdd FunctorOp = "+"
	FunctorSub FunctorOp = "-"
	FunctorMul FunctorOp = "*"
	FunctorDiv FunctorOp = "/"
	FunctorMod FunctorOp = "%"
	FunctorNeg FunctorOp = "neg" // unary

	// String, symbol -> symbol / number.
	FunctorCat    FunctorOp = "cat"    // binary: symbol, symbol -> symbol
	FunctorOrd    FunctorOp = "ord"    // unary: symbol -> number
	FunctorStrlen FunctorOp = "strlen" // unary: symbol -> number
	FunctorSubstr FunctorOp = "substr" // ternary: symbol, number, number -> symbol
)

// FunctorSignature is the fixed, declared arity/operand/result kind set for
// a built-in functor.
type FunctorSignature struct {
	Arity    int
	Operands []BaseKind
	Result   BaseKind
}

// FunctorSignatures is the registry of every built-in functor's fixed
// signature, consulted by type analysis (spec.md §4.2).
var FunctorSignatures = map[FunctorOp]FunctorSignature{
	FunctorAdd:    {2, []BaseKind{BaseNumber, BaseNumber}, BaseNumber},
	FunctorSub:    {2, []BaseKind{BaseNumber, BaseNumber}, BaseNumber},
	FunctorMul:    {2, []BaseKind{BaseNumber, BaseNumber}, BaseNumber},
	FunctorDiv:    {2, []BaseKind{BaseNumber, BaseNumber}, BaseNumber},
	FunctorMod:    {2, []BaseKind{BaseNumber, BaseNumber}, BaseNumber},
	FunctorNeg:    {1, []BaseKind{BaseNumber}, BaseNumber},
	FunctorCat:    {2, []BaseKind{BaseSymbol, BaseSymbol}, BaseSymbol},
	FunctorOrd:    {1, []BaseKind{BaseSymbol}, BaseNumber},
	FunctorStrlen: {1, []BaseKind{BaseSymbol}, BaseNumber},
	FunctorSubstr: {3, []BaseKind{BaseSymbol, BaseNumber, BaseNumber}, BaseSymbol},
}

// Functor is a unary/binary/ternary built-in functor application. Arity is
// implied by len(Operands) and must match FunctorSignatures[Op].Arity.
type Functor struct {
	Op       FunctorOp
	Operands []Argument
	Location SourceLocation
}

func (f *Functor) isArgument()         {}
func (f *Functor) Loc() SourceLocation { return f.Location }
func (f *Functor) Clone() Node {
	cp := *f
	cp.Operands = make([]Argument, len(f.Operands))
	for i, o := range f.Operands {
		cp.Operands[i] = o.Clone().(Argument)
	}
	return &cp
}

// Arity returns the functor's declared arity, validated against
// FunctorSignatures by the semantic checker.
func (f *Functor) Arity() int { return len(f.Operands) }

// RecordInit is an ordered record initializer `type_name{e1, ..., en}`.
type RecordInit struct {
	Type     TypeIdentifier
	Elements []Argument
	Location SourceLocation
}

func (r *RecordInit) isArgument()         {}
func (r *RecordInit) Loc() SourceLocation { return r.Location }
func (r *RecordInit) Clone() Node {
	cp := *r
	cp.Elements = make([]Argument, len(r.Elements))
	for i, e := range r.Elements {
		cp.Elements[i] = e.Clone().(Argument)
	}
	return &cp
}

// AggregatorFunc is one of the four supported aggregate functions.
type AggregatorFunc int

const (
	AggMin AggregatorFunc = iota
	AggMax
	AggCount
	AggSum
)

func (f AggregatorFunc) String() string {
	switch f {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	default:
		return fmt.Sprintf("agg(%d)", int(f))
	}
}

// Aggregator is `func target : { body }` (target optional for count).
// VisitIndex is assigned by the transform pipeline (unique-aggregation-
// variables, spec.md §4.4) to keep renamed target variables unique across
// nesting; it is not meaningful before that pass runs.
type Aggregator struct {
	Func       AggregatorFunc
	Target     Argument // nil for bare `count : { ... }`
	Body       []Literal
	VisitIndex int
	Location   SourceLocation
}

func (a *Aggregator) isArgument()         {}
func (a *Aggregator) Loc() SourceLocation { return a.Location }
func (a *Aggregator) Clone() Node {
	cp := *a
	if a.Target != nil {
		cp.Target = a.Target.Clone().(Argument)
	}
	cp.Body = cloneLiterals(a.Body)
	return &cp
}

// SubroutineArg is a positional reference into a provenance subproof
// subroutine's argument vector.
type SubroutineArg struct {
	Index    int
	Location SourceLocation
}

func (s *SubroutineArg) isArgument()         {}
func (s *SubroutineArg) Loc() SourceLocation { return s.Location }
func (s *SubroutineArg) Clone() Node         { cp := *s; return &cp }

func cloneArgs(args []Argument) []Argument {
	out := make([]Argument, len(args))
	for i, a := range args {
		out[i] = a.Clone().(Argument)
	}
	return out
}

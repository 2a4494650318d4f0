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

// Package ram is the backend contract of spec.md §6: the relational
// algebra machine IR the translator (package lower) emits and a downstream
// interpreter (out of scope) would consume. As with package ast, every
// C++-side class hierarchy becomes one Go interface plus an exhaustive type
// switch at each consumer.
package ram

import "github.com/arrowlang/dlc/ast"

// Statement is the closed sum type of top-level RAM statements.
type Statement interface {
	isStatement()
}

// Sequence runs its statements one after another.
type Sequence struct{ Stmts []Statement }

// Parallel runs its statements concurrently, joining before continuing
// (spec.md §5: "runs its per-relation rule computations on independent
// worker threads, synchronizing only at the end of the block").
type Parallel struct{ Stmts []Statement }

// Loop repeats Body until an Exit statement inside it fires.
type Loop struct{ Body Statement }

// Exit breaks out of the innermost enclosing Loop when Cond holds.
type Exit struct{ Cond Condition }

// Create instantiates a relation's backing store.
type Create struct{ Relation ast.RelationIdentifier }

// Load populates a relation from its input I/O directive.
type Load struct{ Relation ast.RelationIdentifier }

// Store writes a relation out through its output I/O directive.
type Store struct{ Relation ast.RelationIdentifier }

// Clear empties a relation's store without dropping it.
type Clear struct{ Relation ast.RelationIdentifier }

// Drop releases a relation's backing store entirely.
type Drop struct{ Relation ast.RelationIdentifier }

// Merge unions Source's tuples into Target.
type Merge struct{ Target, Source ast.RelationIdentifier }

// Swap exchanges the backing stores of A and B in place (used by semi-naive
// evaluation's delta/new rotation, spec.md §4.7).
type Swap struct{ A, B ast.RelationIdentifier }

// Fact directly inserts one tuple of literal Values into Relation (a
// clause with an empty body, spec.md §4.5 "Facts become a direct fact
// insert").
type Fact struct {
	Relation ast.RelationIdentifier
	Values   []Value
}

// Insert runs Op, which terminates in one or more Project operations that
// populate relations.
type Insert struct{ Op Operation }

// LogTimer wraps Body, recording its wall-clock duration under Label for
// profiling output.
type LogTimer struct {
	Label string
	Body  Statement
}

// LogSize records the cardinality of Relation under Label.
type LogSize struct {
	Label    string
	Relation ast.RelationIdentifier
}

// DebugInfo attaches an opaque annotation (typically the source clause
// text) to Body, carried through to the backend for diagnostics; it has no
// semantic effect.
type DebugInfo struct {
	Text string
	Body Statement
}

func (*Sequence) isStatement()  {}
func (*Parallel) isStatement()  {}
func (*Loop) isStatement()      {}
func (*Exit) isStatement()      {}
func (*Create) isStatement()    {}
func (*Load) isStatement()      {}
func (*Store) isStatement()     {}
func (*Clear) isStatement()     {}
func (*Drop) isStatement()      {}
func (*Merge) isStatement()     {}
func (*Swap) isStatement()      {}
func (*Fact) isStatement()      {}
func (*Insert) isStatement()    {}
func (*LogTimer) isStatement()  {}
func (*LogSize) isStatement()   {}
func (*DebugInfo) isStatement() {}

// Operation is the closed sum type of operations nested under an Insert,
// forming the loop-nest body built by package lower.
type Operation interface {
	isOperation()
}

// Scan iterates every tuple of Relation, binding it at Level for nested
// operations and conditions to reference via ElementAccess.
type Scan struct {
	Relation ast.RelationIdentifier
	Level    int
	Cond     Condition // nil means unconditional
	Nested   Operation
}

// Lookup unpacks a record-typed value (an ElementAccess or Pack) into its
// component fields, binding the result at Level.
type Lookup struct {
	Level  int
	Source Value
	Nested Operation
}

// Aggregate computes Func over every tuple a nested Scan of Relation
// produces (restricted by Cond), binding the scalar result at Level.
type Aggregate struct {
	Func     ast.AggregatorFunc
	Relation ast.RelationIdentifier
	Level    int
	Target   Value     // nil for count
	Cond     Condition // nil means unconditional
	Nested   Operation
}

// Project inserts one tuple (the evaluated Values) into Relation: the
// innermost operation of every loop nest (spec.md §4.5).
type Project struct {
	Relation ast.RelationIdentifier
	Values   []Value
}

// Return yields Values from a provenance subproof subroutine instead of
// inserting them into a relation.
type Return struct{ Values []Value }

func (*Scan) isOperation()      {}
func (*Lookup) isOperation()    {}
func (*Aggregate) isOperation() {}
func (*Project) isOperation()   {}
func (*Return) isOperation()    {}

// Condition is the closed sum type of loop-nest guard conditions.
type Condition interface {
	isCondition()
}

// BinaryRelation compares L and R with Op (spec.md §4.5 "binary constraints
// translated directly" / "second occurrence of a variable equates to its
// first definition point").
type BinaryRelation struct {
	Op   ast.ConstraintOp
	L, R Value
}

// NotExists holds when no tuple of Relation matches Args (a negated atom,
// spec.md §4.5).
type NotExists struct {
	Relation ast.RelationIdentifier
	Args     []Value
}

// And conjoins every condition in Operands.
type And struct{ Operands []Condition }

// Empty holds when Relation currently has zero tuples (used by the
// semi-naive Exit condition, spec.md §4.7: "exit when all @new_r are
// empty").
type Empty struct{ Relation ast.RelationIdentifier }

func (*BinaryRelation) isCondition() {}
func (*NotExists) isCondition()      {}
func (*And) isCondition()            {}
func (*Empty) isCondition()          {}

// Value is the closed sum type of RAM-level scalar expressions.
type Value interface {
	isValue()
}

// Number is a literal numeric constant.
type Number struct{ Value int64 }

// ElementAccess reads component Component of the tuple bound at Level; Name
// is carried for debug output only.
type ElementAccess struct {
	Level     int
	Component int
	Name      string
}

// AutoIncrement yields the next value of the program-wide `$` counter.
type AutoIncrement struct{}

// Pack builds a record value from Values, in field order.
type Pack struct{ Values []Value }

// UnaryOp applies Func to Operand (e.g. FunctorNeg/FunctorOrd/FunctorStrlen).
type UnaryOp struct {
	Func    ast.FunctorOp
	Operand Value
}

// BinaryOp applies Func to L, R (arithmetic/cat/comparisons lowered from a
// Functor).
type BinaryOp struct {
	Func ast.FunctorOp
	L, R Value
}

// TernaryOp applies Func (currently only FunctorSubstr) to three operands.
type TernaryOp struct {
	Func               ast.FunctorOp
	First, Second, Third Value
}

// Argument reads positional argument Index of the enclosing subroutine
// call (provenance subproofs).
type Argument struct{ Index int }

func (Number) isValue()        {}
func (ElementAccess) isValue() {}
func (AutoIncrement) isValue() {}
func (Pack) isValue()          {}
func (UnaryOp) isValue()       {}
func (BinaryOp) isValue()      {}
func (TernaryOp) isValue()     {}
func (Argument) isValue()      {}

// Program is the full backend contract handed to the downstream
// interpreter: a main statement plus, for provenance/explain support, a
// per-clause subroutine map (spec.md §6).
type Program struct {
	Main        Statement
	Subroutines map[string]Statement
}

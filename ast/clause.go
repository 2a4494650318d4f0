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

// Literal is the closed sum type of body-literal variants: positive atom,
// negated atom, or binary constraint.
type Literal interface {
	Node
	isLiteral()
	Loc() SourceLocation
}

// Atom is a predicate application `relation(args...)`.
type Atom struct {
	Relation RelationIdentifier
	Args     []Argument
	Location SourceLocation
}

func (a *Atom) isLiteral()          {}
func (a *Atom) Loc() SourceLocation { return a.Location }
func (a *Atom) Clone() Node {
	cp := *a
	cp.Relation = a.Relation.Clone()
	cp.Args = cloneArgs(a.Args)
	return &cp
}

// Negation wraps an atom with `!`.
type Negation struct {
	Atom     *Atom
	Location SourceLocation
}

func (n *Negation) isLiteral()          {}
func (n *Negation) Loc() SourceLocation { return n.Location }
func (n *Negation) Clone() Node {
	cp := *n
	cp.Atom = n.Atom.Clone().(*Atom)
	return &cp
}

// ConstraintOp is a binary relational operator for a Constraint literal.
type ConstraintOp int

const (
	OpEq ConstraintOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (o ConstraintOp) String() string {
	switch o {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return "?"
	}
}

// Negate returns the logical negation of a comparison operator, used when
// De Morgan-expanding a negated inlined atom whose body reduces to a single
// constraint.
func (o ConstraintOp) Negate() ConstraintOp {
	switch o {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		return o
	}
}

// Constraint is a binary comparison/equality body literal.
type Constraint struct {
	Op       ConstraintOp
	LHS, RHS Argument
	Location SourceLocation
}

func (c *Constraint) isLiteral()          {}
func (c *Constraint) Loc() SourceLocation { return c.Location }
func (c *Constraint) Clone() Node {
	cp := *c
	cp.LHS = c.LHS.Clone().(Argument)
	cp.RHS = c.RHS.Clone().(Argument)
	return &cp
}

// True returns the canonical trivially-true constraint `1 = 1`, used by
// remove-boolean-constraints (spec.md §4.4) when an aggregator body empties
// out.
func True(loc SourceLocation) *Constraint {
	return &Constraint{Op: OpEq, LHS: &NumberConstant{Value: 1, Location: loc}, RHS: &NumberConstant{Value: 1, Location: loc}, Location: loc}
}

// False returns the canonical trivially-false constraint `0 = 1`.
func False(loc SourceLocation) *Constraint {
	return &Constraint{Op: OpEq, LHS: &NumberConstant{Value: 0, Location: loc}, RHS: &NumberConstant{Value: 1, Location: loc}, Location: loc}
}

func cloneLiterals(lits []Literal) []Literal {
	out := make([]Literal, len(lits))
	for i, l := range lits {
		out[i] = l.Clone().(Literal)
	}
	return out
}

// ExecutionPlan is a per-version reordering permutation of a clause's body
// atoms (spec.md §3). Version 0 is the default plan if present.
type ExecutionPlan struct {
	Version int
	Order   []int // permutation over body-atom indices, len == atom count
}

// Clause is `head :- body.`. A clause with an empty Body and a ground Head
// is a fact (spec.md §3).
type Clause struct {
	Head       *Atom
	Body       []Literal
	Plans      []ExecutionPlan
	Generation GenerationFlag
	Location   SourceLocation
}

// IsFact reports whether this clause is a fact: empty body (a clause may
// still need the groundedness check to confirm a ground head; IsFact here
// is purely structural).
func (c *Clause) IsFact() bool { return len(c.Body) == 0 }

func (c *Clause) Clone() Node {
	cp := *c
	cp.Head = c.Head.Clone().(*Atom)
	cp.Body = cloneLiterals(c.Body)
	cp.Plans = append([]ExecutionPlan(nil), c.Plans...)
	for i := range cp.Plans {
		cp.Plans[i].Order = append([]int(nil), c.Plans[i].Order...)
	}
	return &cp
}

// BodyAtoms returns the positive, non-negated atoms of the body in order.
func (c *Clause) BodyAtoms() []*Atom {
	var out []*Atom
	for _, l := range c.Body {
		if a, ok := l.(*Atom); ok {
			out = append(out, a)
		}
	}
	return out
}

// Vars returns every Variable argument occurring anywhere in the clause
// (head and body), positional duplicates included.
func (c *Clause) Vars() []*Variable {
	var out []*Variable
	var walkArg func(Argument)
	walkArg = func(a Argument) {
		switch v := a.(type) {
		case *Variable:
			out = append(out, v)
		case *Functor:
			for _, o := range v.Operands {
				walkArg(o)
			}
		case *RecordInit:
			for _, e := range v.Elements {
				walkArg(e)
			}
		case *Aggregator:
			if v.Target != nil {
				walkArg(v.Target)
			}
			for _, l := range v.Body {
				walkLit(l, walkArg)
			}
		}
	}
	for _, a := range c.Head.Args {
		walkArg(a)
	}
	for _, l := range c.Body {
		walkLit(l, walkArg)
	}
	return out
}

func walkLit(l Literal, walkArg func(Argument)) {
	switch lit := l.(type) {
	case *Atom:
		for _, a := range lit.Args {
			walkArg(a)
		}
	case *Negation:
		for _, a := range lit.Atom.Args {
			walkArg(a)
		}
	case *Constraint:
		walkArg(lit.LHS)
		walkArg(lit.RHS)
	}
}

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

// This file is the tree-mapper protocol referenced throughout spec.md §3/§9:
// a node is consumed and a replacement is yielded, so every rewrite pass in
// package transform is a call into MapArgument/MapLiteral/MapClauseArgs rather
// than a bespoke recursive walk. It replaces the deep-hierarchy visitor
// pattern (dynamic_cast + Node::apply) with an exhaustive type switch plus
// a plain function value.

// ArgMapper rewrites one argument node. It is invoked post-order (children
// already rewritten) so a mapper that only cares about leaves (e.g. "rename
// this variable") never needs to recurse itself.
type ArgMapper func(Argument) Argument

// MapArgument rewrites a, recursing into every child argument first, then
// applying f to the (possibly already-rewritten) node itself.
func MapArgument(a Argument, f ArgMapper) Argument {
	switch v := a.(type) {
	case *Functor:
		ops := make([]Argument, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = MapArgument(o, f)
		}
		nv := &Functor{Op: v.Op, Operands: ops, Location: v.Location}
		return f(nv)
	case *RecordInit:
		els := make([]Argument, len(v.Elements))
		for i, e := range v.Elements {
			els[i] = MapArgument(e, f)
		}
		nv := &RecordInit{Type: v.Type, Elements: els, Location: v.Location}
		return f(nv)
	case *Aggregator:
		nv := &Aggregator{Func: v.Func, VisitIndex: v.VisitIndex, Location: v.Location}
		if v.Target != nil {
			nv.Target = MapArgument(v.Target, f)
		}
		nv.Body = MapLiterals(v.Body, f)
		return f(nv)
	default:
		return f(a)
	}
}

// MapLiteral rewrites every argument reachable from l using f, preserving
// the literal's own kind.
func MapLiteral(l Literal, f ArgMapper) Literal {
	switch v := l.(type) {
	case *Atom:
		args := make([]Argument, len(v.Args))
		for i, a := range v.Args {
			args[i] = MapArgument(a, f)
		}
		return &Atom{Relation: v.Relation.Clone(), Args: args, Location: v.Location}
	case *Negation:
		return &Negation{Atom: MapLiteral(v.Atom, f).(*Atom), Location: v.Location}
	case *Constraint:
		return &Constraint{Op: v.Op, LHS: MapArgument(v.LHS, f), RHS: MapArgument(v.RHS, f), Location: v.Location}
	default:
		return l
	}
}

// MapLiterals applies MapLiteral across a slice.
func MapLiterals(lits []Literal, f ArgMapper) []Literal {
	out := make([]Literal, len(lits))
	for i, l := range lits {
		out[i] = MapLiteral(l, f)
	}
	return out
}

// MapClauseArgs rewrites every argument in the clause's head and body using
// f, returning a new clause. Plans/Generation/Location are preserved.
func MapClauseArgs(c *Clause, f ArgMapper) *Clause {
	nc := &Clause{
		Head:       MapLiteral(c.Head, f).(*Atom),
		Body:       MapLiterals(c.Body, f),
		Plans:      c.Clone().(*Clause).Plans,
		Generation: c.Generation,
		Location:   c.Location,
	}
	return nc
}

// LiteralMapper rewrites one body literal into zero or more replacement
// literals (used by relation-inlining's De Morgan fan-out and by
// disconnected-literal extraction's peeling).
type LiteralMapper func(Literal) []Literal

// FlatMapBody applies m to every body literal of lits, concatenating the
// results in order.
func FlatMapBody(lits []Literal, m LiteralMapper) []Literal {
	var out []Literal
	for _, l := range lits {
		out = append(out, m(l)...)
	}
	return out
}

// Walk visits every argument reachable from a clause (head + body,
// including inside functors/records/aggregators) in a fixed order, without
// rebuilding anything. Analyses (type/ground) use this instead of a
// coroutine-based generator (spec.md §9 "Coroutine-free iteration").
func Walk(c *Clause, visit func(Argument)) {
	var walkArg func(Argument)
	walkArg = func(a Argument) {
		visit(a)
		switch v := a.(type) {
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
				walkLitVisit(l, walkArg)
			}
		}
	}
	for _, a := range c.Head.Args {
		walkArg(a)
	}
	for _, l := range c.Body {
		walkLitVisit(l, walkArg)
	}
}

func walkLitVisit(l Literal, walkArg func(Argument)) {
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

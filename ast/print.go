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

import (
	"fmt"
	"strings"
)

// Sprint renders p back to Datalog-ish source text. It is not a real
// pretty-printer for the external frontend (that lives upstream, out of
// scope per spec.md §1) — it exists only so the round-trip testable
// property (spec.md §8: "pretty-printing then re-parsing a program yields a
// program whose transform-pipeline output is structurally equal...") has
// something deterministic to render; only tests call it. Good enough to
// eyeball in a test failure, not a parser-compatible grammar.
func Sprint(p *Program) string {
	var b strings.Builder
	for _, t := range p.TypesInOrder() {
		if t.Name == NumberType || t.Name == SymbolType {
			continue
		}
		sprintType(&b, t)
	}
	for _, r := range p.RelationsInOrder() {
		sprintRelation(&b, r)
	}
	return b.String()
}

func sprintType(b *strings.Builder, t *Type) {
	switch t.Kind {
	case TypePrimitive:
		fmt.Fprintf(b, ".type %s <: %s\n", t.Name, t.Base)
	case TypeUnion:
		names := make([]string, len(t.Members))
		for i, m := range t.Members {
			names[i] = string(m)
		}
		fmt.Fprintf(b, ".type %s = %s\n", t.Name, strings.Join(names, " | "))
	case TypeRecord:
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = fmt.Sprintf("%s:%s", f.Name, f.Type)
		}
		fmt.Fprintf(b, ".type %s = [%s]\n", t.Name, strings.Join(fields, ", "))
	}
}

func sprintRelation(b *strings.Builder, r *Relation) {
	attrs := make([]string, len(r.Attributes))
	for i, a := range r.Attributes {
		attrs[i] = fmt.Sprintf("%s:%s", a.Name, a.Type)
	}
	fmt.Fprintf(b, ".decl %s(%s)", r.ID, strings.Join(attrs, ", "))
	if r.Input {
		b.WriteString(" input")
	}
	if r.Output {
		b.WriteString(" output")
	}
	if r.Inline {
		b.WriteString(" inline")
	}
	b.WriteString("\n")
	for _, c := range r.Clauses {
		sprintClause(b, c)
	}
}

func sprintClause(b *strings.Builder, c *Clause) {
	sprintAtom(b, c.Head)
	if len(c.Body) > 0 {
		b.WriteString(" :- ")
		for i, l := range c.Body {
			if i > 0 {
				b.WriteString(", ")
			}
			sprintLiteral(b, l)
		}
	}
	b.WriteString(".\n")
}

func sprintLiteral(b *strings.Builder, l Literal) {
	switch v := l.(type) {
	case *Atom:
		sprintAtom(b, v)
	case *Negation:
		b.WriteString("!")
		sprintAtom(b, v.Atom)
	case *Constraint:
		sprintArg(b, v.LHS)
		fmt.Fprintf(b, " %s ", v.Op)
		sprintArg(b, v.RHS)
	}
}

func sprintAtom(b *strings.Builder, a *Atom) {
	fmt.Fprintf(b, "%s(", a.Relation)
	for i, arg := range a.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		sprintArg(b, arg)
	}
	b.WriteString(")")
}

func sprintArg(b *strings.Builder, a Argument) {
	switch v := a.(type) {
	case *Variable:
		b.WriteString(v.Name)
	case *UnnamedVariable:
		b.WriteString("_")
	case *Counter:
		b.WriteString("$")
	case *NumberConstant:
		fmt.Fprintf(b, "%d", v.Value)
	case *StringConstant:
		fmt.Fprintf(b, "%q", v.Value)
	case *Functor:
		fmt.Fprintf(b, "%s(", v.Op)
		for i, o := range v.Operands {
			if i > 0 {
				b.WriteString(", ")
			}
			sprintArg(b, o)
		}
		b.WriteString(")")
	case *RecordInit:
		fmt.Fprintf(b, "%s[", v.Type)
		for i, e := range v.Elements {
			if i > 0 {
				b.WriteString(", ")
			}
			sprintArg(b, e)
		}
		b.WriteString("]")
	case *Aggregator:
		fmt.Fprintf(b, "%s ", v.Func)
		if v.Target != nil {
			sprintArg(b, v.Target)
			b.WriteString(" ")
		}
		b.WriteString(": { ")
		for i, l := range v.Body {
			if i > 0 {
				b.WriteString(", ")
			}
			sprintLiteral(b, l)
		}
		b.WriteString(" }")
	case *SubroutineArg:
		fmt.Fprintf(b, "arg(%d)", v.Index)
	}
}

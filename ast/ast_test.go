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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(name string) *Variable { return &Variable{Name: name} }

func atom(rel string, args ...Argument) *Atom {
	return &Atom{Relation: NewRelationIdentifier(rel), Args: args}
}

func clause(head *Atom, body ...Literal) *Clause {
	return &Clause{Head: head, Body: body}
}

func TestRelationIdentifierEqual(t *testing.T) {
	a := NewRelationIdentifier("comp", "edge")
	b := NewRelationIdentifier("comp", "edge")
	c := NewRelationIdentifier("edge")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestCloneIsDeep(t *testing.T) {
	c := clause(atom("path", v("x"), v("y")), atom("edge", v("x"), v("y")))
	cp := c.Clone().(*Clause)

	cp.Head.Args[0].(*Variable).Name = "mutated"
	assert.Equal(t, "x", c.Head.Args[0].(*Variable).Name, "clone must not alias the original")
}

func TestVarsCollectsNestedOccurrences(t *testing.T) {
	c := clause(
		atom("total", v("c"), v("s")),
		atom("category", v("c")),
		&Constraint{Op: OpEq, LHS: v("s"), RHS: &Aggregator{
			Func:   AggSum,
			Target: v("val"),
			Body:   []Literal{atom("item", v("c"), v("val"))},
		}},
	)
	vars := c.Vars()
	names := map[string]int{}
	for _, vv := range vars {
		names[vv.Name]++
	}
	require.Equal(t, 3, names["c"]) // head, category atom, item atom
	require.Equal(t, 2, names["s"])   // head, constraint LHS
	require.Equal(t, 2, names["val"]) // aggregator target + item atom
}

func TestMapArgumentPostOrderRename(t *testing.T) {
	f := &Functor{Op: FunctorAdd, Operands: []Argument{v("x"), &NumberConstant{Value: 1}}}
	renamed := MapArgument(f, func(a Argument) Argument {
		if vv, ok := a.(*Variable); ok && vv.Name == "x" {
			return &Variable{Name: "x2"}
		}
		return a
	})
	got := renamed.(*Functor)
	assert.Equal(t, "x2", got.Operands[0].(*Variable).Name)
}

func TestProgramAddRemoveRelationOrder(t *testing.T) {
	p := NewProgram()
	p.AddRelation(&Relation{ID: NewRelationIdentifier("edge"), Attributes: []Attribute{{"x", NumberType}, {"y", NumberType}}})
	p.AddRelation(&Relation{ID: NewRelationIdentifier("path"), Attributes: []Attribute{{"x", NumberType}, {"y", NumberType}}})
	require.Len(t, p.RelationsInOrder(), 2)
	assert.Equal(t, "edge", p.RelationsInOrder()[0].ID.String())

	p.RemoveRelation(NewRelationIdentifier("edge"))
	require.Len(t, p.RelationsInOrder(), 1)
	assert.Equal(t, "path", p.RelationsInOrder()[0].ID.String())

	_, ok := p.Relation(NewRelationIdentifier("edge"))
	assert.False(t, ok)
}

func TestSprintRoundTripShape(t *testing.T) {
	p := NewProgram()
	edge := &Relation{ID: NewRelationIdentifier("edge"), Attributes: []Attribute{{"x", NumberType}, {"y", NumberType}}, Input: true}
	path := &Relation{ID: NewRelationIdentifier("path"), Attributes: []Attribute{{"x", NumberType}, {"y", NumberType}}, Output: true}
	path.Clauses = []*Clause{
		clause(atom("path", v("x"), v("y")), atom("edge", v("x"), v("y"))),
	}
	p.AddRelation(edge)
	p.AddRelation(path)

	out := Sprint(p)
	assert.Contains(t, out, ".decl edge(x:number, y:number) input")
	assert.Contains(t, out, "path(x, y) :- edge(x, y).")
}

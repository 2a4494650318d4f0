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

package check

import (
	"testing"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func atom(rel string, args ...ast.Argument) *ast.Atom {
	return &ast.Atom{Relation: ast.NewRelationIdentifier(rel), Args: args}
}

func baseProgram() *ast.Program {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("edge"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}},
		Input:      true,
	})
	return prog
}

func TestUndefinedRelationReported(t *testing.T) {
	prog := baseProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("path"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}},
		Output:     true,
		Clauses: []*ast.Clause{
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("missing", v("x"), v("y"))}},
		},
	})
	r := Run(prog, nil)
	require.True(t, r.HasErrors())
}

func TestArityMismatchReported(t *testing.T) {
	prog := baseProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("path"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Output:     true,
		Clauses: []*ast.Clause{
			{Head: atom("path", v("x")), Body: []ast.Literal{atom("edge", v("x"))}},
		},
	})
	r := Run(prog, nil)
	require.True(t, r.HasErrors())
}

func TestUngroundedHeadVarReported(t *testing.T) {
	prog := baseProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("bad"),
		Attributes: []ast.Attribute{{Name: "z", Type: ast.NumberType}},
		Output:     true,
		Clauses: []*ast.Clause{
			{Head: atom("bad", v("z")), Body: []ast.Literal{atom("edge", v("x"), v("y"))}},
		},
	})
	r := Run(prog, nil)
	require.True(t, r.HasErrors())
}

func TestValidProgramAccepted(t *testing.T) {
	prog := baseProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("path"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}},
		Output:     true,
		Clauses: []*ast.Clause{
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("edge", v("x"), v("y"))}},
		},
	})
	r := Run(prog, nil)
	assert.False(t, r.HasErrors())
}

func TestFactRejectsVariable(t *testing.T) {
	prog := baseProgram()
	prog.Relations["edge"].Clauses = []*ast.Clause{
		{Head: atom("edge", v("x"), &ast.NumberConstant{Value: 2})},
	}
	r := Run(prog, nil)
	require.True(t, r.HasErrors())
}

func TestFactAcceptsConstantFunctor(t *testing.T) {
	prog := baseProgram()
	prog.Relations["edge"].Clauses = []*ast.Clause{
		{Head: atom("edge", &ast.Functor{Op: ast.FunctorAdd, Operands: []ast.Argument{&ast.NumberConstant{Value: 1}, &ast.NumberConstant{Value: 2}}}, &ast.NumberConstant{Value: 3})},
	}
	r := Run(prog, nil)
	assert.False(t, r.HasErrors())
}

func TestStratificationRejectsNegationCycle(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("p"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Output:     true,
		Clauses: []*ast.Clause{
			{Head: atom("p", v("x")), Body: []ast.Literal{&ast.Negation{Atom: atom("q", v("x"))}}},
		},
	})
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("q"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Output:     true,
		Clauses: []*ast.Clause{
			{Head: atom("q", v("x")), Body: []ast.Literal{atom("p", v("x"))}},
		},
	})
	r := Run(prog, nil)
	var found bool
	for _, d := range r.All() {
		if d.Err != nil && diag.ErrUnstratifiable.Is(d.Err) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestInlineCycleRejected(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("a"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Inline:     true,
		Clauses: []*ast.Clause{
			{Head: atom("a", v("x")), Body: []ast.Literal{atom("b", v("x"))}},
		},
	})
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("b"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Inline:     true,
		Clauses: []*ast.Clause{
			{Head: atom("b", v("x")), Body: []ast.Literal{atom("a", v("x"))}},
		},
	})
	r := Run(prog, nil)
	var found bool
	for _, d := range r.All() {
		if d.Err != nil && diag.ErrInlineCycle.Is(d.Err) {
			found = true
		}
	}
	assert.True(t, found)
}

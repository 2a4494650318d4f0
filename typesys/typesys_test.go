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

package typesys

import (
	"testing"

	"github.com/arrowlang/dlc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func atom(rel string, args ...ast.Argument) *ast.Atom {
	return &ast.Atom{Relation: ast.NewRelationIdentifier(rel), Args: args}
}

func TestMeetJoin(t *testing.T) {
	a := NewTypeSet("number", "symbol")
	b := NewTypeSet("symbol", "name")
	assert.True(t, Equal(Meet(a, b), NewTypeSet("symbol")))
	assert.True(t, Equal(Join(a, b), NewTypeSet("number", "symbol", "name")))
}

func TestInferBasicAtomConstraint(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("edge"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}},
		Input:      true,
	})
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("path"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}},
		Output:     true,
	})
	c := &ast.Clause{
		Head: atom("path", v("x"), v("y")),
		Body: []ast.Literal{atom("edge", v("x"), v("y"))},
	}
	env := NewEnv(prog)
	res := Infer(prog, env, c)

	assert.True(t, Equal(res.TypeOf(v("x")), NewTypeSet("number")))
	assert.Empty(t, res.EmptyArguments())
}

func TestInferUnionMember(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddType(ast.NewPrimitiveType("id", ast.BaseNumber))
	prog.AddType(ast.NewUnionType("key", "id", "number"))
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("item"),
		Attributes: []ast.Attribute{{Name: "k", Type: "key"}},
		Input:      true,
	})
	env := NewEnv(prog)
	leaves := env.Leaves("key")
	assert.True(t, leaves.Contains("id"))
	assert.True(t, leaves.Contains("number"))
}

func TestInferUninferableEmptySet(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("nums"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Input:      true,
	})
	prog.AddRelation(&ast.Relation{
		ID:         ast.NewRelationIdentifier("syms"),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.SymbolType}},
		Input:      true,
	})
	c := &ast.Clause{
		Head: atom("out", v("x")),
		Body: []ast.Literal{atom("nums", v("x")), atom("syms", v("x"))},
	}
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("out"), Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}}, Output: true})
	env := NewEnv(prog)
	res := Infer(prog, env, c)
	require.NotEmpty(t, res.EmptyArguments())
}

func TestInferFunctorSignature(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("r"), Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}}, Output: true})
	c := &ast.Clause{
		Head: atom("r", &ast.Functor{Op: ast.FunctorAdd, Operands: []ast.Argument{v("a"), &ast.NumberConstant{Value: 1}}}),
		Body: []ast.Literal{atom("src", v("a"))},
	}
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("src"), Attributes: []ast.Attribute{{Name: "a", Type: ast.NumberType}}, Input: true})
	env := NewEnv(prog)
	res := Infer(prog, env, c)
	assert.True(t, Equal(res.TypeOf(v("a")), NewTypeSet("number")))
}

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

package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrowlang/dlc/ast"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func atom(rel string, args ...ast.Argument) *ast.Atom {
	return &ast.Atom{Relation: ast.NewRelationIdentifier(rel), Args: args}
}

func attrs() []ast.Attribute {
	return []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}}
}

func transitiveClosureProgram() *ast.Program {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("edge"), Input: true, Attributes: attrs()})
	prog.AddRelation(&ast.Relation{
		ID: ast.NewRelationIdentifier("path"), Output: true, Attributes: attrs(),
		Clauses: []*ast.Clause{
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("edge", v("x"), v("y"))}},
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("path", v("x"), v("z")), atom("edge", v("z"), v("y"))}},
		},
	})
	return prog
}

func TestCompileAcceptsTransitiveClosure(t *testing.T) {
	ctx := New(Options{MaxTransformRounds: 16, EmitDebugReport: true}, nil)
	result := Compile(ctx, transitiveClosureProgram())

	require.False(t, result.Report.HasErrors())
	require.NotNil(t, result.Program)
	assert.NotNil(t, result.Program.Main)
	assert.GreaterOrEqual(t, result.Debug.SCCCount, 1)
	assert.GreaterOrEqual(t, result.Debug.RecursiveSCCs, 1)
}

func TestCompileRejectsUndefinedRelation(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{
		ID: ast.NewRelationIdentifier("path"), Output: true, Attributes: attrs(),
		Clauses: []*ast.Clause{
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("edge", v("x"), v("y"))}},
		},
	})

	ctx := New(Options{MaxTransformRounds: 16}, nil)
	result := Compile(ctx, prog)

	assert.True(t, result.Report.HasErrors())
	assert.Nil(t, result.Program)
}

func TestCompileRejectsUngroundedHeadVariable(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("edge"), Input: true, Attributes: attrs()})
	prog.AddRelation(&ast.Relation{
		ID: ast.NewRelationIdentifier("bad"), Output: true, Attributes: attrs(),
		Clauses: []*ast.Clause{
			{Head: atom("bad", v("x"), v("y")), Body: []ast.Literal{atom("edge", v("x"), v("z"))}},
		},
	})

	ctx := New(Options{MaxTransformRounds: 16}, nil)
	result := Compile(ctx, prog)

	assert.True(t, result.Report.HasErrors())
	assert.Nil(t, result.Program)
}

func TestDebugReportYAMLRoundTrips(t *testing.T) {
	ctx := New(Options{MaxTransformRounds: 16, EmitDebugReport: true}, nil)
	result := Compile(ctx, transitiveClosureProgram())
	out, err := result.Debug.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "relation_count")
}

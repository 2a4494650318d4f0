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

package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/precedence"
	"github.com/arrowlang/dlc/ram"
	"github.com/arrowlang/dlc/symbol"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func atom(rel string, args ...ast.Argument) *ast.Atom {
	return &ast.Atom{Relation: ast.NewRelationIdentifier(rel), Args: args}
}

func edgeAttrs() []ast.Attribute {
	return []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}}
}

func transitiveClosureProgram() (*ast.Program, *ast.Relation, *ast.Relation) {
	prog := ast.NewProgram()
	edge := &ast.Relation{ID: ast.NewRelationIdentifier("edge"), Input: true, Attributes: edgeAttrs()}
	path := &ast.Relation{
		ID: ast.NewRelationIdentifier("path"), Output: true, Attributes: edgeAttrs(),
		Clauses: []*ast.Clause{
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("edge", v("x"), v("y"))}},
			{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("path", v("x"), v("z")), atom("edge", v("z"), v("y"))}},
		},
	}
	prog.AddRelation(edge)
	prog.AddRelation(path)
	return prog, edge, path
}

func TestTranslateBaseCaseIsAScanThenProject(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())

	op := Translate(ctx, prog, nil, path.Clauses[0], clauseOptions{})
	scan, ok := op.(*ram.Scan)
	require.True(t, ok)
	assert.Equal(t, ast.NewRelationIdentifier("edge"), scan.Relation)
	assert.Equal(t, 0, scan.Level)
	proj, ok := scan.Nested.(*ram.Project)
	require.True(t, ok)
	assert.Equal(t, path.ID, proj.Relation)
	require.Len(t, proj.Values, 2)
	assert.Equal(t, ram.ElementAccess{Level: 0, Component: 0, Name: "x"}, proj.Values[0])
	assert.Equal(t, ram.ElementAccess{Level: 0, Component: 1, Name: "y"}, proj.Values[1])
}

func TestTranslateRecursiveClauseNestsTwoScans(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())

	op := Translate(ctx, prog, nil, path.Clauses[1], clauseOptions{})
	outer, ok := op.(*ram.Scan)
	require.True(t, ok)
	assert.Equal(t, ast.NewRelationIdentifier("path"), outer.Relation)
	inner, ok := outer.Nested.(*ram.Scan)
	require.True(t, ok)
	assert.Equal(t, ast.NewRelationIdentifier("edge"), inner.Relation)
	// z is bound by path(x,z) at level 0 and repeated by edge(z,y) at level
	// 1: the repeat becomes an equality condition rather than a second
	// binding.
	cond, ok := inner.Cond.(*ram.BinaryRelation)
	require.True(t, ok)
	assert.Equal(t, ast.OpEq, cond.Op)
}

func TestTranslateHeadOverrideRedirectsProjection(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())

	newPath := newName(path.ID)
	op := Translate(ctx, prog, newPath, path.Clauses[0], clauseOptions{})
	scan := op.(*ram.Scan)
	proj := scan.Nested.(*ram.Project)
	assert.Equal(t, newPath, proj.Relation)
}

func TestTranslateSubroutineEmitsReturn(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())

	op := Translate(ctx, prog, nil, path.Clauses[0], clauseOptions{subroutine: true})
	scan := op.(*ram.Scan)
	_, ok := scan.Nested.(*ram.Return)
	assert.True(t, ok)
}

func TestFactStatementLowersConstants(t *testing.T) {
	c := &ast.Clause{Head: atom("edge", &ast.NumberConstant{Value: 1}, &ast.NumberConstant{Value: 2})}
	f := FactStatement(NewContext(symbol.New()), c)
	assert.Equal(t, ast.NewRelationIdentifier("edge"), f.Relation)
	require.Len(t, f.Values, 2)
	assert.Equal(t, ram.Number{Value: 1}, f.Values[0])
	assert.Equal(t, ram.Number{Value: 2}, f.Values[1])
}

func TestAtomOverrideRedirectsScannedRelation(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())

	delta := deltaName(path.ID)
	op := Translate(ctx, prog, nil, path.Clauses[1], clauseOptions{atomOverride: map[int]ast.RelationIdentifier{0: delta}})
	outer := op.(*ram.Scan)
	assert.Equal(t, delta, outer.Relation)
}

func TestBuildRecursiveBlockShape(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())
	graph := precedence.Build(prog)
	sg := precedence.Decompose(graph)

	var scc *precedence.SCC
	for _, s := range sg.SCCs {
		if s.Recursive {
			scc = s
		}
	}
	require.NotNil(t, scc)
	assert.Contains(t, scc.Relations, path.ID.String())

	stmt := BuildRecursiveBlock(ctx, prog, scc)
	seq, ok := stmt.(*ram.Sequence)
	require.True(t, ok)
	require.NotEmpty(t, seq.Stmts)

	var sawLoop bool
	for _, s := range seq.Stmts {
		if _, ok := s.(*ram.Loop); ok {
			sawLoop = true
		}
	}
	assert.True(t, sawLoop, "recursive block must contain a ram.Loop")
}

func TestProgramLowerProducesMainAndSubroutines(t *testing.T) {
	prog, _, path := transitiveClosureProgram()
	ctx := NewContext(symbol.New())
	graph := precedence.Build(prog)
	sg := precedence.Decompose(graph)
	sched := precedence.BuildSchedule(sg)

	ramProg := Lower(ctx, prog, sg, sched)
	require.NotNil(t, ramProg.Main)
	assert.Len(t, ramProg.Subroutines, len(path.Clauses))
}

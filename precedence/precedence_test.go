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

package precedence

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

func relation(name string, clauses ...*ast.Clause) *ast.Relation {
	return &ast.Relation{
		ID:         ast.NewRelationIdentifier(name),
		Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}},
		Clauses:    clauses,
	}
}

// edge -> path -> path (self-recursive), and a disjoint, unrelated "color"
// relation with no edges to/from the rest.
func linearProgram() *ast.Program {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("edge"), Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}, {Name: "y", Type: ast.NumberType}}, Input: true})
	prog.AddRelation(relation("path",
		&ast.Clause{Head: atom("path", v("x"), v("y")), Body: []ast.Literal{atom("edge", v("x"), v("y"))}},
		&ast.Clause{Head: atom("path", v("x"), v("z")), Body: []ast.Literal{atom("edge", v("x"), v("y")), atom("path", v("y"), v("z"))}},
	))
	prog.AddRelation(relation("color"))
	return prog
}

func TestBuildGraphEdges(t *testing.T) {
	prog := linearProgram()
	g := Build(prog)

	assert.ElementsMatch(t, []string{"edge", "path", "color"}, g.Vertices)

	var sawEdgeToEdge, sawPathToPath bool
	for _, e := range g.Edges {
		if e.From.String() == "path" && e.To.String() == "edge" {
			sawEdgeToEdge = true
		}
		if e.From.String() == "path" && e.To.String() == "path" {
			sawPathToPath = true
		}
	}
	assert.True(t, sawEdgeToEdge)
	assert.True(t, sawPathToPath)
}

func TestIsRecursive(t *testing.T) {
	prog := linearProgram()
	g := Build(prog)
	pathRel, _ := prog.Relation(ast.NewRelationIdentifier("path"))

	assert.False(t, IsRecursive(g, pathRel.ID, pathRel.Clauses[0]))
	assert.True(t, IsRecursive(g, pathRel.ID, pathRel.Clauses[1]))
}

func TestNegationEdgeKind(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("node"), Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}}, Input: true})
	prog.AddRelation(&ast.Relation{ID: ast.NewRelationIdentifier("reachable"), Attributes: []ast.Attribute{{Name: "x", Type: ast.NumberType}}, Input: true})
	prog.AddRelation(relation("unreachable",
		&ast.Clause{Head: atom("unreachable", v("x")), Body: []ast.Literal{atom("node", v("x")), &ast.Negation{Atom: atom("reachable", v("x"))}}},
	))
	g := Build(prog)

	var found bool
	for _, e := range g.Edges {
		if e.From.String() == "unreachable" && e.To.String() == "reachable" {
			found = true
			assert.Equal(t, EdgeNegative, e.Kind)
		}
	}
	assert.True(t, found)
}

func TestDecomposeSCCs(t *testing.T) {
	prog := linearProgram()
	g := Build(prog)
	sg := Decompose(g)

	pathSCC := sg.SCCs[sg.SCCOf("path")]
	assert.True(t, pathSCC.Recursive)
	assert.ElementsMatch(t, []string{"path"}, pathSCC.Relations)

	edgeSCC := sg.SCCs[sg.SCCOf("edge")]
	assert.False(t, edgeSCC.Recursive)
	assert.True(t, edgeSCC.Successors[sg.SCCOf("path")])

	colorSCC := sg.SCCs[sg.SCCOf("color")]
	assert.Empty(t, colorSCC.Predecessors)
	assert.Empty(t, colorSCC.Successors)
}

func TestDecomposeMultiRelationCycle(t *testing.T) {
	prog := ast.NewProgram()
	prog.AddRelation(relation("even",
		&ast.Clause{Head: atom("even", &ast.NumberConstant{Value: 0})},
		&ast.Clause{Head: atom("even", v("x")), Body: []ast.Literal{atom("odd", v("y")), &ast.Constraint{Op: ast.OpEq, LHS: v("x"), RHS: v("y")}}},
	))
	prog.AddRelation(relation("odd",
		&ast.Clause{Head: atom("odd", v("x")), Body: []ast.Literal{atom("even", v("y")), &ast.Constraint{Op: ast.OpEq, LHS: v("x"), RHS: v("y")}}},
	))
	g := Build(prog)
	sg := Decompose(g)

	require.Equal(t, sg.SCCOf("even"), sg.SCCOf("odd"))
	scc := sg.SCCs[sg.SCCOf("even")]
	assert.True(t, scc.Recursive)
	assert.Len(t, scc.Relations, 2)
}

func TestBuildScheduleTopologicalAndExpiry(t *testing.T) {
	prog := linearProgram()
	g := Build(prog)
	sg := Decompose(g)
	sched := BuildSchedule(sg)

	require.Len(t, sched.Order, len(sg.SCCs))

	posEdge, posPath, posColor := -1, -1, -1
	for i, idx := range sched.Order {
		for _, r := range sg.SCCs[idx].Relations {
			switch r {
			case "edge":
				posEdge = i
			case "path":
				posPath = i
			case "color":
				posColor = i
			}
		}
	}
	assert.True(t, posEdge < posPath, "edge must be scheduled before path")
	assert.GreaterOrEqual(t, posColor, 0)

	var edgeExpiresAfterPath bool
	for i, s := range sched.Steps {
		for _, r := range s.Expire {
			if r == "edge" {
				assert.GreaterOrEqual(t, i, posPath, "edge must not expire before its last consumer path runs")
				edgeExpiresAfterPath = true
			}
		}
	}
	assert.True(t, edgeExpiresAfterPath)
}

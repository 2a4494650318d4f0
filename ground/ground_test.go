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

package ground

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

func TestPositiveAtomGroundsVars(t *testing.T) {
	c := &ast.Clause{
		Head: atom("path", v("x"), v("y")),
		Body: []ast.Literal{atom("edge", v("x"), v("y"))},
	}
	r := Infer(c)
	assert.True(t, r.IsGrounded(v("x")))
	assert.True(t, r.IsGrounded(v("y")))
	assert.Empty(t, UngroundedHeadVars(c, r))
}

func TestUngroundedHeadVar(t *testing.T) {
	c := &ast.Clause{
		Head: atom("bad", v("z")),
		Body: []ast.Literal{atom("edge", v("x"), v("y"))},
	}
	r := Infer(c)
	got := UngroundedHeadVars(c, r)
	require.Len(t, got, 1)
	assert.Equal(t, "z", got[0])
}

func TestEqualityPropagatesSymmetrically(t *testing.T) {
	c := &ast.Clause{
		Head: atom("q", v("x"), v("x")),
		Body: []ast.Literal{
			atom("r", v("x"), v("y")),
			&ast.Constraint{Op: ast.OpEq, LHS: v("y"), RHS: v("z")},
		},
	}
	r := Infer(c)
	assert.True(t, r.IsGrounded(v("z")))
}

func TestFunctorGroundedWhenOperandsGrounded(t *testing.T) {
	f := &ast.Functor{Op: ast.FunctorAdd, Operands: []ast.Argument{v("a"), &ast.NumberConstant{Value: 1}}}
	c := &ast.Clause{
		Head: atom("q", f),
		Body: []ast.Literal{atom("r", v("a"))},
	}
	r := Infer(c)
	assert.True(t, r.IsGrounded(f))
}

func TestAggregatorAlwaysGrounded(t *testing.T) {
	agg := &ast.Aggregator{Func: ast.AggSum, Target: v("v"), Body: []ast.Literal{atom("item", v("c"), v("v"))}}
	c := &ast.Clause{
		Head: atom("total", v("c"), agg),
		Body: []ast.Literal{atom("category", v("c"))},
	}
	r := Infer(c)
	assert.True(t, r.IsGrounded(agg))
}

func TestNegatedAtomVarGroundedByPositiveAtom(t *testing.T) {
	c := &ast.Clause{
		Head: atom("unreachable", v("x")),
		Body: []ast.Literal{
			atom("node", v("x")),
			&ast.Negation{Atom: atom("reachable", v("x"))},
		},
	}
	r := Infer(c)
	assert.True(t, r.IsGrounded(v("x")))
	negs := UngroundedNegatedVars(c, r)
	assert.Empty(t, negs)
}

func TestRecordGroundIffAllFieldsGrounded(t *testing.T) {
	rec := &ast.RecordInit{Type: "point", Elements: []ast.Argument{v("a"), v("b")}}
	c := &ast.Clause{
		Head: atom("q", rec),
		Body: []ast.Literal{atom("r", v("a"))},
	}
	r := Infer(c)
	assert.False(t, r.IsGrounded(rec), "b is not grounded so the record cannot be")
}

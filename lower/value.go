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
	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/ram"
)

// valueIndex is the "variable-name -> definition point" map spec.md §4.5
// step 3 calls for: the first occurrence of a variable in the chosen atom
// order fixes an ram.ElementAccess; every later occurrence (by name or by
// the same-named attribute of a materialized aggregate relation) resolves
// through this index instead of allocating a new binding.
type valueIndex struct {
	byVar map[string]ram.Value
	byAgg map[*ast.Aggregator]ram.Value
}

func newValueIndex() *valueIndex {
	return &valueIndex{byVar: make(map[string]ram.Value), byAgg: make(map[*ast.Aggregator]ram.Value)}
}

func (idx *valueIndex) hasVar(name string) bool {
	_, ok := idx.byVar[name]
	return ok
}

func (idx *valueIndex) setVar(name string, v ram.Value) {
	if _, ok := idx.byVar[name]; !ok {
		idx.byVar[name] = v
	}
}

func (idx *valueIndex) getVar(name string) (ram.Value, bool) {
	v, ok := idx.byVar[name]
	return v, ok
}

func (idx *valueIndex) setAgg(a *ast.Aggregator, v ram.Value) {
	idx.byAgg[a] = v
}

// clone returns a shallow copy suitable for scoping an aggregate's nested
// scan without letting its local bindings leak back into the enclosing
// clause's index.
func (idx *valueIndex) clone() *valueIndex {
	cp := newValueIndex()
	for k, v := range idx.byVar {
		cp.byVar[k] = v
	}
	for k, v := range idx.byAgg {
		cp.byAgg[k] = v
	}
	return cp
}

// argToValue lowers one AST argument into a RAM value, resolving variables
// and aggregators through idx and interning string constants through the
// symbol table carried on ctx (spec.md §6: the RAM Value set has no string
// variant, so a symbol constant becomes the Number of its interned ID —
// exactly how the downstream interpreter, out of scope here, distinguishes
// "number 3" from "symbol whose table entry is 3").
func argToValue(ctx *Context, idx *valueIndex, a ast.Argument) ram.Value {
	switch v := a.(type) {
	case *ast.Variable:
		if val, ok := idx.getVar(v.Name); ok {
			return val
		}
		// Groundedness (spec.md invariant 2) guarantees this never happens
		// for an accepted program; fall back to 0 rather than panic so a
		// malformed input degrades to a wrong-but-defined RAM program
		// instead of crashing the compiler mid-lowering.
		return ram.Number{Value: 0}
	case *ast.UnnamedVariable:
		return ram.Number{Value: 0}
	case *ast.NumberConstant:
		return ram.Number{Value: v.Value}
	case *ast.StringConstant:
		return ram.Number{Value: int64(ctx.Symbols.Intern(v.Value))}
	case *ast.Counter:
		return ram.AutoIncrement{}
	case *ast.Functor:
		ops := make([]ram.Value, len(v.Operands))
		for i, o := range v.Operands {
			ops[i] = argToValue(ctx, idx, o)
		}
		switch len(ops) {
		case 1:
			return ram.UnaryOp{Func: v.Op, Operand: ops[0]}
		case 2:
			return ram.BinaryOp{Func: v.Op, L: ops[0], R: ops[1]}
		case 3:
			return ram.TernaryOp{Func: v.Op, First: ops[0], Second: ops[1], Third: ops[2]}
		default:
			return ram.Number{Value: 0}
		}
	case *ast.RecordInit:
		vals := make([]ram.Value, len(v.Elements))
		for i, e := range v.Elements {
			vals[i] = argToValue(ctx, idx, e)
		}
		return ram.Pack{Values: vals}
	case *ast.Aggregator:
		if val, ok := idx.byAgg[v]; ok {
			return val
		}
		return ram.Number{Value: 0}
	case *ast.SubroutineArg:
		return ram.Argument{Index: v.Index}
	default:
		return ram.Number{Value: 0}
	}
}

func varNames(a ast.Argument) []string {
	var out []string
	var walk func(ast.Argument)
	walk = func(x ast.Argument) {
		switch v := x.(type) {
		case *ast.Variable:
			out = append(out, v.Name)
		case *ast.Functor:
			for _, o := range v.Operands {
				walk(o)
			}
		case *ast.RecordInit:
			for _, e := range v.Elements {
				walk(e)
			}
		}
	}
	walk(a)
	return out
}

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

import "github.com/arrowlang/dlc/ast"

// Result maps every argument occurrence in a clause to its inferred
// TypeSet. Named variables share one TypeSet across every occurrence of the
// same name within the clause (unification); every other argument kind,
// including `_`, gets its own independent slot.
type Result struct {
	byVar map[string]TypeSet
	byPtr map[ast.Argument]TypeSet
}

func newResult() *Result {
	return &Result{byVar: make(map[string]TypeSet), byPtr: make(map[ast.Argument]TypeSet)}
}

// TypeOf returns the inferred TypeSet for a specific argument occurrence.
func (r *Result) TypeOf(a ast.Argument) TypeSet {
	if v, ok := a.(*ast.Variable); ok {
		return r.byVar[v.Name]
	}
	return r.byPtr[a]
}

func (r *Result) set(a ast.Argument, ts TypeSet) (changed bool) {
	if v, ok := a.(*ast.Variable); ok {
		old, had := r.byVar[v.Name]
		if had && Equal(old, ts) {
			return false
		}
		r.byVar[v.Name] = ts
		return true
	}
	old, had := r.byPtr[a]
	if had && Equal(old, ts) {
		return false
	}
	r.byPtr[a] = ts
	return true
}

func (r *Result) get(a ast.Argument, universe TypeSet) TypeSet {
	if v, ok := a.(*ast.Variable); ok {
		if ts, ok := r.byVar[v.Name]; ok {
			return ts
		}
		return universe
	}
	if ts, ok := r.byPtr[a]; ok {
		return ts
	}
	return universe
}

// EmptyArguments returns every argument occurrence whose inferred TypeSet
// is empty (spec.md invariant 4 / §7 "uninferable type set").
func (r *Result) EmptyArguments() []ast.Argument {
	var out []ast.Argument
	seenVar := make(map[string]bool)
	for a, ts := range r.byPtr {
		if ts.Empty() {
			out = append(out, a)
		}
	}
	for name, ts := range r.byVar {
		if ts.Empty() && !seenVar[name] {
			seenVar[name] = true
			out = append(out, &ast.Variable{Name: name})
		}
	}
	return out
}

func (e *Env) leavesByBase(k ast.BaseKind) TypeSet {
	out := make(TypeSet)
	for name := range e.universe {
		if bk, ok := e.BaseKindOf(name); ok && bk == k {
			out[name] = struct{}{}
		}
	}
	return out
}

// Infer runs the per-clause constraint system to a Kleene-iteration
// fixpoint and returns the resulting per-argument TypeSets (spec.md §4.2).
// prog resolves relation/attribute/record declarations referenced by the
// clause.
func Infer(prog *ast.Program, env *Env, c *ast.Clause) *Result {
	r := newResult()
	universe := env.Universe()

	narrow := func(a ast.Argument, bound TypeSet) bool {
		cur := r.get(a, universe)
		next := Meet(cur, bound)
		return r.set(a, next)
	}
	widen := func(a ast.Argument, bound TypeSet) bool {
		cur, had := lookupRaw(r, a)
		if !had {
			return r.set(a, bound)
		}
		next := Join(cur, bound)
		return r.set(a, next)
	}

	atomConstraints := func(atom *ast.Atom, negated bool) {
		rel, ok := prog.Relation(atom.Relation)
		if !ok {
			return
		}
		for i, arg := range atom.Args {
			if i >= len(rel.Attributes) {
				continue
			}
			declared := env.Leaves(rel.Attributes[i].Type)
			if negated {
				// Negated atoms participate loosely: they widen rather than
				// narrow, so they never over-constrain a variable that is
				// otherwise only bound by this occurrence (spec.md §4.2).
				widen(arg, declared)
			} else {
				narrow(arg, declared)
			}
		}
	}

	var seedArg func(a ast.Argument)
	seedArg = func(a ast.Argument) {
		switch v := a.(type) {
		case *ast.StringConstant:
			narrow(v, env.Leaves(ast.SymbolType))
		case *ast.NumberConstant:
			narrow(v, env.Leaves(ast.NumberType))
		case *ast.Counter:
			narrow(v, env.Leaves(ast.NumberType))
		case *ast.Functor:
			sig := ast.FunctorSignatures[v.Op]
			narrow(v, env.leavesByBase(sig.Result))
			for i, op := range v.Operands {
				if i < len(sig.Operands) {
					narrow(op, env.leavesByBase(sig.Operands[i]))
				}
				seedArg(op)
			}
		case *ast.RecordInit:
			if t, ok := prog.Type(v.Type); ok && t.Kind == ast.TypeRecord {
				narrow(v, NewTypeSet(v.Type))
				for i, el := range v.Elements {
					if i < len(t.Fields) {
						narrow(el, env.Leaves(t.Fields[i].Type))
					}
					seedArg(el)
				}
			}
		case *ast.Aggregator:
			narrow(v, env.Leaves(ast.NumberType))
			if v.Target != nil {
				narrow(v.Target, env.Leaves(ast.NumberType))
				seedArg(v.Target)
			}
			for _, l := range v.Body {
				seedLiteral(l, atomConstraints, seedArg)
			}
		}
	}

	seedClauseLiteral := func(l ast.Literal) {
		seedLiteral(l, atomConstraints, seedArg)
	}

	// Kleene iteration: re-apply every constraint until nothing changes.
	// Record-initializer bidirectionality and functor propagation both need
	// more than one pass when nested, so this is not a single linear sweep.
	for iter, changed := 0, true; changed && iter < 64; iter++ {
		changed = false
		atomConstraints(c.Head, false)
		seedArg(c.Head)
		for _, arg := range c.Head.Args {
			seedArg(arg)
		}
		for _, l := range c.Body {
			switch lit := l.(type) {
			case *ast.Atom:
				atomConstraints(lit, false)
			case *ast.Negation:
				atomConstraints(lit.Atom, true)
			case *ast.Constraint:
				seedArg(lit.LHS)
				seedArg(lit.RHS)
				lhs := r.get(lit.LHS, universe)
				rhs := r.get(lit.RHS, universe)
				if lit.Op == ast.OpEq {
					m := Meet(lhs, rhs)
					if r.set(lit.LHS, m) {
						changed = true
					}
					if r.set(lit.RHS, m) {
						changed = true
					}
				}
			}
			seedClauseLiteral(l)
		}
		if recordPropagate(prog, r, universe) {
			changed = true
		}
	}
	return r
}

func seedLiteral(l ast.Literal, atomConstraints func(*ast.Atom, bool), seedArg func(ast.Argument)) {
	switch lit := l.(type) {
	case *ast.Atom:
		for _, a := range lit.Args {
			seedArg(a)
		}
	case *ast.Negation:
		for _, a := range lit.Atom.Args {
			seedArg(a)
		}
	case *ast.Constraint:
		seedArg(lit.LHS)
		seedArg(lit.RHS)
	}
}

// recordPropagate pushes a concrete record-type resolution back onto a
// RecordInit's own elements: once r.byPtr[record] narrows to exactly one
// record type (or a set of record types with a common field type at
// position i), the element at i is narrowed further (spec.md §4.2 "updates
// propagate both directions").
func recordPropagate(prog *ast.Program, r *Result, universe TypeSet) bool {
	changed := false
	for a, ts := range r.byPtr {
		rec, ok := a.(*ast.RecordInit)
		if !ok {
			continue
		}
		for name := range ts {
			t, ok := prog.Type(name)
			if !ok || t.Kind != ast.TypeRecord {
				continue
			}
			for i, el := range rec.Elements {
				if i >= len(t.Fields) {
					continue
				}
				cur := r.get(el, universe)
				fieldLeaves := flattenOne(prog, t.Fields[i].Type)
				next := Meet(cur, fieldLeaves)
				if r.set(el, next) {
					changed = true
				}
			}
		}
	}
	return changed
}

func flattenOne(prog *ast.Program, name ast.TypeIdentifier) TypeSet {
	t, ok := prog.Type(name)
	if !ok {
		return make(TypeSet)
	}
	if t.Kind != ast.TypeUnion {
		return NewTypeSet(name)
	}
	out := make(TypeSet)
	for _, m := range t.Members {
		for k := range flattenOne(prog, m) {
			out[k] = struct{}{}
		}
	}
	return out
}

func lookupRaw(r *Result, a ast.Argument) (TypeSet, bool) {
	if v, ok := a.(*ast.Variable); ok {
		ts, had := r.byVar[v.Name]
		return ts, had
	}
	ts, had := r.byPtr[a]
	return ts, had
}

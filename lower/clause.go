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

// clauseOptions customizes one clause's translation: the semi-naive
// rewriter (spec.md §4.7) needs to redirect specific body-atom relations to
// their delta/new counterparts and to guard the projection against
// already-known tuples, without duplicating the whole nest-building
// algorithm.
type clauseOptions struct {
	// headRelation overrides the head atom's relation identifier (e.g.
	// @new_r instead of @r for a recursive variant).
	headRelation ast.RelationIdentifier
	// atomOverride overrides the relation scanned for one specific body
	// atom (by its position in the chosen order), keyed by that position.
	atomOverride map[int]ast.RelationIdentifier
	// extraNotExists adds NotExists conditions keyed by the body-atom
	// position after whose scan they become decidable (used for the
	// "exclude already-delta" double-counting guard and for the final
	// "not already in @r" novelty guard, spec.md §4.7).
	extraNotExists map[int][]*ast.Atom
	// subroutine, when true, emits ram.Return instead of ram.Project (a
	// provenance subproof subroutine, spec.md §4.5 "subroutines for
	// provenance subproofs").
	subroutine bool
}

// orderAtoms picks the clause's version-0 execution plan if present,
// otherwise the declared left-to-right order (spec.md §4.5 step 1).
func orderAtoms(c *ast.Clause) []*ast.Atom {
	atoms := c.BodyAtoms()
	for _, p := range c.Plans {
		if p.Version != 0 || len(p.Order) != len(atoms) {
			continue
		}
		ordered := make([]*ast.Atom, len(atoms))
		for i, idx := range p.Order {
			ordered[i] = atoms[idx]
		}
		return ordered
	}
	return atoms
}

// collectAggregators walks the clause's head and body in a fixed order and
// returns every aggregator reachable, in first-appearance order — the
// order in which package transform's MaterializeAggregationQueries already
// reduced each one to a single-atom body (spec.md §4.4).
func collectAggregators(c *ast.Clause) []*ast.Aggregator {
	var out []*ast.Aggregator
	seen := make(map[*ast.Aggregator]bool)
	var walk func(a ast.Argument)
	walk = func(a ast.Argument) {
		switch v := a.(type) {
		case *ast.Aggregator:
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
			if v.Target != nil {
				walk(v.Target)
			}
			for _, l := range v.Body {
				walkLiteralArgs(l, walk)
			}
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
	for _, a := range c.Head.Args {
		walk(a)
	}
	for _, l := range c.Body {
		walkLiteralArgs(l, walk)
	}
	return out
}

func walkLiteralArgs(l ast.Literal, walk func(ast.Argument)) {
	switch lit := l.(type) {
	case *ast.Atom:
		for _, a := range lit.Args {
			walk(a)
		}
	case *ast.Negation:
		for _, a := range lit.Atom.Args {
			walk(a)
		}
	case *ast.Constraint:
		walk(lit.LHS)
		walk(lit.RHS)
	}
}

type condAtLevel struct {
	level int // -1 means "decidable before any atom is scanned"
	cond  ram.Condition
}

// nestBuilder accumulates the per-clause translation state while the nest
// is assembled outside-in (spec.md §4.5 step 4).
type nestBuilder struct {
	ctx   *Context
	prog  *ast.Program
	c     *ast.Clause
	opts  clauseOptions
	atoms []*ast.Atom
	aggs  []*ast.Aggregator
	idx   *valueIndex
	conds []condAtLevel
	// aggLocal[i] is the per-aggregate-scan index (attribute name ->
	// element access at that aggregate's own level) used to translate the
	// aggregator's Target expression.
	aggLocal []*valueIndex
	aggCond  []ram.Condition
}

// Translate lowers one clause into a RAM statement wrapped in ram.Insert
// (or ram.Return for a subroutine), following spec.md §4.5. Facts (empty
// body) are handled separately by FactStatement.
func Translate(ctx *Context, prog *ast.Program, headRel ast.RelationIdentifier, c *ast.Clause, opts clauseOptions) ram.Operation {
	nb := &nestBuilder{ctx: ctx, prog: prog, c: c, opts: opts}
	nb.atoms = orderAtoms(c)
	nb.aggs = collectAggregators(c)
	nb.idx = newValueIndex()
	nb.aggLocal = make([]*valueIndex, len(nb.aggs))
	nb.aggCond = make([]ram.Condition, len(nb.aggs))

	nb.bindAtoms()
	nb.bindAggregators()
	nb.attachConstraintsAndNegations()

	if headRel != nil {
		nb.opts.headRelation = headRel
	}
	return nb.build(0)
}

func (nb *nestBuilder) relationOf(pos int) ast.RelationIdentifier {
	if nb.opts.atomOverride != nil {
		if r, ok := nb.opts.atomOverride[pos]; ok {
			return r
		}
	}
	return nb.atoms[pos].Relation
}

func (nb *nestBuilder) bindAtoms() {
	for level, atom := range nb.atoms {
		rel, ok := nb.prog.Relation(atom.Relation)
		for i, arg := range atom.Args {
			v, isVar := arg.(*ast.Variable)
			attrName := ""
			if ok && i < len(rel.Attributes) {
				attrName = rel.Attributes[i].Name
			}
			ea := ram.ElementAccess{Level: level, Component: i, Name: attrName}
			if !isVar {
				// Post-normalization atom arguments are always variables;
				// tolerate anything else defensively rather than panic.
				continue
			}
			if existing, had := nb.idx.getVar(v.Name); had {
				nb.conds = append(nb.conds, condAtLevel{level: level, cond: &ram.BinaryRelation{Op: ast.OpEq, L: ea, R: existing}})
			} else {
				nb.idx.setVar(v.Name, ea)
			}
		}
	}
}

func (nb *nestBuilder) bindAggregators() {
	for i, agg := range nb.aggs {
		level := len(nb.atoms) + i
		atom := agg.Body[0].(*ast.Atom)
		rel, _ := nb.prog.Relation(atom.Relation)
		local := nb.idx.clone()
		var conds []ram.Condition
		for j, arg := range atom.Args {
			attrName := ""
			if rel != nil && j < len(rel.Attributes) {
				attrName = rel.Attributes[j].Name
			}
			ea := ram.ElementAccess{Level: level, Component: j, Name: attrName}
			// An outer-bound column is blanked to `_` at the call site
			// (package transform's MaterializeAggregationQueries); re-join
			// it here by attribute name against whatever is already bound
			// in the enclosing clause, rather than by a repeated variable
			// name that no longer exists post-blanking.
			if outer, had := nb.idx.getVar(attrName); had {
				conds = append(conds, &ram.BinaryRelation{Op: ast.OpEq, L: ea, R: outer})
				continue
			}
			if v, isVar := arg.(*ast.Variable); isVar {
				local.setVar(v.Name, ea)
			}
		}
		nb.aggLocal[i] = local
		if len(conds) == 1 {
			nb.aggCond[i] = conds[0]
		} else if len(conds) > 1 {
			nb.aggCond[i] = &ram.And{Operands: conds}
		}
		resultLevel := ram.ElementAccess{Level: level, Component: 0, Name: "agg"}
		nb.idx.setAgg(agg, resultLevel)
	}
}

func (nb *nestBuilder) triggerLevel(names []string) int {
	best := -1
	for _, n := range names {
		if v, ok := nb.idx.getVar(n); ok {
			if ea, ok := v.(ram.ElementAccess); ok && ea.Level > best {
				best = ea.Level
			}
		}
	}
	return best
}

func (nb *nestBuilder) attachConstraintsAndNegations() {
	for _, l := range nb.c.Body {
		switch lit := l.(type) {
		case *ast.Constraint:
			names := append(varNames(lit.LHS), varNames(lit.RHS)...)
			level := nb.triggerLevel(names)
			cond := &ram.BinaryRelation{Op: lit.Op, L: argToValue(nb.ctx, nb.idx, lit.LHS), R: argToValue(nb.ctx, nb.idx, lit.RHS)}
			nb.conds = append(nb.conds, condAtLevel{level: level, cond: cond})
		case *ast.Negation:
			var names []string
			for _, a := range lit.Atom.Args {
				names = append(names, varNames(a)...)
			}
			level := nb.triggerLevel(names)
			args := make([]ram.Value, len(lit.Atom.Args))
			for i, a := range lit.Atom.Args {
				args[i] = argToValue(nb.ctx, nb.idx, a)
			}
			cond := &ram.NotExists{Relation: lit.Atom.Relation, Args: args}
			nb.conds = append(nb.conds, condAtLevel{level: level, cond: cond})
		}
	}
	for level, extras := range nb.opts.extraNotExists {
		for _, atom := range extras {
			args := make([]ram.Value, len(atom.Args))
			for i, a := range atom.Args {
				args[i] = argToValue(nb.ctx, nb.idx, a)
			}
			nb.conds = append(nb.conds, condAtLevel{level: level, cond: &ram.NotExists{Relation: atom.Relation, Args: args}})
		}
	}
}

func (nb *nestBuilder) condsAt(level int) ram.Condition {
	var cs []ram.Condition
	for _, c := range nb.conds {
		if c.level == level {
			cs = append(cs, c.cond)
		}
	}
	switch len(cs) {
	case 0:
		return nil
	case 1:
		return cs[0]
	default:
		return &ram.And{Operands: cs}
	}
}

func combineConds(a, b ram.Condition) ram.Condition {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &ram.And{Operands: []ram.Condition{a, b}}
}

func (nb *nestBuilder) build(level int) ram.Operation {
	total := len(nb.atoms) + len(nb.aggs)
	if level == total {
		return nb.finalOp()
	}
	leading := nb.condsAt(-1)
	if level < len(nb.atoms) {
		cond := nb.condsAt(level)
		if level == 0 {
			cond = combineConds(leading, cond)
		}
		return &ram.Scan{Relation: nb.relationOf(level), Level: level, Cond: cond, Nested: nb.build(level + 1)}
	}
	i := level - len(nb.atoms)
	agg := nb.aggs[i]
	atom := agg.Body[0].(*ast.Atom)
	cond := combineConds(nb.aggCond[i], nb.condsAt(level))
	if level == 0 {
		cond = combineConds(leading, cond)
	}
	var target ram.Value
	if agg.Target != nil {
		target = argToValue(nb.ctx, nb.aggLocal[i], agg.Target)
	}
	return &ram.Aggregate{Func: agg.Func, Relation: atom.Relation, Level: level, Target: target, Cond: cond, Nested: nb.build(level + 1)}
}

func (nb *nestBuilder) finalOp() ram.Operation {
	if nb.opts.subroutine {
		values := make([]ram.Value, len(nb.c.Head.Args))
		for i, a := range nb.c.Head.Args {
			values[i] = argToValue(nb.ctx, nb.idx, a)
		}
		return &ram.Return{Values: values}
	}
	rel := nb.opts.headRelation
	if rel == nil {
		rel = nb.c.Head.Relation
	}
	values := make([]ram.Value, len(nb.c.Head.Args))
	for i, a := range nb.c.Head.Args {
		values[i] = argToValue(nb.ctx, nb.idx, a)
	}
	return &ram.Project{Relation: rel, Values: values}
}

// FactStatement lowers a fact clause (empty body, ground head) directly
// into a RAM Fact insert (spec.md §4.5 "Facts become a direct fact
// insert").
func FactStatement(ctx *Context, c *ast.Clause) *ram.Fact {
	idx := newValueIndex()
	values := make([]ram.Value, len(c.Head.Args))
	for i, a := range c.Head.Args {
		values[i] = argToValue(ctx, idx, a)
	}
	return &ram.Fact{Relation: c.Head.Relation, Values: values}
}

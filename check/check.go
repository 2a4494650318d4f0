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

// Package check implements the semantic checker (spec.md §4.1): on
// accepting, invariants 1-5 hold; on rejecting, it emits diagnostics with
// source locations and returns without mutating the AST. It never rewrites
// the program — that is transform's job once check has accepted it.
package check

import (
	"fmt"
	"strings"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/diag"
	"github.com/arrowlang/dlc/ground"
	"github.com/arrowlang/dlc/precedence"
	"github.com/arrowlang/dlc/typesys"
	"github.com/sirupsen/logrus"
)

// Run checks prog in full and returns the accumulated diagnostics. Callers
// should treat prog as rejected whenever report.HasErrors() is true.
func Run(prog *ast.Program, log *logrus.Entry) *diag.Report {
	r := diag.NewReport()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.Debug("check: starting semantic checker")

	checkNamespaces(prog, r)
	env := typesys.NewEnv(prog)
	for _, rel := range prog.RelationsInOrder() {
		checkRelationShape(prog, rel, r)
		for _, c := range rel.Clauses {
			checkClauseShape(prog, rel, c, r)
			if c.IsFact() {
				checkFact(rel, c, r)
			}
			checkGroundedness(rel, c, r)
			checkWitnessProblem(rel, c, r)
			checkExecutionPlans(rel, c, r)
			checkTypes(prog, env, rel, c, r)
		}
	}
	checkInlining(prog, r)
	checkStratification(prog, r)
	checkTypeDecls(env, prog, r)

	log.WithField("errors", len(r.Filter(diag.Error))).Debug("check: finished semantic checker")
	return r
}

func checkNamespaces(prog *ast.Program, r *diag.Report) {
	for _, t := range prog.TypesInOrder() {
		if _, ok := prog.Relations[string(t.Name)]; ok {
			r.Errorf(t.Loc, diag.ErrDuplicateNamespace.New(t.Name))
		}
	}
}

func checkRelationShape(prog *ast.Program, rel *ast.Relation, r *diag.Report) {
	seen := make(map[string]bool)
	for _, a := range rel.Attributes {
		if seen[a.Name] {
			r.Errorf(rel.Location, diag.ErrDuplicateAttribute.New(rel.ID, a.Name))
		}
		seen[a.Name] = true
		if _, ok := prog.Type(a.Type); !ok {
			r.Errorf(rel.Location, diag.ErrUndefinedType.New(a.Type))
		}
		if rel.Input {
			if t, ok := prog.Type(a.Type); ok && t.Kind == ast.TypeRecord {
				r.Errorf(rel.Location, diag.ErrRecordInInputRelation.New(rel.ID, a.Name))
			}
		}
	}
	if rel.HasStorage && rel.Storage == ast.StorageEqrel {
		if rel.Arity() != 2 || rel.Attributes[0].Type != rel.Attributes[1].Type {
			r.Errorf(rel.Location, diag.ErrEqrelArityMismatch.New(rel.ID))
		}
	}
}

func checkAtomShape(prog *ast.Program, atom *ast.Atom, r *diag.Report) {
	rel, ok := prog.Relation(atom.Relation)
	if !ok {
		r.Errorf(atom.Location, diag.ErrUndefinedRelation.New(atom.Relation))
		return
	}
	if len(atom.Args) != rel.Arity() {
		r.Errorf(atom.Location, diag.ErrArityMismatch.New(atom.Relation, rel.Arity(), len(atom.Args)))
	}
}

func checkClauseShape(prog *ast.Program, rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	for _, a := range c.Head.Args {
		if containsUnderscore(a) {
			r.Errorf(c.Head.Location, diag.ErrUnderscoreInHead.New(headName(rel, c)))
			break
		}
	}
	checkAtomShape(prog, c.Head, r)
	for _, l := range c.Body {
		switch lit := l.(type) {
		case *ast.Atom:
			checkAtomShape(prog, lit, r)
		case *ast.Negation:
			checkAtomShape(prog, lit.Atom, r)
		}
	}
	if c.Generation == ast.UserWritten {
		checkSingleUseVariables(rel, c, r)
	}
}

func containsUnderscore(a ast.Argument) bool {
	switch v := a.(type) {
	case *ast.UnnamedVariable:
		return true
	case *ast.Functor:
		for _, o := range v.Operands {
			if containsUnderscore(o) {
				return true
			}
		}
	case *ast.RecordInit:
		for _, e := range v.Elements {
			if containsUnderscore(e) {
				return true
			}
		}
	}
	return false
}

func headName(rel *ast.Relation, c *ast.Clause) string {
	return rel.ID.String()
}

// checkFact enforces spec.md §4.1 "Facts": every head argument is a
// constant or an arithmetic expression over constants.
func checkFact(rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	var isConstExpr func(a ast.Argument) bool
	isConstExpr = func(a ast.Argument) bool {
		switch v := a.(type) {
		case *ast.NumberConstant, *ast.StringConstant:
			return true
		case *ast.Functor:
			for _, o := range v.Operands {
				if !isConstExpr(o) {
					return false
				}
			}
			return true
		default:
			return false
		}
	}
	for _, a := range c.Head.Args {
		if !isConstExpr(a) {
			r.Errorf(c.Head.Location, diag.ErrConstantInFact.New(rel.ID, argKindName(a)))
		}
	}
}

func argKindName(a ast.Argument) string {
	switch a.(type) {
	case *ast.Variable:
		return "a variable"
	case *ast.UnnamedVariable:
		return "`_`"
	case *ast.Counter:
		return "the `$` counter"
	case *ast.Aggregator:
		return "an aggregator"
	case *ast.RecordInit:
		return "a record initializer"
	default:
		return fmt.Sprintf("%T", a)
	}
}

// checkSingleUseVariables warns on variables used exactly once, unless the
// name starts with `_` (spec.md §4.1).
func checkSingleUseVariables(rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	counts := make(map[string]int)
	for _, v := range c.Vars() {
		counts[v.Name]++
	}
	for name, n := range counts {
		if n == 1 && !strings.HasPrefix(name, "_") {
			r.Warnf(c.Location, diag.WarnSingleUseVariable.New(name, rel.ID))
		}
	}
}

func checkGroundedness(rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	res := ground.Infer(c)
	for _, name := range ground.UngroundedHeadVars(c, res) {
		r.Errorf(c.Head.Location, diag.ErrUngroundedHeadVar.New(name, rel.ID))
	}
	for neg, names := range ground.UngroundedNegatedVars(c, res) {
		for _, name := range names {
			r.Errorf(neg.Location, diag.ErrUngroundedNegation.New(name, neg.Atom.Relation))
		}
	}
}

// checkWitnessProblem rebuilds c twice (as-is, and with every aggregator
// replaced by a fresh intrinsically-grounded variable and the head
// arguments grounded as well) and reports any argument grounded only in
// the aggregator-free rebuild: that means an
// aggregator's internal witness leaked into the enclosing clause's
// groundedness (spec.md §4.1).
func checkWitnessProblem(rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	withoutAggs, replaced := stripAggregators(c)
	if !replaced {
		return
	}
	withAggs := ground.Infer(c)
	without := ground.Infer(withoutAggs)

	for _, v := range c.Vars() {
		if without.IsGrounded(v) && !withAggs.IsGrounded(v) {
			r.Errorf(c.Location, diag.ErrWitnessLeak.New(v.Name, rel.ID))
		}
	}
}

// stripAggregators replaces every aggregator reachable from c with a fresh
// Variable and, when it replaced any, appends one synthetic positive atom
// over those variables and the head arguments so they are grounded a priori
// (like the real aggregator is). It reports whether any replacement
// happened.
func stripAggregators(c *ast.Clause) (*ast.Clause, bool) {
	replaced := false
	n := 0
	mapper := func(a ast.Argument) ast.Argument {
		if _, ok := a.(*ast.Aggregator); ok {
			replaced = true
			n++
			return &ast.Variable{Name: fmt.Sprintf("$witness%d", n)}
		}
		return a
	}
	nc := ast.MapClauseArgs(c, mapper)
	if replaced {
		args := append([]ast.Argument(nil), nc.Head.Args...)
		for i := 1; i <= n; i++ {
			args = append(args, &ast.Variable{Name: fmt.Sprintf("$witness%d", i)})
		}
		grounding := &ast.Atom{Relation: ast.NewRelationIdentifier("$witness"), Args: args}
		nc.Body = append(append([]ast.Literal(nil), nc.Body...), grounding)
	}
	return nc, replaced
}

// checkTypes runs the type lattice fixpoint (package typesys) over c and
// reports every argument whose inferred TypeSet collapsed to empty (spec.md
// §4.2 invariant 4 / §7 ErrUninferableType), plus the record-literal shape
// check record propagation alone can't make (a RecordInit naming a type it
// has the wrong number of elements for never narrows to that type, so it
// would otherwise just silently fail to unify instead of reporting why).
func checkTypes(prog *ast.Program, env *typesys.Env, rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	res := typesys.Infer(prog, env, c)
	if len(res.EmptyArguments()) > 0 {
		r.Errorf(c.Location, diag.ErrUninferableType.New(rel.ID))
	}
	ast.Walk(c, func(a ast.Argument) {
		rec, ok := a.(*ast.RecordInit)
		if !ok {
			return
		}
		t, ok := prog.Type(rec.Type)
		if !ok || t.Kind != ast.TypeRecord {
			return
		}
		if len(rec.Elements) != len(t.Fields) {
			r.Errorf(c.Location, diag.ErrRecordSizeMismatch.New(rec.Type, len(t.Fields), len(rec.Elements)))
		}
	})
}

// checkTypeDecls validates type declarations independent of any clause: a
// union's members must all resolve to the same base kind (ast.NewUnionType's
// doc comment: "checked by the semantic checker, not here"). Leaves flattens
// through nested unions; a record-typed leaf mixed in with any primitive
// leaf counts as a mismatch too, since a union exists to let one functor
// signature or attribute type accept either member interchangeably, which
// only works when every leaf shares one base kind.
func checkTypeDecls(env *typesys.Env, prog *ast.Program, r *diag.Report) {
	for _, t := range prog.TypesInOrder() {
		if t.Kind != ast.TypeUnion {
			continue
		}
		var base ast.BaseKind
		haveBase := false
		mismatched := false
		for name := range env.Leaves(t.Name) {
			bk, ok := env.BaseKindOf(name)
			if !ok {
				mismatched = true
				continue
			}
			if !haveBase {
				base, haveBase = bk, true
			} else if bk != base {
				mismatched = true
			}
		}
		if mismatched {
			r.Errorf(t.Loc, diag.ErrUnionBaseKindMismatch.New(t.Name))
		}
	}
}

func checkExecutionPlans(rel *ast.Relation, c *ast.Clause, r *diag.Report) {
	n := len(c.BodyAtoms())
	for _, p := range c.Plans {
		if len(p.Order) != n {
			r.Errorf(c.Location, diag.ErrPlanArityMismatch.New(rel.ID, len(p.Order), n))
			continue
		}
		seen := make([]bool, n)
		ok := true
		for _, idx := range p.Order {
			if idx < 0 || idx >= n || seen[idx] {
				ok = false
				break
			}
			seen[idx] = true
		}
		if !ok {
			r.Errorf(c.Location, diag.ErrPlanNotPermutation.New(rel.ID))
		}
	}
}

// checkInlining enforces spec.md §4.1(a)-(e) for every `inline` relation.
func checkInlining(prog *ast.Program, r *diag.Report) {
	inlineGraph := make(map[string][]string)
	var inlineRels []*ast.Relation
	for _, rel := range prog.RelationsInOrder() {
		if !rel.Inline {
			continue
		}
		inlineRels = append(inlineRels, rel)
		for _, c := range rel.Clauses {
			for _, l := range c.Body {
				var target ast.RelationIdentifier
				switch lit := l.(type) {
				case *ast.Atom:
					target = lit.Relation
				case *ast.Negation:
					target = lit.Atom.Relation
				default:
					continue
				}
				if other, ok := prog.Relation(target); ok && other.Inline {
					inlineGraph[rel.ID.String()] = append(inlineGraph[rel.ID.String()], target.String())
				}
			}
		}
	}
	if cyc := findCycle(inlineGraph); cyc != nil {
		r.Errorf(ast.SourceLocation{}, diag.ErrInlineCycle.New(strings.Join(cyc, " -> ")))
	}

	for _, rel := range inlineRels {
		for _, c := range rel.Clauses {
			if usesCounter(c) {
				r.Errorf(c.Location, diag.ErrInlineCounter.New(rel.ID))
			}
		}
	}

	for _, rel := range prog.RelationsInOrder() {
		for _, c := range rel.Clauses {
			headVars := varNameSet(c.Head.Args)
			for _, l := range c.Body {
				neg, ok := l.(*ast.Negation)
				if !ok {
					continue
				}
				target, ok := prog.Relation(neg.Atom.Relation)
				if !ok || !target.Inline {
					continue
				}
				for _, v := range varNamesIn(neg.Atom.Args) {
					if !headVars[v] {
						r.Errorf(neg.Location, diag.ErrInlineNegatedIntroduces.New(neg.Atom.Relation, v))
					}
				}
				if containsUnderscoreArgs(neg.Atom.Args) {
					r.Errorf(neg.Location, diag.ErrInlineNegatedUnderscore.New(neg.Atom.Relation))
				}
			}
			walkAggregatorAtoms(c, func(atom *ast.Atom) {
				if target, ok := prog.Relation(atom.Relation); ok && target.Inline {
					r.Errorf(atom.Location, diag.ErrInlineInAggregator.New(atom.Relation))
				}
			})
		}
	}
}

func usesCounter(c *ast.Clause) bool {
	found := false
	ast.Walk(c, func(a ast.Argument) {
		if _, ok := a.(*ast.Counter); ok {
			found = true
		}
	})
	return found
}

func varNameSet(args []ast.Argument) map[string]bool {
	out := make(map[string]bool)
	for _, n := range varNamesIn(args) {
		out[n] = true
	}
	return out
}

func varNamesIn(args []ast.Argument) []string {
	var out []string
	for _, a := range args {
		if v, ok := a.(*ast.Variable); ok {
			out = append(out, v.Name)
		}
	}
	return out
}

func containsUnderscoreArgs(args []ast.Argument) bool {
	for _, a := range args {
		if containsUnderscore(a) {
			return true
		}
	}
	return false
}

func walkAggregatorAtoms(c *ast.Clause, visit func(*ast.Atom)) {
	ast.Walk(c, func(a ast.Argument) {
		agg, ok := a.(*ast.Aggregator)
		if !ok {
			return
		}
		for _, l := range agg.Body {
			switch lit := l.(type) {
			case *ast.Atom:
				visit(lit)
			case *ast.Negation:
				visit(lit.Atom)
			}
		}
	})
}

// findCycle does a plain tri-colour DFS over a small adjacency map and
// returns the first cycle found as a slice of relation names, or nil.
func findCycle(graph map[string][]string) []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)
	var path []string
	var cycle []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		path = append(path, n)
		for _, m := range graph[n] {
			switch color[m] {
			case gray:
				cycle = append(append([]string(nil), path...), m)
				return true
			case white:
				if visit(m) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return false
	}

	for n := range graph {
		if color[n] == white {
			if visit(n) {
				return cycle
			}
		}
	}
	return nil
}

// checkStratification finds SCCs of the precedence graph containing a
// negative or aggregate edge and reports them as unstratifiable (spec.md
// §4.1, §4.6).
func checkStratification(prog *ast.Program, r *diag.Report) {
	g := precedence.Build(prog)
	sg := precedence.Decompose(g)
	for _, scc := range sg.SCCs {
		if len(scc.Relations) <= 1 && !scc.HasNegation && !scc.HasAggregate {
			continue
		}
		if scc.HasNegation || scc.HasAggregate {
			r.Errorf(ast.SourceLocation{}, diag.ErrUnstratifiable.New(strings.Join(scc.Relations, ", ")))
		}
	}
}

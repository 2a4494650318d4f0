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

package transform

import (
	"strings"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/precedence"
)

// seedMemo deduplicates generated magic seed rules by structural identity
// (head + body), keyed by the magic relation they'd be appended to. Without
// it, a clause whose body shares a common prefix with several sibling
// clauses re-derives the same seed rule once per clause, and recursive
// adornment chains turn that into an exponential blowup of identical rules.
type seedMemo map[string]map[uint64]bool

func (m seedMemo) seen(relKey string, c *ast.Clause) bool {
	h := structuralHash(c)
	if m[relKey] == nil {
		m[relKey] = make(map[uint64]bool)
	}
	if m[relKey][h] {
		return true
	}
	m[relKey][h] = true
	return false
}

// MagicSet restricts recursive computation to the tuples a query actually
// demands (spec.md §4.4 "Magic-set transform"). Every output relation
// starts at the all-free adornment; a demand-driven SIPS walks each clause's
// body in bound-aware order, adorning each atom with which of its argument
// positions are already bound by the head, earlier atoms, or an equality
// constraint. Each adorned predicate gets a magic relation carrying its
// bound columns, seeded by one rule per body occurrence, and every adorned
// clause is guarded by its magic relation at the front of its body.
//
// Three cases fall back to the original, unguarded relation instead of
// being adorned, per spec.md: a relation referenced from inside an
// aggregator body (the aggregator needs the whole extent), a relation whose
// own SCC has a negated edge (an adornment could change stratification), and
// a relation mixing fact and rule clauses (no single adornment covers a
// ground fact). A relation demanded under two different adornments is
// treated the same way: it is adorned under neither, and every demand on it
// reads the original, unguarded relation.
func MagicSet(prog *ast.Program) bool {
	fallback := magicFallbackSet(prog)
	demanded, conflicted := discoverDemand(prog, fallback)
	for relKey := range conflicted {
		fallback[relKey] = true
	}

	magicRels := make(map[string]*ast.Relation)
	seeded := make(seedMemo)
	changed := false

	for _, rel := range prog.RelationsInOrder() {
		relKey := rel.ID.String()
		if fallback[relKey] {
			continue
		}
		adorn, ok := demanded[relKey]
		if !ok || strings.Count(adorn, "b") == 0 {
			continue
		}
		magicID, magicRel := magicRelationFor(magicRels, rel, adorn)

		var newClauses []*ast.Clause
		for _, c := range rel.Clauses {
			if c.IsFact() {
				newClauses = append(newClauses, c)
				continue
			}
			order, adorns := sipsOrder(c, adorn)
			seedMagicRules(prog, magicRels, seeded, fallback, c, magicID, adorn, order, adorns)

			guard := &ast.Atom{Relation: magicID, Args: boundArgsOfHead(c.Head, adorn), Location: c.Head.Location}
			newBody := append([]ast.Literal{guard}, c.Body...)
			newClauses = append(newClauses, &ast.Clause{Head: c.Head, Body: newBody, Plans: c.Plans, Generation: c.Generation, Location: c.Location})
			changed = true
		}
		rel.Clauses = newClauses
	}

	for _, mr := range magicRels {
		prog.AddRelation(mr)
		changed = true
	}
	return changed
}

// magicFallbackSet collects every relation key that magic-set must leave
// untouched: aggregator-internal relations, relations in a recursive SCC
// with a negated internal edge, and relations mixing facts with rules.
func magicFallbackSet(prog *ast.Program) map[string]bool {
	fb := make(map[string]bool)
	for _, rel := range prog.RelationsInOrder() {
		hasFact, hasRule := false, false
		for _, c := range rel.Clauses {
			if c.IsFact() {
				hasFact = true
			} else {
				hasRule = true
			}
		}
		if hasFact && hasRule {
			fb[rel.ID.String()] = true
		}
		for _, c := range rel.Clauses {
			walkAggregatorAtomsT(c, func(a *ast.Atom) { fb[a.Relation.String()] = true })
		}
	}

	g := precedence.Build(prog)
	sg := precedence.Decompose(g)
	for _, scc := range sg.SCCs {
		if scc.Recursive && scc.HasNegation {
			for _, r := range scc.Relations {
				fb[r] = true
			}
		}
	}
	return fb
}

// discoverDemand runs the adornment-propagation worklist without mutating
// the program, returning the single adornment demanded per relation key and
// the set of relation keys demanded under more than one distinct adornment.
func discoverDemand(prog *ast.Program, fallback map[string]bool) (map[string]string, map[string]bool) {
	demanded := make(map[string]string)
	conflict := make(map[string]bool)
	seen := make(map[string]bool)

	var queue []demandEntry
	for _, rel := range prog.RelationsInOrder() {
		if rel.Output || rel.PrintSize {
			queue = append(queue, demandEntry{rel.ID.String(), strings.Repeat("f", rel.Arity())})
		}
	}

	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		key := d.relKey + "^" + d.adorn
		if seen[key] {
			continue
		}
		seen[key] = true

		if existing, ok := demanded[d.relKey]; ok {
			if existing != d.adorn {
				conflict[d.relKey] = true
			}
			continue
		}
		demanded[d.relKey] = d.adorn
		if fallback[d.relKey] {
			continue
		}
		rel, ok := prog.Relation(ast.NewRelationIdentifier(d.relKey))
		if !ok {
			continue
		}
		for _, c := range rel.Clauses {
			if c.IsFact() {
				continue
			}
			order, adorns := sipsOrder(c, d.adorn)
			for i, atom := range order {
				queue = append(queue, demandEntry{atom.Relation.String(), adorns[i]})
			}
		}
	}
	return demanded, conflict
}

type demandEntry struct {
	relKey string
	adorn  string
}

// seedMagicRules appends one magic rule per body-atom occurrence in c that
// is itself adorned with at least one bound column: `mag_bᵝ(bound-of-b) :-
// mag_pᵅ(bound-of-p), <atoms preceding b in the chosen order>.` seeded
// memoizes by structural hash so that two clauses (or two positions in the
// same clause) deriving an identical seed rule only emit it once.
func seedMagicRules(prog *ast.Program, magicRels map[string]*ast.Relation, seeded seedMemo, fallback map[string]bool, c *ast.Clause, magicID ast.RelationIdentifier, headAdorn string, order []*ast.Atom, adorns []string) {
	var prefix []ast.Literal
	for i, atom := range order {
		childAdorn := adorns[i]
		if strings.Count(childAdorn, "b") == 0 {
			prefix = append(prefix, atom)
			continue
		}
		childRel, ok := prog.Relation(atom.Relation)
		if ok && !fallback[atom.Relation.String()] {
			childMagicID, childMagicRel := magicRelationFor(magicRels, childRel, childAdorn)
			seedHead := &ast.Atom{Relation: childMagicID, Args: boundArgsOfHead(atom, childAdorn), Location: atom.Location}
			seedBody := append([]ast.Literal{}, prefix...)
			if strings.Count(headAdorn, "b") > 0 {
				guard := &ast.Atom{Relation: magicID, Args: boundArgsOfHead(c.Head, headAdorn), Location: c.Head.Location}
				seedBody = append([]ast.Literal{guard}, seedBody...)
			}
			seedClause := &ast.Clause{Head: seedHead, Body: seedBody, Generation: ast.Synthesized}
			if !seeded.seen(childMagicID.String(), seedClause) {
				childMagicRel.Clauses = append(childMagicRel.Clauses, seedClause)
			}
		}
		prefix = append(prefix, atom)
	}
}

// magicRelationFor returns the magic relation for (rel, adorn), creating it
// on first reference. Its arity equals the number of bound columns in
// adorn; attribute types mirror the bound positions of rel.
func magicRelationFor(magicRels map[string]*ast.Relation, rel *ast.Relation, adorn string) (ast.RelationIdentifier, *ast.Relation) {
	key := rel.ID.String() + "^" + adorn
	if mr, ok := magicRels[key]; ok {
		return mr.ID, mr
	}
	id := ast.NewRelationIdentifier("mag_" + rel.ID.String() + "_" + adorn)
	var attrs []ast.Attribute
	for i, a := range rel.Attributes {
		if i < len(adorn) && adorn[i] == 'b' {
			attrs = append(attrs, a)
		}
	}
	mr := &ast.Relation{ID: id, Attributes: attrs, Computed: true}
	magicRels[key] = mr
	return id, mr
}

// sipsOrder picks a bound-aware ordering of c's positive body atoms under
// headAdorn (greedy: at each step, the atom with the most already-bound
// argument positions goes next), growing the bound-variable set by each
// chosen atom's arguments and by any equality constraint that connects a
// bound variable to a still-free one. Returns the chosen order in parallel
// with each atom's own adornment at the point it was chosen.
func sipsOrder(c *ast.Clause, headAdorn string) ([]*ast.Atom, []string) {
	bound := headBoundVars(c.Head, headAdorn)
	applyEqualityConstraints(bound, c.Body)

	remaining := append([]*ast.Atom{}, c.BodyAtoms()...)
	var order []*ast.Atom
	var adorns []string
	for len(remaining) > 0 {
		bestIdx, bestScore := 0, -1
		for i, atom := range remaining {
			score := 0
			for _, a := range atom.Args {
				if v, ok := a.(*ast.Variable); ok && bound[v.Name] {
					score++
				}
			}
			if score > bestScore {
				bestScore, bestIdx = score, i
			}
		}
		chosen := remaining[bestIdx]
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		adorns = append(adorns, atomAdornment(chosen, bound))
		order = append(order, chosen)
		for _, a := range chosen.Args {
			if v, ok := a.(*ast.Variable); ok {
				bound[v.Name] = true
			}
		}
		applyEqualityConstraints(bound, c.Body)
	}
	return order, adorns
}

func atomAdornment(atom *ast.Atom, bound map[string]bool) string {
	b := make([]byte, len(atom.Args))
	for i, a := range atom.Args {
		if v, ok := a.(*ast.Variable); ok && bound[v.Name] {
			b[i] = 'b'
		} else {
			b[i] = 'f'
		}
	}
	return string(b)
}

func applyEqualityConstraints(bound map[string]bool, body []ast.Literal) {
	for changed := true; changed; {
		changed = false
		for _, l := range body {
			cst, ok := l.(*ast.Constraint)
			if !ok || cst.Op != ast.OpEq {
				continue
			}
			lv, lok := cst.LHS.(*ast.Variable)
			rv, rok := cst.RHS.(*ast.Variable)
			if !lok || !rok {
				continue
			}
			if bound[lv.Name] && !bound[rv.Name] {
				bound[rv.Name] = true
				changed = true
			}
			if bound[rv.Name] && !bound[lv.Name] {
				bound[lv.Name] = true
				changed = true
			}
		}
	}
}

func headBoundVars(head *ast.Atom, adorn string) map[string]bool {
	out := make(map[string]bool)
	for i, a := range head.Args {
		if i < len(adorn) && adorn[i] == 'b' {
			if v, ok := a.(*ast.Variable); ok {
				out[v.Name] = true
			}
		}
	}
	return out
}

func boundArgsOfHead(head *ast.Atom, adorn string) []ast.Argument {
	var out []ast.Argument
	for i, a := range head.Args {
		if i < len(adorn) && adorn[i] == 'b' {
			out = append(out, a)
		}
	}
	return out
}

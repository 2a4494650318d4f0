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

// Package precedence builds the relation precedence graph, its SCC
// decomposition, a topological order over the SCC DAG, and the per-SCC
// relation schedule (spec.md §4.6).
package precedence

import "github.com/arrowlang/dlc/ast"

// EdgeKind records whether an edge was introduced through a positive atom,
// a negated atom, or an aggregator body atom — the stratification check
// (package check) only cares whether a *cycle* contains a Negative or
// Aggregate edge, but keeping the kind around lets diagnostics point at the
// actual offending literal.
type EdgeKind int

const (
	EdgePositive EdgeKind = iota
	EdgeNegative
	EdgeAggregate
)

// Edge is one precedence-graph edge: some clause defining From mentions To
// in its body.
type Edge struct {
	From, To ast.RelationIdentifier
	Kind     EdgeKind
	Clause   *ast.Clause
}

// Graph is the relation precedence graph (spec.md §4.6): vertices are
// relations, edges point from a clause's head relation to every relation
// mentioned in its body (positive, negative, or inside an aggregator).
type Graph struct {
	Vertices []string // relation identifier strings, in first-seen order
	seen     map[string]bool
	Edges    []Edge
	adj      map[string][]Edge
}

// Build constructs the precedence graph for every relation/clause in prog.
func Build(prog *ast.Program) *Graph {
	g := &Graph{seen: make(map[string]bool), adj: make(map[string][]Edge)}
	for _, r := range prog.RelationsInOrder() {
		g.addVertex(r.ID.String())
	}
	for _, r := range prog.RelationsInOrder() {
		for _, c := range r.Clauses {
			g.addClauseEdges(r.ID, c)
		}
	}
	return g
}

func (g *Graph) addVertex(id string) {
	if !g.seen[id] {
		g.seen[id] = true
		g.Vertices = append(g.Vertices, id)
	}
}

func (g *Graph) addEdge(e Edge) {
	g.addVertex(e.From.String())
	g.addVertex(e.To.String())
	g.Edges = append(g.Edges, e)
	g.adj[e.From.String()] = append(g.adj[e.From.String()], e)
}

func (g *Graph) addClauseEdges(head ast.RelationIdentifier, c *ast.Clause) {
	for _, l := range c.Body {
		switch lit := l.(type) {
		case *ast.Atom:
			g.addEdge(Edge{From: head, To: lit.Relation, Kind: EdgePositive, Clause: c})
		case *ast.Negation:
			g.addEdge(Edge{From: head, To: lit.Atom.Relation, Kind: EdgeNegative, Clause: c})
		case *ast.Constraint:
			for _, arg := range []ast.Argument{lit.LHS, lit.RHS} {
				g.addAggregatorEdges(head, arg, c)
			}
		}
	}
	for _, arg := range c.Head.Args {
		g.addAggregatorEdges(head, arg, c)
	}
}

func (g *Graph) addAggregatorEdges(head ast.RelationIdentifier, a ast.Argument, c *ast.Clause) {
	switch v := a.(type) {
	case *ast.Aggregator:
		for _, l := range v.Body {
			switch lit := l.(type) {
			case *ast.Atom:
				g.addEdge(Edge{From: head, To: lit.Relation, Kind: EdgeAggregate, Clause: c})
			case *ast.Negation:
				g.addEdge(Edge{From: head, To: lit.Atom.Relation, Kind: EdgeAggregate, Clause: c})
			}
		}
		if v.Target != nil {
			g.addAggregatorEdges(head, v.Target, c)
		}
	case *ast.Functor:
		for _, op := range v.Operands {
			g.addAggregatorEdges(head, op, c)
		}
	case *ast.RecordInit:
		for _, el := range v.Elements {
			g.addAggregatorEdges(head, el, c)
		}
	}
}

// Successors returns every edge leaving relation id.
func (g *Graph) Successors(id string) []Edge { return g.adj[id] }

// IsRecursive reports whether c's head relation is reachable from some
// body-literal relation of c along the graph's edges (spec.md §4.6: "A
// clause is recursive iff its head relation is reachable from some
// body-literal relation").
func IsRecursive(g *Graph, head ast.RelationIdentifier, c *ast.Clause) bool {
	headID := head.String()
	bodyRels := map[string]bool{}
	for _, l := range c.Body {
		switch lit := l.(type) {
		case *ast.Atom:
			bodyRels[lit.Relation.String()] = true
		case *ast.Negation:
			bodyRels[lit.Atom.Relation.String()] = true
		}
	}
	for rel := range bodyRels {
		if g.reachable(rel, headID) {
			return true
		}
	}
	return false
}

func (g *Graph) reachable(from, to string) bool {
	visited := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, e := range g.adj[n] {
			stack = append(stack, e.To.String())
		}
	}
	return false
}

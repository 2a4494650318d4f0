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

// Package transform implements the rewrite pipeline of spec.md §4.4: a
// fixed sequence of named passes, each returning whether it changed
// anything, driven to a fixpoint by the package's Run entry point.
package transform

import (
	"github.com/arrowlang/dlc/ast"
	"github.com/sirupsen/logrus"
	"github.com/mitchellh/hashstructure"
)

// Pass is one named rewrite step over a program. It mutates prog in place
// (the driver owns exclusive access, spec.md §5) and reports whether it
// changed anything.
type Pass struct {
	Name string
	Run  func(prog *ast.Program) bool
}

// Stats accumulates a before/after clause count per pass invocation, the
// raw material for a DebugReport (SPEC_FULL.md "Configuration").
type Stats struct {
	PassName     string
	Iteration    int
	ClausesBefore int
	ClausesAfter  int
	Changed      bool
}

// Pipeline returns the fixed, ordered list of named passes (spec.md §4.4).
// Passes are applied in this order on every round; the whole list is driven
// to a fixpoint by Run.
func Pipeline() []Pass {
	return []Pass{
		{Name: "resolve-aliases", Run: ResolveAliases},
		{Name: "remove-relation-copies", Run: RemoveRelationCopies},
		{Name: "unique-aggregation-variables", Run: UniqueAggregationVariables},
		{Name: "materialize-aggregation-queries", Run: MaterializeAggregationQueries},
		{Name: "remove-empty-relations", Run: RemoveEmptyRelations},
		{Name: "remove-boolean-constraints", Run: RemoveBooleanConstraints},
		{Name: "extract-disconnected-literals", Run: ExtractDisconnectedLiterals},
		{Name: "reduce-existentials", Run: ReduceExistentials},
	}
}

// Run drives Pipeline() to a fixpoint: repeated rounds over the full
// ordered pass list until a round changes nothing, then runs
// NormalizeConstraints, InlineRelations and MagicSet once each (they are
// one-shot passes that assume the fixpoint-stable rewrites above already
// ran, per spec.md §4.4's pass ordering). log receives a Debug entry per
// pass with before/after clause counts; maxRounds bounds runaway
// oscillation (a transform bug, not a legitimate non-termination: spec.md's
// invariants guarantee convergence for a well-formed pipeline).
func Run(prog *ast.Program, log *logrus.Entry, maxRounds int) []Stats {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if maxRounds <= 0 {
		maxRounds = 64
	}
	var stats []Stats

	for round := 0; round < maxRounds; round++ {
		roundChanged := false
		for _, p := range Pipeline() {
			before := len(prog.AllClauses())
			changed := p.Run(prog)
			after := len(prog.AllClauses())
			stats = append(stats, Stats{PassName: p.Name, Iteration: round, ClausesBefore: before, ClausesAfter: after, Changed: changed})
			log.WithFields(logrus.Fields{"pass": p.Name, "round": round, "before": before, "after": after, "changed": changed}).Debug("transform: pass finished")
			if changed {
				roundChanged = true
			}
		}
		if !roundChanged {
			break
		}
	}

	for _, p := range []Pass{
		{Name: "normalize-constraints", Run: NormalizeConstraints},
		{Name: "inline-relations", Run: InlineRelations},
		{Name: "magic-set", Run: MagicSet},
	} {
		before := len(prog.AllClauses())
		changed := p.Run(prog)
		after := len(prog.AllClauses())
		stats = append(stats, Stats{PassName: p.Name, ClausesBefore: before, ClausesAfter: after, Changed: changed})
		log.WithFields(logrus.Fields{"pass": p.Name, "before": before, "after": after, "changed": changed}).Debug("transform: pass finished")
	}

	return stats
}

// structuralHash cheaply compares generated-clause identity instead of a
// deep reflect.DeepEqual. magic.go's seedMagicRules is the caller: it
// memoizes seed rules by structural hash so that two clauses deriving the
// same magic seed don't both append a duplicate copy.
func structuralHash(v interface{}) uint64 {
	h, err := hashstructure.Hash(v, nil)
	if err != nil {
		return 0
	}
	return h
}

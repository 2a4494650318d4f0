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

package compile

import (
	"strconv"

	"github.com/opentracing/opentracing-go"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/check"
	"github.com/arrowlang/dlc/diag"
	"github.com/arrowlang/dlc/lower"
	"github.com/arrowlang/dlc/precedence"
	"github.com/arrowlang/dlc/pragma"
	"github.com/arrowlang/dlc/ram"
	"github.com/arrowlang/dlc/transform"
)

// Result is everything one Compile call produces: the lowered program (nil
// if the program was rejected), the full diagnostic report, and a debug
// snapshot for hand-inspection.
type Result struct {
	Program *ram.Program
	Report  *diag.Report
	Debug   *DebugReport
}

// Compile drives prog through every stage spec.md describes: pragma merge,
// semantic check, the transform pipeline, precedence/SCC/schedule analysis,
// and AST->RAM lowering. It stops and returns early the moment a stage's
// diagnostics include an Error, exactly the way engine.go's Engine.Query
// checked the analyzer's returned error before running the plan (the
// pattern this package's short-circuit driver is grounded on).
func Compile(ctx *Context, prog *ast.Program) *Result {
	span := opentracing.GlobalTracer().StartSpan("compile.Compile")
	defer span.Finish()
	span.SetTag("relations", len(prog.RelationsInOrder()))
	span.SetTag("clauses", len(prog.AllClauses()))

	debug := newDebugReport()
	debug.RelationCount = len(prog.RelationsInOrder())
	debug.ClauseCount = len(prog.AllClauses())

	pset := pragma.NewSet()
	// The options passed to New act as command-line overrides: a positive
	// MaxTransformRounds and a true EmitDebugReport win over any pragma.
	if ctx.Options.MaxTransformRounds > 0 {
		pset.SetCLI("max-transform-rounds", strconv.Itoa(ctx.Options.MaxTransformRounds))
	}
	if ctx.Options.EmitDebugReport {
		pset.SetCLI("debug-report", "true")
	}
	pset.Load(prog, ctx.Errors)
	ctx.Options = OptionsFromPragmas(pset)
	for _, err := range pset.CoerceErrors() {
		ctx.Errors.Warnf(ast.SourceLocation{}, diag.WarnPragmaNotCoerced.New(err.Error()))
	}

	ctx.Log.Debug("compile: running semantic checker")
	checkReport := check.Run(prog, ctx.Log)
	ctx.Errors.Merge(checkReport)
	if ctx.Errors.HasErrors() {
		if ctx.Options.EmitDebugReport {
			debug.recordDiagnostics(ctx.Errors)
		}
		return &Result{Report: ctx.Errors, Debug: debug}
	}

	ctx.Log.Debug("compile: running transform pipeline")
	stats := transform.Run(prog, ctx.Log, ctx.Options.MaxTransformRounds)
	if ctx.Options.EmitDebugReport {
		debug.recordPasses(stats)
	}
	debug.ClauseCount = len(prog.AllClauses())

	ctx.Log.Debug("compile: building precedence graph")
	graph := precedence.Build(prog)
	sccGraph := precedence.Decompose(graph)
	debug.SCCCount = len(sccGraph.SCCs)
	for _, scc := range sccGraph.SCCs {
		if scc.Recursive {
			debug.RecursiveSCCs++
		}
	}
	schedule := precedence.BuildSchedule(sccGraph)

	ctx.Log.Debug("compile: lowering to RAM")
	lowerCtx := lower.NewContext(ctx.Symbols)
	ramProg := lower.Lower(lowerCtx, prog, sccGraph, schedule)

	if ctx.Options.EmitDebugReport {
		debug.recordDiagnostics(ctx.Errors)
	}
	return &Result{Program: ramProg, Report: ctx.Errors, Debug: debug}
}

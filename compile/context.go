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

// Package compile wires every earlier package into the single entry point
// spec.md's whole pipeline describes: pragma merge, semantic check, the
// transform pipeline, precedence/SCC/schedule analysis and AST->RAM
// lowering. Context is the explicit, single piece of state threaded
// through a compile run (spec.md §9 "Global singletons ... explicit
// context"), playing the role the teacher's sql.Context plays for one query
// run: session-scoped logging, the resolved options, the symbol table and
// accumulated diagnostics.
package compile

import (
	"github.com/arrowlang/dlc/diag"
	"github.com/arrowlang/dlc/pragma"
	"github.com/arrowlang/dlc/symbol"
	"github.com/sirupsen/logrus"
)

// Options configures one compile run. Values come from parsed .pragma
// directives merged with CLI-style overrides (package pragma); Options
// itself just holds the resolved, typed values the pipeline stages read.
type Options struct {
	// MaxTransformRounds bounds package transform's fixpoint driver.
	MaxTransformRounds int
	// EmitDebugReport controls whether Compile populates DebugReport.Passes
	// and DebugReport.Diagnostics (the relation, clause and SCC counts are
	// always populated).
	EmitDebugReport bool
}

// OptionsFromPragmas resolves Options from a loaded pragma.Set, with CLI
// overrides already folded in per pragma.Set's precedence rules.
func OptionsFromPragmas(s *pragma.Set) Options {
	return Options{
		MaxTransformRounds: s.Int("max-transform-rounds", 64),
		EmitDebugReport:    s.Bool("debug-report", true),
	}
}

// Context threads the symbol table, logging and options through one
// compile run.
type Context struct {
	Symbols *symbol.Table
	Options Options
	Log     *logrus.Entry
	Errors  *diag.Report
}

// New returns a Context ready to drive Compile. A nil log falls back to a
// fresh entry off the standard logger, the same default check.Run and
// transform.Run use when called standalone.
func New(opts Options, log *logrus.Entry) *Context {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Context{
		Symbols: symbol.New(),
		Options: opts,
		Log:     log,
		Errors:  diag.NewReport(),
	}
}

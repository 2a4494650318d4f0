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

// Package lower implements the AST->RAM translator of spec.md §4.5 and the
// semi-naive recursive codegen of §4.7: per-clause loop-nest synthesis over
// the RAM IR of package ram. It is the downstream consumer of every earlier
// analysis (typesys, ground, precedence) and the sole producer of a
// *ram.Program, which an external interpreter or C++ synthesizer (out of
// scope per spec.md §1) then executes.
package lower

import (
	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/symbol"
)

// Context threads the one piece of process-wide state the translator needs
// — the symbol table that gives every string constant a stable numeric ID,
// since the RAM IR has no string-constant value (spec.md §6's Value list is
// Number/ElementAccess/AutoIncrement/Pack/...Op/Argument) — through every
// call instead of reaching for a package-level global (spec.md §9 "Global
// singletons ... explicit context").
type Context struct {
	Symbols *symbol.Table
}

// NewContext returns a translator context backed by syms. A nil syms
// allocates a fresh table.
func NewContext(syms *symbol.Table) *Context {
	if syms == nil {
		syms = symbol.New()
	}
	return &Context{Symbols: syms}
}

func deltaName(id ast.RelationIdentifier) ast.RelationIdentifier {
	segs := append(append(ast.RelationIdentifier{}, id...), "$delta")
	return segs
}

func newName(id ast.RelationIdentifier) ast.RelationIdentifier {
	segs := append(append(ast.RelationIdentifier{}, id...), "$new")
	return segs
}

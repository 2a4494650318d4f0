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

// Command dlc demonstrates the compile pipeline end to end on spec.md §8
// Scenario 1 (transitive closure), built with ast struct literals instead of
// a real frontend (parsing source text is out of scope, spec.md §1). It
// prints the accumulated diagnostics to stderr and the DebugReport as YAML
// to stdout; the lowered RAM program itself is not printed. It runs the
// pipeline the way the teacher's own small examples build an
// in-memory table and run one query end to end rather than standing up a
// server.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/compile"
)

func v(name string) *ast.Variable { return &ast.Variable{Name: name} }

func atom(rel string, args ...ast.Argument) *ast.Atom {
	return &ast.Atom{Relation: ast.NewRelationIdentifier(rel), Args: args}
}

func transitiveClosureProgram() *ast.Program {
	prog := ast.NewProgram()

	edge := &ast.Relation{
		ID:    ast.NewRelationIdentifier("edge"),
		Input: true,
		Attributes: []ast.Attribute{
			{Name: "x", Type: ast.NumberType},
			{Name: "y", Type: ast.NumberType},
		},
	}
	path := &ast.Relation{
		ID:     ast.NewRelationIdentifier("path"),
		Output: true,
		Attributes: []ast.Attribute{
			{Name: "x", Type: ast.NumberType},
			{Name: "y", Type: ast.NumberType},
		},
		Clauses: []*ast.Clause{
			{
				Head: atom("path", v("x"), v("y")),
				Body: []ast.Literal{atom("edge", v("x"), v("y"))},
			},
			{
				Head: atom("path", v("x"), v("y")),
				Body: []ast.Literal{
					atom("path", v("x"), v("z")),
					atom("edge", v("z"), v("y")),
				},
			},
		},
	}

	prog.AddRelation(edge)
	prog.AddRelation(path)
	return prog
}

func main() {
	logrus.SetLevel(logrus.DebugLevel)
	log := logrus.NewEntry(logrus.StandardLogger())

	prog := transitiveClosureProgram()
	ctx := compile.New(compile.Options{MaxTransformRounds: 64, EmitDebugReport: true}, log)
	result := compile.Compile(ctx, prog)

	for _, d := range result.Report.All() {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if result.Program == nil {
		fmt.Fprintln(os.Stderr, "compile: rejected, no RAM program produced")
		os.Exit(1)
	}

	out, err := result.Debug.YAML()
	if err != nil {
		fmt.Fprintln(os.Stderr, "debug report:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

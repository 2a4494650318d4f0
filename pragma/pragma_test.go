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

package pragma

import (
	"testing"

	"github.com/arrowlang/dlc/ast"
	"github.com/arrowlang/dlc/diag"
	"github.com/stretchr/testify/assert"
)

func TestLoadLastWriterWinsWithWarning(t *testing.T) {
	prog := ast.NewProgram()
	prog.Pragmas = []ast.Pragma{
		{Key: "magic-transform", Value: "false"},
		{Key: "magic-transform", Value: "true"},
	}
	r := diag.NewReport()
	s := NewSet()
	s.Load(prog, r)

	assert.True(t, s.Bool("magic-transform", false))
	assert.Len(t, r.Filter(diag.Warning), 1)
}

func TestCLIOverridesPragma(t *testing.T) {
	prog := ast.NewProgram()
	prog.Pragmas = []ast.Pragma{{Key: "jobs", Value: "4"}}
	r := diag.NewReport()
	s := NewSet()
	s.SetCLI("jobs", "8")
	s.Load(prog, r)

	assert.Equal(t, 8, s.Int("jobs", 1))
	assert.Empty(t, r.All())
}

func TestDefaults(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Bool("missing", true))
	assert.Equal(t, 42, s.Int("missing", 42))
	assert.Equal(t, "x", s.String("missing", "x"))
}

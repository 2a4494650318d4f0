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

package diag

import (
	"testing"

	"github.com/arrowlang/dlc/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportHasErrorsOnlyOnErrorSeverity(t *testing.T) {
	r := NewReport()
	r.Warnf(ast.SourceLocation{}, WarnSingleUseVariable.New("x", "foo"))
	assert.False(t, r.HasErrors())

	r.Errorf(ast.SourceLocation{Line: 3}, ErrUndefinedRelation.New("bar"))
	assert.True(t, r.HasErrors())
	require.Len(t, r.All(), 2)
}

func TestReportFilter(t *testing.T) {
	r := NewReport()
	r.Infof(ast.SourceLocation{}, ErrDuplicatePragma.New("x"))
	r.Warnf(ast.SourceLocation{}, WarnUnreachableOutput.New("foo"))
	r.Errorf(ast.SourceLocation{}, ErrUnstratifiable.New("a, b"))

	assert.Len(t, r.Filter(Warning), 2)
	assert.Len(t, r.Filter(Error), 1)
}

func TestReportMerge(t *testing.T) {
	a := NewReport()
	a.Errorf(ast.SourceLocation{}, ErrUndefinedRelation.New("a"))
	b := NewReport()
	b.Errorf(ast.SourceLocation{}, ErrUndefinedRelation.New("b"))

	a.Merge(b)
	assert.Len(t, a.All(), 2)
}

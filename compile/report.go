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
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/arrowlang/dlc/diag"
	"github.com/arrowlang/dlc/transform"
)

// PassStat is one transform.Stats entry reshaped for YAML: field names
// stable across refactors of the transform package's internal Stats shape.
type PassStat struct {
	Pass      string `yaml:"pass"`
	Round     int    `yaml:"round"`
	Before    int    `yaml:"clauses_before"`
	After     int    `yaml:"clauses_after"`
	Changed   bool   `yaml:"changed"`
}

// DebugReport is an opaque, serializable snapshot of one compile run's
// pass-by-pass behavior (SPEC_FULL.md "Configuration": "a DebugReport ...
// serializable via gopkg.in/yaml.v2 for hand-inspection"). The compiler
// never renders it; an external tool consumes the YAML.
type DebugReport struct {
	RelationCount int                    `yaml:"relation_count"`
	ClauseCount   int                    `yaml:"clause_count"`
	SCCCount      int                    `yaml:"scc_count"`
	RecursiveSCCs int                    `yaml:"recursive_sccs"`
	Passes        []PassStat             `yaml:"passes,omitempty"`
	Diagnostics   []string               `yaml:"diagnostics,omitempty"`
	Extensions    map[string]interface{} `yaml:"extensions,omitempty"`
}

func newDebugReport() *DebugReport {
	return &DebugReport{Extensions: make(map[string]interface{})}
}

func (d *DebugReport) recordPasses(stats []transform.Stats) {
	for _, s := range stats {
		d.Passes = append(d.Passes, PassStat{
			Pass: s.PassName, Round: s.Iteration,
			Before: s.ClausesBefore, After: s.ClausesAfter, Changed: s.Changed,
		})
	}
}

func (d *DebugReport) recordDiagnostics(r *diag.Report) {
	for _, diagnostic := range r.All() {
		d.Diagnostics = append(d.Diagnostics, diagnostic.String())
	}
}

// YAML renders the report as a YAML document.
func (d *DebugReport) YAML() ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "compile: marshal debug report")
	}
	return out, nil
}

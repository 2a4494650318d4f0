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

package precedence

import "sort"

// Step is one entry of the relation schedule: the SCC to evaluate next, the
// relations it computes, and the relations that may be freed once this step
// completes (spec.md §4.6, "Relation schedule").
type Step struct {
	SCCIndex   int
	Compute    []string
	Expire     []string
}

// Schedule is a topological order over the SCC DAG, paired with a
// compute/expire liveness schedule suitable for driving the RAM lowering's
// Create/Drop placement (package lower).
type Schedule struct {
	Order []int
	Steps []Step
}

// BuildSchedule computes a topological order over sg's SCC DAG and the
// associated relation liveness schedule. Ties between SCCs with no
// remaining unscheduled predecessors are broken by preferring the SCC
// containing the lowest-indexed relation, which keeps the order stable and
// close to declaration order (spec.md's ordering-cost heuristic: minimize
// the live range, i.e. the distance between a relation's last producer step
// and its last consumer step).
func BuildSchedule(sg *SCCGraph) *Schedule {
	n := len(sg.SCCs)
	indegree := make([]int, n)
	for i, scc := range sg.SCCs {
		indegree[i] = len(scc.Predecessors)
	}

	minRelIndex := make([]int, n)
	relOrder := make(map[string]int)
	idx := 0
	for _, scc := range sg.SCCs {
		for _, r := range scc.Relations {
			if _, ok := relOrder[r]; !ok {
				relOrder[r] = idx
				idx++
			}
		}
	}
	for i, scc := range sg.SCCs {
		best := -1
		for _, r := range scc.Relations {
			if best == -1 || relOrder[r] < best {
				best = relOrder[r]
			}
		}
		minRelIndex[i] = best
	}

	scheduled := make([]bool, n)
	var order []int
	remaining := indegree
	for len(order) < n {
		var ready []int
		for i := 0; i < n; i++ {
			if !scheduled[i] && remaining[i] == 0 {
				ready = append(ready, i)
			}
		}
		sort.Slice(ready, func(a, b int) bool { return minRelIndex[ready[a]] < minRelIndex[ready[b]] })
		pick := ready[0]
		order = append(order, pick)
		scheduled[pick] = true
		for succ := range sg.SCCs[pick].Successors {
			remaining[succ]--
		}
	}

	steps := make([]Step, 0, n)
	lastProducedAt := make(map[string]int)
	for step, sccIdx := range order {
		for _, r := range sg.SCCs[sccIdx].Relations {
			lastProducedAt[r] = step
		}
	}

	expired := make(map[string]bool)
	for step, sccIdx := range order {
		s := Step{SCCIndex: sccIdx, Compute: append([]string(nil), sg.SCCs[sccIdx].Relations...)}
		for rel, produced := range lastProducedAt {
			if produced > step || expired[rel] {
				continue
			}
			if stillNeeded(sg, order, step, rel) {
				continue
			}
			expired[rel] = true
			s.Expire = append(s.Expire, rel)
		}
		sort.Strings(s.Compute)
		sort.Strings(s.Expire)
		steps = append(steps, s)
	}

	return &Schedule{Order: order, Steps: steps}
}

// stillNeeded reports whether relation rel, last produced at schedule
// position step, is read by any SCC scheduled strictly after step.
func stillNeeded(sg *SCCGraph, order []int, step int, rel string) bool {
	owner := sg.SCCOf(rel)
	for i := step + 1; i < len(order); i++ {
		scc := sg.SCCs[order[i]]
		if scc.Predecessors[owner] || order[i] == owner {
			return true
		}
	}
	return false
}

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

// SCC is one strongly connected component of the precedence graph: its
// member relations, its successor/predecessor SCC indices, and whether it
// is recursive (size > 1, or size 1 with a self-loop). Successors are the
// SCCs that read this SCC's relations; Predecessors are the SCCs it reads.
type SCC struct {
	Index       int
	Relations   []string
	Recursive   bool
	HasNegation bool
	HasAggregate bool
	Successors  map[int]bool
	Predecessors map[int]bool
}

// SCCGraph is the Tarjan decomposition of a Graph plus the derived SCC-DAG
// adjacency.
type SCCGraph struct {
	SCCs       []*SCC
	of         map[string]int // relation id -> SCC index
}

// SCCOf returns the SCC index owning relation id.
func (s *SCCGraph) SCCOf(id string) int { return s.of[id] }

type tarjanState struct {
	g        *Graph
	index    int
	indexOf  map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []string
	sccs     [][]string
}

// Decompose runs Tarjan's SCC algorithm over g and builds the SCC-DAG.
func Decompose(g *Graph) *SCCGraph {
	st := &tarjanState{
		g:       g,
		indexOf: make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, v := range g.Vertices {
		if _, visited := st.indexOf[v]; !visited {
			st.strongconnect(v)
		}
	}

	sg := &SCCGraph{of: make(map[string]int)}
	for i, members := range st.sccs {
		scc := &SCC{Index: i, Relations: members, Successors: map[int]bool{}, Predecessors: map[int]bool{}}
		for _, m := range members {
			sg.of[m] = i
		}
		sg.SCCs = append(sg.SCCs, scc)
	}

	for _, e := range g.Edges {
		fromSCC := sg.of[e.From.String()]
		toSCC := sg.of[e.To.String()]
		if fromSCC == toSCC {
			sg.SCCs[fromSCC].Recursive = true
			if e.Kind == EdgeNegative {
				sg.SCCs[fromSCC].HasNegation = true
			}
			if e.Kind == EdgeAggregate {
				sg.SCCs[fromSCC].HasAggregate = true
			}
			continue
		}
		sg.SCCs[toSCC].Successors[fromSCC] = true
		sg.SCCs[fromSCC].Predecessors[toSCC] = true
	}
	for _, scc := range sg.SCCs {
		if len(scc.Relations) > 1 {
			scc.Recursive = true
		}
	}
	return sg
}

// strongconnect is the recursive core of Tarjan's algorithm. The precedence
// graph is bounded by program size (never mutually recursive with user
// input at runtime), so plain recursion is acceptable here, unlike the
// cyclic alias/inline detectors which use an explicit tri-colour DFS
// because they run repeatedly inside a rewrite fixpoint (spec.md §9).
func (st *tarjanState) strongconnect(v string) {
	st.indexOf[v] = st.index
	st.lowlink[v] = st.index
	st.index++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, e := range st.g.adj[v] {
		w := e.To.String()
		if _, visited := st.indexOf[w]; !visited {
			st.strongconnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.indexOf[w] < st.lowlink[v] {
				st.lowlink[v] = st.indexOf[w]
			}
		}
	}

	if st.lowlink[v] == st.indexOf[v] {
		var members []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, members)
	}
}

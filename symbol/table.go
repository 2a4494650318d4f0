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

// Package symbol interns string constants for one compilation run. It is
// the process-wide-but-explicit replacement for the teacher's global
// singletons (spec.md §5, §9 "Global singletons ... explicit context"):
// callers hold a *Table on their compile.Context rather than reach for a
// package-level instance.
package symbol

import "sync"

// ID is a stable handle for an interned string, cheap to compare and to use
// as a map key in place of the raw string.
type ID uint64

// Table interns strings under a mutex (spec.md §5: "The symbol table
// ... serializes insertions under a mutex; lookups are rare after
// parsing"). Reads after the insertion phase ends are expected to dominate,
// but correctness does not depend on that: every method is safe for
// concurrent use.
type Table struct {
	mu     sync.Mutex
	byStr  map[string]ID
	byID   []string
}

// New returns an empty symbol table.
func New() *Table {
	return &Table{byStr: make(map[string]ID)}
}

// Intern returns the stable ID for s, assigning a new one on first sight.
func (t *Table) Intern(s string) ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byStr[s]; ok {
		return id
	}
	id := ID(len(t.byID))
	t.byID = append(t.byID, s)
	t.byStr[s] = id
	return id
}

// Lookup returns the interned string for id, or "" and false if nothing was
// ever interned under that ID.
func (t *Table) Lookup(id ID) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if int(id) < 0 || int(id) >= len(t.byID) {
		return "", false
	}
	return t.byID[id], true
}

// Len returns the number of distinct interned strings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

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

// Package diag defines every diagnostic kind the core can raise (spec.md
// §7) and the ErrorReport that accumulates them. Kinds are built with
// gopkg.in/src-d/go-errors.v1's errors.NewKind, the same typed-error
// pattern the teacher's auth package uses for ErrNotAuthorized/
// ErrNoPermission.
package diag

import errors "gopkg.in/src-d/go-errors.v1"

// Shape errors.
var (
	ErrUndefinedRelation   = errors.NewKind("undefined relation: %s")
	ErrArityMismatch       = errors.NewKind("relation %s expects %d arguments, found %d")
	ErrUnderscoreInHead    = errors.NewKind("`_` may not appear in the head of clause %s")
	ErrConstantInFact      = errors.NewKind("fact %s may only contain constants, found %s")
	ErrDuplicateAttribute  = errors.NewKind("relation %s declares attribute %q more than once")
	ErrDuplicateNamespace  = errors.NewKind("name %q is used as both a type and a relation")
	ErrUndefinedType       = errors.NewKind("undefined type: %s")
	ErrEqrelArityMismatch  = errors.NewKind("relation %s is eqrel but does not have arity 2 with identical attribute types")
	ErrRecordInInputRelation = errors.NewKind("input relation %s may not have a record-typed attribute %q")
)

// Typing errors.
var (
	ErrUninferableType          = errors.NewKind("argument in clause %s has no possible type")
	ErrTypeMismatchedConstant   = errors.NewKind("constant %s is not compatible with declared type %s")
	ErrRecordSizeMismatch       = errors.NewKind("record initializer for type %s expects %d elements, found %d")
	ErrUnionBaseKindMismatch    = errors.NewKind("union type %s mixes member base kinds")
)

// Groundedness errors.
var (
	ErrUngroundedHeadVar  = errors.NewKind("variable %q in the head of clause %s is not grounded")
	ErrUngroundedNegation = errors.NewKind("variable %q in negated atom %s is not grounded")
	ErrWitnessLeak        = errors.NewKind("variable %q leaks out of an aggregator's scope in clause %s")
)

// Stratification errors.
var (
	ErrUnstratifiable = errors.NewKind("relations %s form a cycle through negation or aggregation and cannot be stratified")
)

// Inlining errors.
var (
	ErrInlineCycle             = errors.NewKind("relations %s form a cycle of `inline` relations")
	ErrInlineCounter           = errors.NewKind("inline relation %s may not use the `$` counter")
	ErrInlineNegatedIntroduces = errors.NewKind("negated inline atom %s introduces variable %q not present in its head")
	ErrInlineInAggregator      = errors.NewKind("inline relation %s may not be used inside an aggregator")
	ErrInlineNegatedUnderscore = errors.NewKind("negated inline atom %s may not contain `_`")
)

// Plan errors.
var (
	ErrPlanArityMismatch = errors.NewKind("execution plan for clause %s has %d positions, expected %d body atoms")
	ErrPlanNotPermutation = errors.NewKind("execution plan for clause %s is not a permutation of body-atom indices")
)

// Pragma diagnostics (warnings, not errors; see Severity).
var (
	ErrDuplicatePragma   = errors.NewKind("pragma %q is set more than once; the last value wins")
	WarnPragmaNotCoerced = errors.NewKind("%s")
)

// Warnings (informational by default but surfaced at Warning severity).
var (
	WarnSingleUseVariable = errors.NewKind("variable %q is used exactly once in clause %s")
	WarnUnreachableOutput = errors.NewKind("relation %s is unreachable from any output relation")
)

// strategy.go: Resolution strategies composing the Registry's lookups
//
// A ResolutionStrategy is a small, stateless policy object holding only a
// reference to its Registry. Four policies exist: exact-only, fuzzy-only,
// rule-based-only, and best-match (exact, then rule-based, then fuzzy).
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"reflect"
)

// ResolutionStrategy locates the converter for a (source, destination) type
// pair, or nil when no candidate exists.
//
// Strategies are stateless and safe for concurrent use once the registry's
// write phase has completed. The interface is satisfied only by the
// strategies in this package: two-stage rules need to re-enter resolution
// with a bounded depth, which the unexported method carries.
type ResolutionStrategy interface {
	// Resolve returns a converter for src -> dst, or nil if none matches
	// under this policy.
	Resolve(src, dst reflect.Type) ConvFunc

	// resolve is Resolve with the two-stage recursion depth threaded
	// through. Depth 0 is a fresh top-level resolution.
	resolve(src, dst reflect.Type, depth int) ConvFunc
}

// ExactStrategy resolves through the exact table only.
type ExactStrategy struct {
	reg *Registry
}

// NewExactStrategy creates a strategy consulting only exact registrations.
func NewExactStrategy(reg *Registry) *ExactStrategy { return &ExactStrategy{reg: reg} }

// Resolve implements ResolutionStrategy.
func (s *ExactStrategy) Resolve(src, dst reflect.Type) ConvFunc { return s.resolve(src, dst, 0) }

func (s *ExactStrategy) resolve(src, dst reflect.Type, _ int) ConvFunc {
	return s.reg.LookupExact(src, dst)
}

// FuzzyStrategy resolves through the hierarchy walk only.
type FuzzyStrategy struct {
	reg *Registry
}

// NewFuzzyStrategy creates a strategy consulting only the fuzzy ancestor
// walk over the exact table.
func NewFuzzyStrategy(reg *Registry) *FuzzyStrategy { return &FuzzyStrategy{reg: reg} }

// Resolve implements ResolutionStrategy.
func (s *FuzzyStrategy) Resolve(src, dst reflect.Type) ConvFunc { return s.resolve(src, dst, 0) }

func (s *FuzzyStrategy) resolve(src, dst reflect.Type, _ int) ConvFunc {
	return s.reg.LookupFuzzy(src, dst)
}

// RuleBasedStrategy resolves through the rule buckets only.
type RuleBasedStrategy struct {
	reg *Registry
}

// NewRuleBasedStrategy creates a strategy consulting only registered rules.
func NewRuleBasedStrategy(reg *Registry) *RuleBasedStrategy { return &RuleBasedStrategy{reg: reg} }

// Resolve implements ResolutionStrategy.
func (s *RuleBasedStrategy) Resolve(src, dst reflect.Type) ConvFunc { return s.resolve(src, dst, 0) }

func (s *RuleBasedStrategy) resolve(src, dst reflect.Type, depth int) ConvFunc {
	return s.reg.lookupRuleBased(src, dst, s, depth)
}

// BestMatchStrategy is the default policy used by the conversion facade:
// exact registrations first (authoritative and cheapest), then rule-based
// matches (more general than exact, more specific than hierarchy fuzzing),
// then the fuzzy walk (most permissive, tried last so it can never mask a
// more precise registration).
type BestMatchStrategy struct {
	reg *Registry
}

// NewBestMatchStrategy creates the default exact -> rule-based -> fuzzy
// resolution policy.
func NewBestMatchStrategy(reg *Registry) *BestMatchStrategy { return &BestMatchStrategy{reg: reg} }

// Resolve implements ResolutionStrategy.
func (s *BestMatchStrategy) Resolve(src, dst reflect.Type) ConvFunc { return s.resolve(src, dst, 0) }

func (s *BestMatchStrategy) resolve(src, dst reflect.Type, depth int) ConvFunc {
	if fn := s.reg.LookupExact(src, dst); fn != nil {
		return fn
	}
	if fn := s.reg.lookupRuleBased(src, dst, s, depth); fn != nil {
		return fn
	}
	return s.reg.LookupFuzzy(src, dst)
}

// registry.go: Process-wide converter store for the Proteus engine
//
// The Registry owns two collections: an exact-match table keyed by the
// (source, destination) type pair, and an ordered rule collection
// partitioned into the four RuleSubType buckets. It offers three lookup
// strategies (exact, rule-based, fuzzy hierarchy walk) which the
// ResolutionStrategy objects compose into resolution policies.
//
// Lifecycle: a Registry is populated once during single-threaded startup
// and is read-mostly afterwards. Lookups take a shared lock only, so
// unbounded concurrent readers never contend with each other. No entry is
// ever removed during normal operation.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/agilira/go-errors"
)

// maxConversionDepth bounds two-stage conversion chains. A
// FixedSourceAnyDest rule re-enters resolution with its intermediate value;
// mutually-registered rules could otherwise recurse forever.
const maxConversionDepth = 4

// convKey identifies one exact conversion registration.
type convKey struct {
	src reflect.Type
	dst reflect.Type
}

// Registry stores registered conversions and answers lookup queries.
//
// Registration happens during a single-threaded startup phase; afterwards
// the registry must support unbounded concurrent read access. The RWMutex
// keeps registration safe while letting the read phase proceed without
// writer contention.
type Registry struct {
	mu sync.RWMutex

	// exact is the authoritative (source, destination) table.
	exact map[convKey]ConvFunc

	// rules holds the flexible conversions partitioned by sub-type.
	// Bucket order is the RuleSubType evaluation contract; within a bucket
	// the first-registered rule is tried first.
	rules [numRuleSubTypes][]Rule

	// parents records declared direct supertypes for the fuzzy walk.
	parents map[reflect.Type][]reflect.Type

	// ifaceSources lists interface types that appear as exact-table source
	// types, in registration order. The fuzzy walk treats them as implicit
	// ancestors of any type implementing them.
	ifaceSources []reflect.Type

	audit *AuditLogger
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:   make(map[convKey]ConvFunc),
		parents: make(map[reflect.Type][]reflect.Type),
	}
}

// WithAudit attaches an audit logger recording registration events.
// Pass nil to detach. Returns the registry for fluent setup.
func (r *Registry) WithAudit(logger *AuditLogger) *Registry {
	r.mu.Lock()
	r.audit = logger
	r.mu.Unlock()
	return r
}

// RegisterExact inserts an exact (src, dst) conversion.
//
// Precondition: src != dst and fn != nil; registering a converter for an
// identical pair is a programming error (the facade's assignability fast
// path would never consult it). At most one exact entry may exist per pair;
// re-registering a pair silently replaces the previous entry, matching the
// write-once registrar convention rather than guarding it at runtime.
func (r *Registry) RegisterExact(src, dst reflect.Type, fn ConvFunc) {
	if src == nil || dst == nil || fn == nil {
		return
	}

	r.mu.Lock()
	r.exact[convKey{src, dst}] = fn
	if src.Kind() == reflect.Interface && !containsType(r.ifaceSources, src) {
		r.ifaceSources = append(r.ifaceSources, src)
	}
	audit := r.audit
	r.mu.Unlock()

	audit.logRegistration("register_exact", src, dst)
}

// RegisterRule appends a rule to its sub-type bucket, preserving insertion
// order within the bucket (first-registered, first-tried).
func (r *Registry) RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	st := rule.SubType()
	if st < 0 || st >= numRuleSubTypes {
		return
	}

	r.mu.Lock()
	r.rules[st] = append(r.rules[st], rule)
	audit := r.audit
	r.mu.Unlock()

	audit.logRuleRegistration(rule)
}

// RegisterParents declares the direct supertypes of t for the fuzzy
// hierarchy walk, in most-derived-first order. Repeated calls append.
//
// Go's runtime cannot enumerate the interfaces a type satisfies, so the
// ancestor graph is an explicit structure: declare it here, or rely on the
// automatic discovery of interface types already present as exact-table
// sources.
func (r *Registry) RegisterParents(t reflect.Type, parents ...reflect.Type) {
	if t == nil || len(parents) == 0 {
		return
	}
	r.mu.Lock()
	r.parents[t] = append(r.parents[t], parents...)
	r.mu.Unlock()
}

// LookupExact returns the converter registered for the exact (src, dst)
// pair, or nil if none exists. O(1) expected.
func (r *Registry) LookupExact(src, dst reflect.Type) ConvFunc {
	r.mu.RLock()
	fn := r.exact[convKey{src, dst}]
	r.mu.RUnlock()
	return fn
}

// LookupRuleBased returns the first applicable rule's converter, iterating
// the four sub-type buckets in contract order and each bucket in insertion
// order. res is the strategy that invoked the lookup; FixedSourceAnyDest
// rules use it to resolve their intermediate value against dst.
func (r *Registry) LookupRuleBased(src, dst reflect.Type, res ResolutionStrategy) ConvFunc {
	return r.lookupRuleBased(src, dst, res, 0)
}

func (r *Registry) lookupRuleBased(src, dst reflect.Type, res ResolutionStrategy, depth int) ConvFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for st := RuleSubType(0); st < numRuleSubTypes; st++ {
		for _, rule := range r.rules[st] {
			if !rule.CanConvert(src, dst) {
				continue
			}
			if st == FixedSourceAnyDest {
				return r.stagedConverter(rule, dst, res, depth)
			}
			return rule.Apply
		}
	}
	return nil
}

// stagedConverter wraps a FixedSourceAnyDest rule into a two-stage
// converter: apply the rule, then resolve the intermediate value's runtime
// type against the real destination using the same strategy that selected
// the rule. The chain is bounded by maxConversionDepth.
func (r *Registry) stagedConverter(rule Rule, dst reflect.Type, res ResolutionStrategy, depth int) ConvFunc {
	return func(v any) (any, error) {
		mid, err := rule.Apply(v)
		if err != nil || mid == nil {
			return nil, err
		}

		midType := reflect.TypeOf(mid)
		if assignableTo(midType, dst) {
			return mid, nil
		}

		if depth+1 >= maxConversionDepth {
			return nil, errors.New(ErrCodeConversionFailed,
				fmt.Sprintf("conversion chain exceeds %d stages from %s", maxConversionDepth, midType))
		}

		fn := res.resolve(midType, dst, depth+1)
		if fn == nil {
			return nil, errors.New(ErrCodeNoConverter,
				"no converter for intermediate type "+midType.String()).
				WithContext("source_type", midType.String()).
				WithContext("destination_type", dst.String())
		}
		return fn(mid)
	}
}

// LookupFuzzy walks the source type's declared ancestor graph breadth-first
// (most-derived to least-derived), at each ancestor attempting an exact
// lookup against dst. The first hit wins. Only the exact table is consulted;
// rule-based matching never participates in the fuzzy walk.
//
// This lets a converter registered for a supertype serve every subtype
// without a per-subtype registration.
func (r *Registry) LookupFuzzy(src, dst reflect.Type) ConvFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := map[reflect.Type]bool{src: true}
	queue := r.ancestorsLocked(src, visited)

	for len(queue) > 0 {
		ancestor := queue[0]
		queue = queue[1:]

		if fn := r.exact[convKey{ancestor, dst}]; fn != nil {
			return fn
		}
		queue = append(queue, r.ancestorsLocked(ancestor, visited)...)
	}
	return nil
}

// ancestorsLocked returns the unvisited direct ancestors of t: declared
// parents first (registration order), then interface exact-table sources
// that t implements (registration order). Caller must hold at least a read
// lock. The deterministic order makes the fuzzy walk reproducible.
func (r *Registry) ancestorsLocked(t reflect.Type, visited map[reflect.Type]bool) []reflect.Type {
	var out []reflect.Type
	for _, p := range r.parents[t] {
		if !visited[p] {
			visited[p] = true
			out = append(out, p)
		}
	}
	for _, iface := range r.ifaceSources {
		if visited[iface] {
			continue
		}
		if t.Kind() != reflect.Interface && t.Implements(iface) {
			visited[iface] = true
			out = append(out, iface)
		}
	}
	return out
}

// ExactCount returns the number of exact registrations.
func (r *Registry) ExactCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exact)
}

// RuleCount returns the number of registered rules across all buckets.
func (r *Registry) RuleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for st := 0; st < numRuleSubTypes; st++ {
		n += len(r.rules[st])
	}
	return n
}

// ExactEntries returns a snapshot of the exact table as "src -> dst" pairs
// for diagnostics. Order is unspecified.
func (r *Registry) ExactEntries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.exact))
	for k := range r.exact {
		out = append(out, k.src.String()+" -> "+k.dst.String())
	}
	return out
}

// RuleEntries returns a snapshot of the rule collection in evaluation order
// for diagnostics.
func (r *Registry) RuleEntries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for st := RuleSubType(0); st < numRuleSubTypes; st++ {
		for i, rule := range r.rules[st] {
			out = append(out, fmt.Sprintf("%s[%d]", rule.SubType(), i))
		}
	}
	return out
}

func containsType(list []reflect.Type, t reflect.Type) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

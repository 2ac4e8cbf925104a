// rule.go: Conversion rules for the Proteus resolution engine
//
// A Rule is a single conversion function bound to one of four flexible
// matching categories instead of an exact (source, destination) pair.
// The category order is a hard contract of the resolution engine and is
// preserved exactly by the Registry's rule buckets.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"reflect"
)

// RuleSubType identifies the matching category of a conversion rule.
//
// The declared order is the evaluation order of the rule-based lookup:
// when multiple rules could apply to the same (source, destination) pair,
// the rule whose sub-type appears first wins. Within a sub-type, rules are
// tried in registration order.
type RuleSubType int

const (
	// FixedSourceAssignableDest matches when the runtime source type equals
	// the rule's fixed source type and the requested destination type is the
	// rule's destination type or a supertype of it.
	FixedSourceAssignableDest RuleSubType = iota

	// FixedSourceAnyDest matches when the runtime source type equals the
	// rule's fixed source type, regardless of destination. The rule produces
	// an intermediate value which is then itself resolved against the real
	// destination type (two-stage conversion).
	FixedSourceAnyDest

	// AssignableSourceFixedDest matches when the runtime source type is
	// assignable to the rule's source type and the requested destination
	// equals the rule's fixed destination type.
	AssignableSourceFixedDest

	// AnySourceFixedDest matches any runtime source type when the requested
	// destination equals the rule's fixed destination type.
	AnySourceFixedDest

	numRuleSubTypes = iota
)

// String returns the sub-type name for diagnostics and audit events.
func (st RuleSubType) String() string {
	switch st {
	case FixedSourceAssignableDest:
		return "fixed_source_assignable_dest"
	case FixedSourceAnyDest:
		return "fixed_source_any_dest"
	case AssignableSourceFixedDest:
		return "assignable_source_fixed_dest"
	case AnySourceFixedDest:
		return "any_source_fixed_dest"
	default:
		return "unknown"
	}
}

// ConvFunc is a single value-to-value conversion.
//
// A ConvFunc must be total over non-nil inputs. Returning (nil, nil) means
// the converter declines this particular value ("wrong shape of input, not a
// hard error"); the facade reports it as a conversion failure without a
// cause. Returning a non-nil error reports a converter fault, wrapped by the
// facade with full type context. Converter functions must not swallow their
// own errors to produce fallback values; defaulting belongs to the facade.
type ConvFunc func(v any) (any, error)

// Rule is one flexible conversion, tagged with a RuleSubType.
//
// CanConvert is the cheap candidacy test the Registry runs before selecting
// a rule; Apply performs the conversion itself. Implementations must be
// stateless after construction: rules are shared across goroutines once the
// registry's write phase completes.
type Rule interface {
	// SubType returns the matching category of this rule.
	SubType() RuleSubType

	// CanConvert reports whether this rule applies to a conversion from the
	// runtime source type src to the requested destination type dst.
	CanConvert(src, dst reflect.Type) bool

	// Apply converts v. For FixedSourceAnyDest rules the result is an
	// intermediate value subject to further resolution.
	Apply(v any) (any, error)
}

// convRule is the concrete Rule used by the four constructors below.
type convRule struct {
	subType RuleSubType
	src     reflect.Type // fixed or assignable source, nil for any-source
	dst     reflect.Type // fixed or assignable destination, nil for any-dest
	fn      ConvFunc
}

func (r *convRule) SubType() RuleSubType { return r.subType }

func (r *convRule) Apply(v any) (any, error) { return r.fn(v) }

func (r *convRule) CanConvert(src, dst reflect.Type) bool {
	switch r.subType {
	case FixedSourceAssignableDest:
		// The rule's produced value must satisfy the requested destination.
		return src == r.src && r.dst.AssignableTo(dst)
	case FixedSourceAnyDest:
		return src == r.src
	case AssignableSourceFixedDest:
		return dst == r.dst && assignableTo(src, r.src)
	case AnySourceFixedDest:
		return dst == r.dst
	default:
		return false
	}
}

// assignableTo reports whether a value of type src can be used where a value
// of type want is expected, covering both plain assignability and interface
// satisfaction.
func assignableTo(src, want reflect.Type) bool {
	if src == nil || want == nil {
		return false
	}
	if src.AssignableTo(want) {
		return true
	}
	return want.Kind() == reflect.Interface && src.Implements(want)
}

// NewFixedSourceAssignableDestRule creates a rule that converts values whose
// runtime type is exactly src into values of type dst, serving any requested
// destination that dst is assignable to.
func NewFixedSourceAssignableDestRule(src, dst reflect.Type, fn ConvFunc) Rule {
	return &convRule{subType: FixedSourceAssignableDest, src: src, dst: dst, fn: fn}
}

// NewFixedSourceAnyDestRule creates a two-stage rule: values whose runtime
// type is exactly src are converted to an intermediate value, which is then
// resolved against the real destination type by the invoking strategy.
func NewFixedSourceAnyDestRule(src reflect.Type, fn ConvFunc) Rule {
	return &convRule{subType: FixedSourceAnyDest, src: src, fn: fn}
}

// NewAssignableSourceFixedDestRule creates a rule that converts any value
// assignable to src (an "is-a" match, including interface satisfaction) into
// the fixed destination type dst.
func NewAssignableSourceFixedDestRule(src, dst reflect.Type, fn ConvFunc) Rule {
	return &convRule{subType: AssignableSourceFixedDest, src: src, dst: dst, fn: fn}
}

// NewAnySourceFixedDestRule creates a catch-all rule producing the fixed
// destination type dst from any source value.
func NewAnySourceFixedDestRule(dst reflect.Type, fn ConvFunc) Rule {
	return &convRule{subType: AnySourceFixedDest, dst: dst, fn: fn}
}

// proteus: Hierarchy-aware runtime type conversion engine
//
// Philosophy:
// - Minimal dependencies (AGILira ecosystem only: go-errors, go-timecache)
// - Deterministic resolution with a documented precedence order
// - Write-once registry, unbounded concurrent lookups
// - Zero allocations on the assignability fast path
// - Typed, coded failures; defaulting lives in the facade only
//
// Example Usage:
//
//	reg := proteus.NewRegistry()
//	proteus.RegisterDefaults(reg)
//
//	conv := proteus.New(reg)
//	port, err := proteus.To[int](conv, "8080")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"reflect"

	"github.com/agilira/go-errors"
)

// Error codes for Proteus operations
const (
	ErrCodeNilSource        = "PROTEUS_NIL_SOURCE"
	ErrCodeNoConverter      = "PROTEUS_NO_CONVERTER"
	ErrCodeConversionFailed = "PROTEUS_CONVERSION_FAILED"
	ErrCodeInvalidTable     = "PROTEUS_INVALID_TABLE"
	ErrCodeInvalidAudit     = "PROTEUS_INVALID_AUDIT_CONFIG"
	ErrCodeInvalidManager   = "PROTEUS_INVALID_MANAGER_CONFIG"
	ErrCodeBindFailed       = "PROTEUS_BIND_FAILED"
)

// Converter is the public entry point of the conversion engine.
//
// A Converter normalizes destination types, short-circuits identity and
// upcast conversions, invokes the resolved converter function, and maps
// failures to coded errors. It holds no mutable state of its own; all
// methods are safe for concurrent use once the underlying registry's write
// phase has completed.
type Converter struct {
	registry *Registry
	strategy ResolutionStrategy
	audit    *AuditLogger
}

// New creates a Converter over reg using the default BestMatch resolution
// strategy (exact, then rule-based, then fuzzy).
func New(reg *Registry) *Converter {
	return &Converter{
		registry: reg,
		strategy: NewBestMatchStrategy(reg),
	}
}

// WithStrategy returns a Converter sharing the same registry but resolving
// through s. The receiver is not modified, so per-call-site policies are
// cheap:
//
//	exactOnly := conv.WithStrategy(proteus.NewExactStrategy(reg))
func (c *Converter) WithStrategy(s ResolutionStrategy) *Converter {
	return &Converter{registry: c.registry, strategy: s, audit: c.audit}
}

// WithAudit returns a Converter that records conversion failures to logger.
// Successful conversions are never audited on the hot path.
func (c *Converter) WithAudit(logger *AuditLogger) *Converter {
	return &Converter{registry: c.registry, strategy: c.strategy, audit: logger}
}

// Registry returns the registry this converter resolves against.
func (c *Converter) Registry() *Registry { return c.registry }

// Convert converts value to the destination type dst.
//
// A nil source is not allowed here; use ConvertIfNecessary for optional
// sources. Pointer destination types are normalized to their element type
// for resolution (pointer and element are the same destination throughout
// the engine) and the result is re-wrapped before returning.
//
// Failure taxonomy:
//   - ErrCodeNilSource: value is nil
//   - ErrCodeNoConverter: resolution produced no candidate
//   - ErrCodeConversionFailed: a converter was invoked but faulted
//     (cause attached) or declined this particular value (no cause)
func (c *Converter) Convert(value any, dst reflect.Type) (any, error) {
	if dst == nil {
		return nil, errors.New(ErrCodeNoConverter, "nil destination type")
	}
	if value == nil {
		return nil, errors.New(ErrCodeNilSource, "nil source not allowed for destination "+dst.String()).
			WithContext("destination_type", dst.String())
	}

	src := reflect.TypeOf(value)

	// Fast path: the value already satisfies the requested destination.
	// Covers identity and upcast conversions without consulting the registry.
	if assignableTo(src, dst) {
		return value, nil
	}

	norm, wraps := normalizeDestination(dst)
	if assignableTo(src, norm) {
		return boxValue(value, wraps), nil
	}

	fn := c.strategy.Resolve(src, norm)
	if fn == nil {
		c.audit.logConversionFailure(src, dst, "no_converter")
		return nil, errors.New(ErrCodeNoConverter,
			"no converter found for "+src.String()+" -> "+dst.String()).
			WithContext("source_type", src.String()).
			WithContext("destination_type", dst.String())
	}

	out, err := fn(value)
	if err != nil {
		c.audit.logConversionFailure(src, dst, "converter_fault")
		return nil, errors.Wrap(err, ErrCodeConversionFailed,
			"conversion failed for "+src.String()+" -> "+dst.String()).
			WithContext("source_type", src.String()).
			WithContext("destination_type", dst.String())
	}
	if out == nil {
		// The converter declined this particular value. Distinct from "no
		// converter exists": resolution succeeded, the value did not.
		c.audit.logConversionFailure(src, dst, "converter_declined")
		return nil, errors.New(ErrCodeConversionFailed,
			"converter declined value of "+src.String()+" for "+dst.String()).
			WithContext("source_type", src.String()).
			WithContext("destination_type", dst.String())
	}

	return boxValue(out, wraps), nil
}

// ConvertIfNecessary is Convert with an optional source: a nil value yields
// (nil, nil) instead of an error.
func (c *Converter) ConvertIfNecessary(value any, dst reflect.Type) (any, error) {
	if value == nil {
		return nil, nil
	}
	return c.Convert(value, dst)
}

// ConvertOrDefault converts value to dst, substituting def for every
// failure, including a nil source. This is the sole sanctioned place where
// conversion failures are swallowed; converter functions themselves must
// never produce fallback values.
func (c *Converter) ConvertOrDefault(value any, dst reflect.Type, def any) any {
	if value == nil {
		return def
	}
	out, err := c.Convert(value, dst)
	if err != nil {
		return def
	}
	return out
}

// To converts value to the type parameter T through c.
//
// It is the generic convenience over Convert:
//
//	d, err := proteus.To[time.Duration](conv, "1500ms")
func To[T any](c *Converter, value any) (T, error) {
	var zero T
	out, err := c.Convert(value, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	t, ok := out.(T)
	if !ok {
		// A registered converter produced a value of the wrong type.
		return zero, errors.New(ErrCodeConversionFailed,
			"converter produced "+reflect.TypeOf(out).String()+" instead of "+reflect.TypeFor[T]().String()).
			WithContext("destination_type", reflect.TypeFor[T]().String())
	}
	return t, nil
}

// ToOrDefault converts value to T, returning def on any failure.
func ToOrDefault[T any](c *Converter, value any, def T) T {
	out, err := To[T](c, value)
	if err != nil {
		return def
	}
	return out
}

// normalizeDestination strips pointer indirections from dst, returning the
// element type and the chain of pointer types removed (outermost first).
// Pointer and element types are treated as identical destinations, the Go
// analog of treating a primitive and its wrapper as one type.
func normalizeDestination(dst reflect.Type) (reflect.Type, []reflect.Type) {
	var wraps []reflect.Type
	for dst.Kind() == reflect.Pointer {
		wraps = append(wraps, dst)
		dst = dst.Elem()
	}
	return dst, wraps
}

// boxValue re-applies the pointer chain removed by normalizeDestination,
// innermost first, so a conversion resolved against the element type still
// satisfies a pointer destination.
func boxValue(v any, wraps []reflect.Type) any {
	if len(wraps) == 0 {
		return v
	}
	cur := reflect.ValueOf(v)
	for i := len(wraps) - 1; i >= 0; i-- {
		p := reflect.New(wraps[i].Elem())
		p.Elem().Set(cur)
		cur = p
	}
	return cur.Interface()
}

// binder.go - Engine-backed typed binding for loosely-typed maps
//
// This module binds values from a map[string]any (parsed JSON, YAML,
// flags, anything) onto typed Go variables, delegating every coercion to
// the conversion engine instead of hand-rolled switches. The binding
// mechanics keep the zero-reflection design: an unsafe.Pointer target plus
// a compile-time kind discriminator, so the write path never allocates.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"reflect"
	"strings"
	"time"
	"unsafe"
)

// bindKind discriminates the target type for fast switching
type bindKind uint8

const (
	bindString bindKind = iota
	bindInt
	bindInt64
	bindUint64
	bindBool
	bindFloat64
	bindDuration
	bindTime
)

// destTypes maps each bindKind to the destination type handed to the
// engine. Indexed by bindKind.
var destTypes = []reflect.Type{
	stringType,
	reflect.TypeFor[int](),
	reflect.TypeFor[int64](),
	reflect.TypeFor[uint64](),
	boolType,
	reflect.TypeFor[float64](),
	durationType,
	timeType,
}

// binding represents a single binding intent with minimal memory footprint.
//
// The Bind* methods collect intents; Apply processes them in one pass over
// a contiguous slice. The public API is fully type-safe: the unsafe.Pointer
// is only ever dereferenced under the kind recorded alongside it.
type binding struct {
	target   unsafe.Pointer // Raw pointer to target variable
	key      string         // Source key (supports "server.port" nesting)
	defValue any            // Default when the key is absent (nil = zero value)
	kind     bindKind
}

// Binder binds map values onto typed targets through a Converter.
//
// Coercions run through the engine, so everything the registry can convert
// (including application-registered enums and rules) is bindable without
// touching this file.
type Binder struct {
	conv     *Converter
	bindings []binding
	source   map[string]interface{}
	errs     ErrorList
}

// NewBinder creates a binder reading from source and coercing through conv.
func NewBinder(conv *Converter, source map[string]interface{}) *Binder {
	return &Binder{
		conv:     conv,
		bindings: make([]binding, 0, 16), // Pre-allocate for common case
		source:   source,
	}
}

func (b *Binder) bind(target unsafe.Pointer, key string, kind bindKind, def any) *Binder {
	b.bindings = append(b.bindings, binding{target: target, key: key, defValue: def, kind: kind})
	return b
}

// BindString binds a string value with an optional default.
func (b *Binder) BindString(target *string, key string, defaultValue ...string) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindString, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindInt binds an int value with an optional default.
func (b *Binder) BindInt(target *int, key string, defaultValue ...int) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindInt, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindInt64 binds an int64 value with an optional default.
func (b *Binder) BindInt64(target *int64, key string, defaultValue ...int64) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindInt64, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindUint64 binds a uint64 value with an optional default.
func (b *Binder) BindUint64(target *uint64, key string, defaultValue ...uint64) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindUint64, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindBool binds a bool value with an optional default.
func (b *Binder) BindBool(target *bool, key string, defaultValue ...bool) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindBool, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindFloat64 binds a float64 value with an optional default.
func (b *Binder) BindFloat64(target *float64, key string, defaultValue ...float64) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindFloat64, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindDuration binds a time.Duration value with an optional default.
func (b *Binder) BindDuration(target *time.Duration, key string, defaultValue ...time.Duration) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindDuration, def) // #nosec G103 - typed pointer recorded with its kind
}

// BindTime binds a time.Time value with an optional default.
func (b *Binder) BindTime(target *time.Time, key string, defaultValue ...time.Time) *Binder {
	var def any
	if len(defaultValue) > 0 {
		def = defaultValue[0]
	}
	return b.bind(unsafe.Pointer(target), key, bindTime, def) // #nosec G103 - typed pointer recorded with its kind
}

// Apply executes all bindings in a single pass.
//
// Each binding is coerced through the engine; failures accumulate and the
// corresponding targets keep their previous contents. The returned error
// is nil only when every binding succeeded.
func (b *Binder) Apply() error {
	for _, bd := range b.bindings {
		if err := b.applyBinding(bd); err != nil {
			b.errs.AddValue(bd.key, nil, err)
		}
	}
	return b.errs.Err()
}

// applyBinding coerces one value and stores it through the typed pointer.
func (b *Binder) applyBinding(bd binding) error {
	value, exists := b.getValue(bd.key)
	if !exists {
		if bd.defValue == nil {
			return nil // absent key, no default: keep the zero value
		}
		value = bd.defValue
	}

	out, err := b.conv.Convert(value, destTypes[bd.kind])
	if err != nil {
		return err
	}

	switch bd.kind {
	case bindString:
		*(*string)(bd.target) = out.(string)
	case bindInt:
		*(*int)(bd.target) = out.(int)
	case bindInt64:
		*(*int64)(bd.target) = out.(int64)
	case bindUint64:
		*(*uint64)(bd.target) = out.(uint64)
	case bindBool:
		*(*bool)(bd.target) = out.(bool)
	case bindFloat64:
		*(*float64)(bd.target) = out.(float64)
	case bindDuration:
		*(*time.Duration)(bd.target) = out.(time.Duration)
	case bindTime:
		*(*time.Time)(bd.target) = out.(time.Time)
	}
	return nil
}

// getValue retrieves a value with support for nested keys (e.g. "server.port")
func (b *Binder) getValue(key string) (interface{}, bool) {
	if !strings.Contains(key, ".") {
		val, exists := b.source[key]
		return val, exists
	}

	parts := strings.Split(key, ".")
	current := b.source

	for i, part := range parts {
		val, exists := current[part]
		if !exists {
			return nil, false
		}
		if i == len(parts)-1 {
			return val, true
		}
		nested, ok := val.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = nested
	}
	return nil, false
}

// enumcodec.go: Tag-keyed enum round-tripping for the Proteus engine
//
// Enums cross process and storage boundaries as "tag:Variant" strings,
// where the tag is a stable identifier chosen by the application, never a
// language-internal type name. Each enum registers an explicit
// (tag, encode, decode) triple; there is no reflective type loading and no
// global name magic.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"reflect"
	"strings"
)

// EnumCodec carries the explicit encode/decode pair for one enum type.
//
// Encode renders a value as its variant name; Decode resolves a variant
// name back to a value. Both report ok=false for values or names outside
// the enum, which the installed converters translate into a decline.
type EnumCodec struct {
	// Tag is the stable, application-chosen identifier prefixed to the
	// textual form ("color" yields "color:red").
	Tag string

	// Encode returns the variant name for v.
	Encode func(v any) (variant string, ok bool)

	// Decode returns the value for a variant name.
	Decode func(variant string) (v any, ok bool)
}

// RegisterEnum installs the textual round-trip for enumType into r:
// an exact enumType -> string conversion producing "tag:Variant", and an
// exact string -> enumType conversion accepting the same form.
//
// A string with the wrong tag prefix, or a variant unknown to the codec,
// makes the converter decline; it is the value that is wrong, not the
// registration.
func RegisterEnum(r *Registry, enumType reflect.Type, codec EnumCodec) {
	prefix := codec.Tag + ":"

	r.RegisterExact(enumType, stringType, func(v any) (any, error) {
		variant, ok := codec.Encode(v)
		if !ok {
			return nil, nil
		}
		return prefix + variant, nil
	})

	r.RegisterExact(stringType, enumType, func(v any) (any, error) {
		s := v.(string)
		if !strings.HasPrefix(s, prefix) {
			return nil, nil
		}
		out, ok := codec.Decode(s[len(prefix):])
		if !ok {
			return nil, nil
		}
		return out, nil
	})
}

// NewEnumCodec builds an EnumCodec for the common case of a finite variant
// table. The reverse mapping is derived once at construction.
//
//	type Color int
//	const (
//		Red Color = iota
//		Green
//	)
//
//	codec := proteus.NewEnumCodec("color", map[string]Color{
//		"red":   Red,
//		"green": Green,
//	})
//	proteus.RegisterEnum(reg, reflect.TypeFor[Color](), codec)
func NewEnumCodec[E comparable](tag string, variants map[string]E) EnumCodec {
	reverse := make(map[E]string, len(variants))
	for name, val := range variants {
		reverse[val] = name
	}

	return EnumCodec{
		Tag: tag,
		Encode: func(v any) (string, bool) {
			e, ok := v.(E)
			if !ok {
				return "", false
			}
			name, ok := reverse[e]
			return name, ok
		},
		Decode: func(variant string) (any, bool) {
			val, ok := variants[variant]
			if !ok {
				return nil, false
			}
			return val, true
		},
	}
}

// Utility functions for the Proteus CLI
//
// This file provides type-name resolution for destination types and smart
// literal parsing for source values.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agilira/proteus"
)

// destinationTypes maps CLI type names to destination types.
var destinationTypes = map[string]reflect.Type{
	"string":   reflect.TypeFor[string](),
	"bytes":    reflect.TypeFor[[]byte](),
	"bool":     reflect.TypeFor[bool](),
	"int":      reflect.TypeFor[int](),
	"int64":    reflect.TypeFor[int64](),
	"uint64":   reflect.TypeFor[uint64](),
	"float64":  reflect.TypeFor[float64](),
	"duration": reflect.TypeFor[time.Duration](),
	"time":     reflect.TypeFor[time.Time](),
	"url":      reflect.TypeFor[*url.URL](),
	"enum":     reflect.TypeFor[proteus.EnumValue](),
}

// destinationType resolves a CLI type name to its destination type.
func destinationType(name string) (reflect.Type, bool) {
	t, ok := destinationTypes[strings.ToLower(name)]
	return t, ok
}

// knownTypeNames returns the accepted type names, sorted, for error text.
func knownTypeNames() string {
	names := make([]string, 0, len(destinationTypes))
	for name := range destinationTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// parseLiteral turns a command-line literal into a typed source value.
//
// With from == "auto", explicit boolean words and numeric shapes are
// promoted to their Go types; everything else stays a string. ParseBool is
// deliberately not used for detection: it accepts "0"/"1", which should
// remain integers.
func parseLiteral(literal, from string) any {
	switch from {
	case "string":
		return literal
	case "int":
		if n, err := strconv.Atoi(literal); err == nil {
			return n
		}
		return literal
	case "float64":
		if f, err := strconv.ParseFloat(literal, 64); err == nil {
			return f
		}
		return literal
	case "bool":
		if b, err := strconv.ParseBool(literal); err == nil {
			return b
		}
		return literal
	}

	// Auto-detection
	lower := strings.ToLower(literal)
	if lower == "true" || lower == "false" {
		return lower == "true"
	}
	if n, err := strconv.Atoi(literal); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(literal, 64); err == nil {
		return f
	}
	return literal
}

// utils_test.go: CLI helper tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDestinationType(t *testing.T) {
	tests := []struct {
		name string
		want reflect.Type
	}{
		{"string", reflect.TypeFor[string]()},
		{"int", reflect.TypeFor[int]()},
		{"duration", reflect.TypeFor[time.Duration]()},
		{"DURATION", reflect.TypeFor[time.Duration]()}, // case-insensitive
		{"bool", reflect.TypeFor[bool]()},
	}
	for _, tt := range tests {
		got, ok := destinationType(tt.name)
		if !ok {
			t.Errorf("destinationType(%q) not found", tt.name)
			continue
		}
		if got != tt.want {
			t.Errorf("destinationType(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if _, ok := destinationType("quaternion"); ok {
		t.Errorf("Unknown type name must not resolve")
	}
}

func TestKnownTypeNames(t *testing.T) {
	names := knownTypeNames()
	for _, expected := range []string{"string", "int", "duration", "enum"} {
		if !strings.Contains(names, expected) {
			t.Errorf("Expected %q in known type names %q", expected, names)
		}
	}
}

func TestParseLiteralAutoDetection(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"FALSE", false},
		{"42", 42},
		{"-7", -7},
		{"3.25", 3.25},
		{"1500ms", "1500ms"}, // not numeric, stays a string
		{"hello", "hello"},
		{"0", 0}, // integers beat ParseBool's 0/1 acceptance
		{"1", 1},
	}
	for _, tt := range tests {
		if got := parseLiteral(tt.in, "auto"); got != tt.want {
			t.Errorf("parseLiteral(%q, auto) = %v (%T), want %v (%T)", tt.in, got, got, tt.want, tt.want)
		}
	}
}

func TestParseLiteralExplicitFrom(t *testing.T) {
	if got := parseLiteral("42", "string"); got != "42" {
		t.Errorf("Explicit string override failed, got %v (%T)", got, got)
	}
	if got := parseLiteral("42", "float64"); got != 42.0 {
		t.Errorf("Explicit float64 override failed, got %v (%T)", got, got)
	}
	if got := parseLiteral("1", "bool"); got != true {
		t.Errorf("Explicit bool override failed, got %v (%T)", got, got)
	}
	if got := parseLiteral("7", "int"); got != 7 {
		t.Errorf("Explicit int override failed, got %v (%T)", got, got)
	}
}

// rule_test.go: Rule matching category tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"fmt"
	"reflect"
	"testing"
)

func TestRuleSubTypeString(t *testing.T) {
	tests := []struct {
		st   RuleSubType
		want string
	}{
		{FixedSourceAssignableDest, "fixed_source_assignable_dest"},
		{FixedSourceAnyDest, "fixed_source_any_dest"},
		{AssignableSourceFixedDest, "assignable_source_fixed_dest"},
		{AnySourceFixedDest, "any_source_fixed_dest"},
		{RuleSubType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.st.String(); got != tt.want {
			t.Errorf("RuleSubType(%d).String() = %q, want %q", tt.st, got, tt.want)
		}
	}
}

func TestFixedSourceAssignableDestMatching(t *testing.T) {
	srcType := reflect.TypeFor[testID]()
	rule := NewFixedSourceAssignableDestRule(srcType, stringType, func(v any) (any, error) {
		return "ok", nil
	})

	if rule.SubType() != FixedSourceAssignableDest {
		t.Errorf("Wrong sub-type: %v", rule.SubType())
	}
	if !rule.CanConvert(srcType, stringType) {
		t.Errorf("Must match the exact pair")
	}
	// string is assignable to any, so the produced value serves an any
	// destination too.
	if !rule.CanConvert(srcType, reflect.TypeFor[any]()) {
		t.Errorf("Must serve a destination the produced type is assignable to")
	}
	if rule.CanConvert(stringType, stringType) {
		t.Errorf("Must not match a different source type")
	}
	if rule.CanConvert(srcType, boolType) {
		t.Errorf("Must not match an unrelated destination")
	}
}

func TestFixedSourceAnyDestMatching(t *testing.T) {
	srcType := reflect.TypeFor[testID]()
	rule := NewFixedSourceAnyDestRule(srcType, func(v any) (any, error) {
		return "intermediate", nil
	})

	if !rule.CanConvert(srcType, stringType) || !rule.CanConvert(srcType, boolType) {
		t.Errorf("Must match its source against every destination")
	}
	if rule.CanConvert(stringType, boolType) {
		t.Errorf("Must not match a different source type")
	}
}

func TestAssignableSourceFixedDestMatching(t *testing.T) {
	rule := NewAssignableSourceFixedDestRule(stringerType, stringType, func(v any) (any, error) {
		return v.(fmt.Stringer).String(), nil
	})

	durType := reflect.TypeFor[durationStringer]()
	if !rule.CanConvert(durType, stringType) {
		t.Errorf("Interface satisfaction must count as assignability")
	}
	if rule.CanConvert(reflect.TypeFor[testID](), stringType) {
		t.Errorf("Non-implementing source must not match")
	}
	if rule.CanConvert(durType, boolType) {
		t.Errorf("Must not match a different destination")
	}
}

func TestAnySourceFixedDestMatching(t *testing.T) {
	rule := NewAnySourceFixedDestRule(stringType, func(v any) (any, error) {
		return fmt.Sprintf("%v", v), nil
	})

	if !rule.CanConvert(reflect.TypeFor[testID](), stringType) {
		t.Errorf("Must match any source for its destination")
	}
	if rule.CanConvert(reflect.TypeFor[testID](), boolType) {
		t.Errorf("Must not match a different destination")
	}

	out, err := rule.Apply(testID(9))
	if err != nil || out != "9" {
		t.Errorf("Apply produced %v (err %v)", out, err)
	}
}

func TestAssignableToHelper(t *testing.T) {
	if !assignableTo(reflect.TypeFor[durationStringer](), stringerType) {
		t.Errorf("Implementing type must be assignable to its interface")
	}
	if !assignableTo(stringType, stringType) {
		t.Errorf("Identical types must be assignable")
	}
	if assignableTo(stringType, boolType) {
		t.Errorf("Unrelated types must not be assignable")
	}
	if assignableTo(nil, stringType) || assignableTo(stringType, nil) {
		t.Errorf("Nil types must not be assignable")
	}
}

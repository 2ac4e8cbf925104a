// registry_test.go: Registry lookup and ordering tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type testID int

type testLabel string

func TestRegisterExactAndLookup(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()
	dstType := reflect.TypeFor[testLabel]()

	reg.RegisterExact(srcType, dstType, func(v any) (any, error) {
		return testLabel(fmt.Sprintf("id-%d", v.(testID))), nil
	})

	fn := reg.LookupExact(srcType, dstType)
	if fn == nil {
		t.Fatalf("Expected a converter for registered pair")
	}
	out, err := fn(testID(7))
	if err != nil {
		t.Fatalf("Converter failed: %v", err)
	}
	if out != testLabel("id-7") {
		t.Errorf("Expected 'id-7', got %v", out)
	}

	if reg.LookupExact(dstType, srcType) != nil {
		t.Errorf("Reversed pair must not resolve")
	}
}

func TestRegisterExactLastWins(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()

	reg.RegisterExact(srcType, stringType, func(v any) (any, error) { return "first", nil })
	reg.RegisterExact(srcType, stringType, func(v any) (any, error) { return "second", nil })

	if reg.ExactCount() != 1 {
		t.Fatalf("Expected 1 exact entry after re-registration, got %d", reg.ExactCount())
	}
	out, err := reg.LookupExact(srcType, stringType)(testID(0))
	if err != nil {
		t.Fatalf("Converter failed: %v", err)
	}
	if out != "second" {
		t.Errorf("Re-registration must replace the previous entry, got %v", out)
	}
}

func TestRegisterExactRejectsNilArguments(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterExact(nil, stringType, func(v any) (any, error) { return nil, nil })
	reg.RegisterExact(stringType, nil, func(v any) (any, error) { return nil, nil })
	reg.RegisterExact(stringType, boolType, nil)

	if reg.ExactCount() != 0 {
		t.Errorf("Nil arguments must not register, got %d entries", reg.ExactCount())
	}
}

func TestRuleSubTypePrecedence(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()

	// Registered most-permissive first: bucket order, not registration
	// order, must decide.
	reg.RegisterRule(NewAnySourceFixedDestRule(stringType, func(v any) (any, error) {
		return "any_source", nil
	}))
	reg.RegisterRule(NewAssignableSourceFixedDestRule(srcType, stringType, func(v any) (any, error) {
		return "assignable_source", nil
	}))
	reg.RegisterRule(NewFixedSourceAssignableDestRule(srcType, stringType, func(v any) (any, error) {
		return "fixed_source", nil
	}))

	res := NewRuleBasedStrategy(reg)
	fn := reg.LookupRuleBased(srcType, stringType, res)
	if fn == nil {
		t.Fatalf("Expected a rule-based converter")
	}
	out, _ := fn(testID(1))
	if out != "fixed_source" {
		t.Errorf("Expected FixedSourceAssignableDest to win, got %v", out)
	}
}

func TestRuleInsertionOrderWithinBucket(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()

	reg.RegisterRule(NewFixedSourceAssignableDestRule(srcType, stringType, func(v any) (any, error) {
		return "first", nil
	}))
	reg.RegisterRule(NewFixedSourceAssignableDestRule(srcType, stringType, func(v any) (any, error) {
		return "second", nil
	}))

	fn := reg.LookupRuleBased(srcType, stringType, NewRuleBasedStrategy(reg))
	out, _ := fn(testID(1))
	if out != "first" {
		t.Errorf("First-registered rule must win within a bucket, got %v", out)
	}
}

func TestLookupRuleBasedNoMatch(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterRule(NewAnySourceFixedDestRule(stringType, func(v any) (any, error) {
		return "s", nil
	}))

	if fn := reg.LookupRuleBased(stringType, boolType, NewRuleBasedStrategy(reg)); fn != nil {
		t.Errorf("Rule for string destination must not serve bool destination")
	}
}

func TestLookupFuzzyDeclaredParents(t *testing.T) {
	type base struct{ n int }
	type derived struct{ base }

	reg := NewRegistry()
	baseType := reflect.TypeFor[base]()
	derivedType := reflect.TypeFor[derived]()

	reg.RegisterParents(derivedType, baseType)
	reg.RegisterExact(baseType, stringType, func(v any) (any, error) {
		return "via_base", nil
	})

	fn := reg.LookupFuzzy(derivedType, stringType)
	if fn == nil {
		t.Fatalf("Fuzzy walk should reach the declared parent's converter")
	}
	out, _ := fn(derived{})
	if out != "via_base" {
		t.Errorf("Expected 'via_base', got %v", out)
	}
}

func TestLookupFuzzyParentOrder(t *testing.T) {
	type grandparent struct{ a int }
	type parent struct{ grandparent }
	type child struct{ parent }

	reg := NewRegistry()
	gpType := reflect.TypeFor[grandparent]()
	pType := reflect.TypeFor[parent]()
	cType := reflect.TypeFor[child]()

	reg.RegisterParents(cType, pType)
	reg.RegisterParents(pType, gpType)

	// Both ancestors can serve; the nearer one must win.
	reg.RegisterExact(gpType, stringType, func(v any) (any, error) { return "grandparent", nil })
	reg.RegisterExact(pType, stringType, func(v any) (any, error) { return "parent", nil })

	out, _ := reg.LookupFuzzy(cType, stringType)(child{})
	if out != "parent" {
		t.Errorf("Most-derived ancestor must win, got %v", out)
	}
}

func TestLookupFuzzyInterfaceDiscovery(t *testing.T) {
	// An interface appearing as an exact-table source becomes an implicit
	// ancestor of every implementing type, with no RegisterParents call.
	reg := NewRegistry()
	reg.RegisterExact(stringerType, stringType, func(v any) (any, error) {
		return v.(fmt.Stringer).String(), nil
	})

	durType := reflect.TypeFor[durationStringer]()
	fn := reg.LookupFuzzy(durType, stringType)
	if fn == nil {
		t.Fatalf("Fuzzy walk should discover the interface ancestor")
	}
	out, err := fn(durationStringer{})
	if err != nil {
		t.Fatalf("Converter failed: %v", err)
	}
	if out != "1s" {
		t.Errorf("Expected '1s', got %v", out)
	}
}

type durationStringer struct{}

func (durationStringer) String() string { return "1s" }

func TestLookupFuzzyMiss(t *testing.T) {
	reg := NewRegistry()
	if fn := reg.LookupFuzzy(reflect.TypeFor[testID](), stringType); fn != nil {
		t.Errorf("Fuzzy walk over an empty registry must miss")
	}
}

func TestTwoStageConversion(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()

	// testID -> string intermediate, then string -> bool through the exact
	// table, driven by the same strategy that picked the rule.
	reg.RegisterRule(NewFixedSourceAnyDestRule(srcType, func(v any) (any, error) {
		if v.(testID) != 0 {
			return "true", nil
		}
		return "false", nil
	}))
	reg.RegisterExact(stringType, boolType, func(v any) (any, error) {
		return v.(string) == "true", nil
	})

	res := NewBestMatchStrategy(reg)
	fn := res.Resolve(srcType, boolType)
	if fn == nil {
		t.Fatalf("Expected a staged converter")
	}
	out, err := fn(testID(5))
	if err != nil {
		t.Fatalf("Two-stage conversion failed: %v", err)
	}
	if out != true {
		t.Errorf("Expected true, got %v", out)
	}
}

func TestTwoStageIntermediateAssignable(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()

	// The intermediate already satisfies the destination: no second stage.
	reg.RegisterRule(NewFixedSourceAnyDestRule(srcType, func(v any) (any, error) {
		return int(v.(testID)), nil
	}))

	fn := NewRuleBasedStrategy(reg).Resolve(srcType, reflect.TypeFor[int]())
	out, err := fn(testID(3))
	if err != nil {
		t.Fatalf("Staged conversion failed: %v", err)
	}
	if out != 3 {
		t.Errorf("Expected 3, got %v", out)
	}
}

func TestTwoStageNoConverterForIntermediate(t *testing.T) {
	reg := NewRegistry()
	srcType := reflect.TypeFor[testID]()

	reg.RegisterRule(NewFixedSourceAnyDestRule(srcType, func(v any) (any, error) {
		return "intermediate", nil
	}))

	fn := NewRuleBasedStrategy(reg).Resolve(srcType, boolType)
	if fn == nil {
		t.Fatalf("Expected a staged converter")
	}
	_, err := fn(testID(1))
	assertErrorCode(t, err, ErrCodeNoConverter)
}

func TestTwoStageDepthBound(t *testing.T) {
	type s0 string
	type s1 string
	type s2 string
	type s3 string
	type s4 string

	reg := NewRegistry()
	chain := []struct {
		src reflect.Type
		out func() any
	}{
		{reflect.TypeFor[s0](), func() any { return s1("") }},
		{reflect.TypeFor[s1](), func() any { return s2("") }},
		{reflect.TypeFor[s2](), func() any { return s3("") }},
		{reflect.TypeFor[s3](), func() any { return s4("") }},
	}
	for _, link := range chain {
		link := link
		reg.RegisterRule(NewFixedSourceAnyDestRule(link.src, func(v any) (any, error) {
			return link.out(), nil
		}))
	}

	// Nothing converts any sN to bool, so resolution keeps chaining until
	// the depth bound cuts it off with a conversion failure.
	fn := NewRuleBasedStrategy(reg).Resolve(reflect.TypeFor[s0](), boolType)
	if fn == nil {
		t.Fatalf("Expected a staged converter")
	}
	_, err := fn(s0(""))
	assertErrorCode(t, err, ErrCodeConversionFailed)
	if !strings.Contains(err.Error(), "chain exceeds") {
		t.Errorf("Expected depth-bound failure, got: %v", err)
	}
}

func TestRegistryCountsAndEntries(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterExact(stringType, boolType, func(v any) (any, error) { return true, nil })
	reg.RegisterRule(NewAnySourceFixedDestRule(stringType, func(v any) (any, error) { return "", nil }))
	reg.RegisterRule(NewFixedSourceAnyDestRule(boolType, func(v any) (any, error) { return "", nil }))

	if reg.ExactCount() != 1 {
		t.Errorf("Expected 1 exact entry, got %d", reg.ExactCount())
	}
	if reg.RuleCount() != 2 {
		t.Errorf("Expected 2 rules, got %d", reg.RuleCount())
	}

	entries := reg.ExactEntries()
	if len(entries) != 1 || entries[0] != "string -> bool" {
		t.Errorf("Unexpected exact entries: %v", entries)
	}

	ruleEntries := reg.RuleEntries()
	if len(ruleEntries) != 2 {
		t.Fatalf("Expected 2 rule entries, got %d", len(ruleEntries))
	}
	// Evaluation order: the FixedSourceAnyDest bucket precedes
	// AnySourceFixedDest regardless of registration order.
	if !strings.HasPrefix(ruleEntries[0], "fixed_source_any_dest") {
		t.Errorf("Expected fixed_source_any_dest first, got %v", ruleEntries)
	}
}

func TestConcurrentLookups(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)
	conv := New(reg)
	intType := reflect.TypeFor[int]()

	done := make(chan error, 8)
	for g := 0; g < 8; g++ {
		go func() {
			for i := 0; i < 1000; i++ {
				out, err := conv.Convert("42", intType)
				if err != nil {
					done <- err
					return
				}
				if out != 42 {
					done <- fmt.Errorf("got %v", out)
					return
				}
			}
			done <- nil
		}()
	}
	for g := 0; g < 8; g++ {
		if err := <-done; err != nil {
			t.Fatalf("Concurrent lookup failed: %v", err)
		}
	}
}

// integration_test.go: EngineManager assembly tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestEngineManagerDefaults(t *testing.T) {
	manager := NewEngineManager("testapp")

	if manager.Strategy() != "best" {
		t.Errorf("Expected default strategy 'best', got %q", manager.Strategy())
	}
	if manager.AuditEnabled() {
		t.Errorf("Audit must be disabled by default")
	}
	if len(manager.TableFiles()) != 0 {
		t.Errorf("Expected no table files by default, got %v", manager.TableFiles())
	}
}

func TestEngineManagerParseFlags(t *testing.T) {
	manager := NewEngineManager("testapp")

	err := manager.Parse([]string{"--strategy", "exact", "--audit"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if manager.Strategy() != "exact" {
		t.Errorf("Expected strategy 'exact', got %q", manager.Strategy())
	}
	if !manager.AuditEnabled() {
		t.Errorf("Expected audit enabled after --audit")
	}
}

func TestEngineManagerExplicitSetWins(t *testing.T) {
	manager := NewEngineManager("testapp")

	if err := manager.Parse([]string{"--strategy", "exact"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	manager.Set("strategy", "fuzzy")

	if manager.Strategy() != "fuzzy" {
		t.Errorf("Explicit Set must override flags, got %q", manager.Strategy())
	}
}

func TestEngineManagerBuildDefault(t *testing.T) {
	manager := NewEngineManager("testapp")

	conv, closer, err := manager.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer func() { _ = closer() }()

	// The built converter carries the default conversion set.
	out, err := conv.Convert("42", reflect.TypeFor[int]())
	if err != nil || out != 42 {
		t.Errorf("Built converter cannot parse '42': %v (err %v)", out, err)
	}
}

func TestEngineManagerBuildStrategies(t *testing.T) {
	for _, name := range []string{"best", "exact", "fuzzy", "rules"} {
		t.Run(name, func(t *testing.T) {
			manager := NewEngineManager("testapp")
			manager.Set("strategy", name)

			conv, closer, err := manager.Build()
			if err != nil {
				t.Fatalf("Build with strategy %q failed: %v", name, err)
			}
			defer func() { _ = closer() }()
			if conv == nil {
				t.Fatalf("Build returned nil converter")
			}
		})
	}
}

func TestEngineManagerBuildUnknownStrategy(t *testing.T) {
	manager := NewEngineManager("testapp")
	manager.Set("strategy", "psychic")

	_, _, err := manager.Build()
	assertErrorCode(t, err, ErrCodeInvalidManager)
}

func TestEngineManagerBuildWithTables(t *testing.T) {
	manager := NewEngineManager("testapp")
	manager.Set("table", []string{writeTableFile(t, "table.yml", testTableYAML)})

	conv, closer, err := manager.Build()
	if err != nil {
		t.Fatalf("Build with table failed: %v", err)
	}
	defer func() { _ = closer() }()

	out, err := conv.Convert("tier:pro", reflect.TypeFor[EnumValue]())
	if err != nil {
		t.Fatalf("Table-declared enum not wired: %v", err)
	}
	if out.(EnumValue).Variant != "pro" {
		t.Errorf("Expected variant pro, got %+v", out)
	}
}

func TestEngineManagerBuildBadTable(t *testing.T) {
	manager := NewEngineManager("testapp")
	manager.Set("table", []string{filepath.Join(t.TempDir(), "absent.yml")})

	_, _, err := manager.Build()
	assertErrorCode(t, err, ErrCodeInvalidTable)
}

func TestEngineManagerBuildWithAudit(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	manager := NewEngineManager("testapp")
	manager.Set("audit", true)
	manager.Set("audit-output", auditPath)
	manager.Set("audit-verbose", false)

	conv, closer, err := manager.Build()
	if err != nil {
		t.Fatalf("Build with audit failed: %v", err)
	}

	// A failed conversion must land in the audit trail.
	_, _ = conv.Convert(struct{ x int }{}, reflect.TypeFor[chan int]())

	if err := closer(); err != nil {
		t.Fatalf("Closer failed: %v", err)
	}

	events := readAuditEvents(t, auditPath)
	if len(events) != 1 {
		t.Fatalf("Expected 1 audited failure, got %d", len(events))
	}
	if events[0].Event != "conversion_failure" {
		t.Errorf("Expected conversion_failure, got %s", events[0].Event)
	}
}

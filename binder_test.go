// binder_test.go: Engine-backed typed binding tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"reflect"
	"testing"
	"time"
)

func TestBinderBasicTypes(t *testing.T) {
	conv := newTestConverter()
	source := map[string]interface{}{
		"name":    "proteus",
		"port":    "8080",
		"debug":   "true",
		"ratio":   "0.75",
		"timeout": "30s",
		"retries": 3,
	}

	var name string
	var port, retries int
	var debug bool
	var ratio float64
	var timeout time.Duration

	err := NewBinder(conv, source).
		BindString(&name, "name").
		BindInt(&port, "port").
		BindBool(&debug, "debug").
		BindFloat64(&ratio, "ratio").
		BindDuration(&timeout, "timeout").
		BindInt(&retries, "retries").
		Apply()
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if name != "proteus" {
		t.Errorf("Expected name 'proteus', got %q", name)
	}
	if port != 8080 {
		t.Errorf("Expected port 8080, got %d", port)
	}
	if !debug {
		t.Errorf("Expected debug true")
	}
	if ratio != 0.75 {
		t.Errorf("Expected ratio 0.75, got %f", ratio)
	}
	if timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", timeout)
	}
	if retries != 3 {
		t.Errorf("Expected retries 3, got %d", retries)
	}
}

func TestBinderNestedKeys(t *testing.T) {
	conv := newTestConverter()
	source := map[string]interface{}{
		"server": map[string]interface{}{
			"host": "localhost",
			"port": "9090",
		},
	}

	var host string
	var port int
	err := NewBinder(conv, source).
		BindString(&host, "server.host").
		BindInt(&port, "server.port").
		Apply()
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if host != "localhost" || port != 9090 {
		t.Errorf("Expected localhost:9090, got %s:%d", host, port)
	}
}

func TestBinderDefaults(t *testing.T) {
	conv := newTestConverter()
	source := map[string]interface{}{}

	var host string
	var port int
	var timeout time.Duration
	err := NewBinder(conv, source).
		BindString(&host, "host", "0.0.0.0").
		BindInt(&port, "port", 8080).
		BindDuration(&timeout, "timeout", 5*time.Second).
		Apply()
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if host != "0.0.0.0" || port != 8080 || timeout != 5*time.Second {
		t.Errorf("Defaults not applied: %s %d %v", host, port, timeout)
	}
}

func TestBinderAbsentKeyKeepsZeroValue(t *testing.T) {
	conv := newTestConverter()

	var port int
	err := NewBinder(conv, map[string]interface{}{}).
		BindInt(&port, "port").
		Apply()
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if port != 0 {
		t.Errorf("Absent key without default must keep the zero value, got %d", port)
	}
}

func TestBinderAccumulatesErrors(t *testing.T) {
	conv := newTestConverter()
	source := map[string]interface{}{
		"port":  "not-a-number",
		"debug": "not-a-bool",
		"name":  "still-works",
	}

	name := ""
	port := 1234
	debug := false
	err := NewBinder(conv, source).
		BindInt(&port, "port").
		BindBool(&debug, "debug").
		BindString(&name, "name").
		Apply()
	if err == nil {
		t.Fatalf("Expected accumulated binding errors")
	}

	list, ok := err.(*ErrorList)
	if !ok {
		t.Fatalf("Expected *ErrorList, got %T: %v", err, err)
	}
	if list.Len() != 2 {
		t.Errorf("Expected 2 binding failures, got %d: %v", list.Len(), list)
	}

	// Failed targets keep their previous contents; successful ones apply.
	if port != 1234 {
		t.Errorf("Failed binding must not clobber the target, got %d", port)
	}
	if name != "still-works" {
		t.Errorf("Successful binding must still apply, got %q", name)
	}
}

func TestBinderEnumThroughEngine(t *testing.T) {
	// Anything the registry can convert is bindable: the binder itself knows
	// nothing about enums.
	reg := NewRegistry()
	codec := NewEnumCodec("mode", map[string]int{"fast": 0, "safe": 1})
	RegisterEnum(reg, reflect.TypeFor[int](), codec)
	conv := New(reg)

	var mode int
	err := NewBinder(conv, map[string]interface{}{"mode": "mode:safe"}).
		BindInt(&mode, "mode").
		Apply()
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if mode != 1 {
		t.Errorf("Expected mode 1, got %d", mode)
	}
}

func TestBinderMixedSourceTypes(t *testing.T) {
	conv := newTestConverter()
	source := map[string]interface{}{
		"count": 42.0, // JSON numbers decode as float64
		"flag":  1,
	}

	var count int64
	var flag bool
	err := NewBinder(conv, source).
		BindInt64(&count, "count").
		BindBool(&flag, "flag").
		Apply()
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if count != 42 {
		t.Errorf("Expected count 42, got %d", count)
	}
	if !flag {
		t.Errorf("Expected flag true")
	}
}

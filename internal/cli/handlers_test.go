// Command handler tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"testing"
)

func TestConvertCommandRuns(t *testing.T) {
	if err := NewManager().Run([]string{"convert", "1500ms", "duration"}); err != nil {
		t.Fatalf("convert failed: %v", err)
	}
}

func TestConvertCommandUnknownType(t *testing.T) {
	if err := NewManager().Run([]string{"convert", "42", "quaternion"}); err == nil {
		t.Fatalf("Expected an error for an unknown destination type")
	}
}

func TestRegistryInfoCommandRuns(t *testing.T) {
	if err := NewManager().Run([]string{"registry", "info"}); err != nil {
		t.Fatalf("registry info failed: %v", err)
	}
}

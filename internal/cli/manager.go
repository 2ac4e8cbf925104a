// Package cli provides the command-line interface for Proteus conversion
// engine inspection and testing.
//
// This package implements the CLI using the Orpheus framework, providing
// git-style subcommands with minimal allocations on the hot paths.
//
// Architecture:
// - Manager: CLI orchestration and command routing
// - Handlers: individual command implementations
// - Utils: type-name resolution and literal parsing helpers
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0
package cli

import (
	"github.com/agilira/orpheus/pkg/orpheus"
)

// Manager provides CLI operations for the Proteus conversion engine.
type Manager struct {
	app *orpheus.App
}

// NewManager creates a CLI manager with the full command structure
// registered.
func NewManager() *Manager {
	app := orpheus.New("proteus").
		SetDescription("Hierarchy-aware runtime type conversion engine").
		SetVersion("1.0.0")

	manager := &Manager{app: app}

	manager.setupConvertCommand()
	manager.setupRegistryCommands()
	manager.setupAuditCommands()

	return manager
}

// Run executes the CLI application with the provided arguments.
func (m *Manager) Run(args []string) error {
	return m.app.Run(args)
}

// setupConvertCommand configures the 'convert' command.
func (m *Manager) setupConvertCommand() {
	convertCmd := orpheus.NewCommand("convert", "Convert a value to a destination type")
	convertCmd.SetHandler(m.handleConvert)
	convertCmd.AddFlag("from", "f", "auto", "Source literal type (auto|string|int|float64|bool)")
	convertCmd.AddFlag("strategy", "s", "best", "Resolution strategy (exact|fuzzy|rules|best)")
	convertCmd.AddFlag("table", "t", "", "Conversion table file to load")
	convertCmd.AddFlag("default", "d", "", "Fallback literal printed instead of an error")
	m.app.AddCommand(convertCmd)
}

// setupRegistryCommands configures the 'registry' command group.
func (m *Manager) setupRegistryCommands() {
	registryCmd := orpheus.NewCommand("registry", "Inspect the conversion registry")

	listCmd := registryCmd.Subcommand("list", "List registered conversions", m.handleRegistryList)
	listCmd.AddFlag("kind", "k", "all", "Entry kind filter (exact|rules|all)")
	listCmd.AddFlag("strategy", "s", "best", "Resolution strategy (exact|fuzzy|rules|best)")
	listCmd.AddFlag("table", "t", "", "Conversion table file to load")

	infoCmd := registryCmd.Subcommand("info", "Show registry statistics", m.handleRegistryInfo)
	infoCmd.AddFlag("strategy", "s", "best", "Resolution strategy (exact|fuzzy|rules|best)")
	infoCmd.AddFlag("table", "t", "", "Conversion table file to load")

	m.app.AddCommand(registryCmd)
}

// setupAuditCommands configures the 'audit' command group.
func (m *Manager) setupAuditCommands() {
	auditCmd := orpheus.NewCommand("audit", "Audit trail management")

	statsCmd := auditCmd.Subcommand("stats", "Show audit trail statistics", m.handleAuditStats)
	statsCmd.AddFlag("output", "o", "", "Audit store path (.jsonl, .db, or empty for unified store)")

	cleanupCmd := auditCmd.Subcommand("cleanup", "Run audit store maintenance", m.handleAuditCleanup)
	cleanupCmd.AddFlag("output", "o", "", "Audit store path (.jsonl, .db, or empty for unified store)")

	m.app.AddCommand(auditCmd)
}

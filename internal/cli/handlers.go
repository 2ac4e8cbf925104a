// Command handlers for the Proteus CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package cli

import (
	"fmt"
	"sort"

	"github.com/agilira/go-errors"
	"github.com/agilira/orpheus/pkg/orpheus"
	"github.com/agilira/proteus"
)

// handleConvert parses a literal, converts it, and prints the result.
//
// Example:
//
//	proteus convert 1500ms duration
//	proteus convert --from=int 42 string
//	proteus convert --table=enums.yml color:red enum
func (m *Manager) handleConvert(ctx *orpheus.Context) error {
	literal := ctx.GetArg(0)
	typeName := ctx.GetArg(1)
	if literal == "" || typeName == "" {
		return errors.New(proteus.ErrCodeInvalidManager, "usage: convert <value> <type>")
	}

	dst, ok := destinationType(typeName)
	if !ok {
		return errors.New(proteus.ErrCodeInvalidManager,
			fmt.Sprintf("unknown destination type %q (known: %s)", typeName, knownTypeNames()))
	}

	conv, closer, err := m.buildConverter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closer() }()

	value := parseLiteral(literal, ctx.GetFlagString("from"))

	if def := ctx.GetFlagString("default"); def != "" {
		out := conv.ConvertOrDefault(value, dst, def)
		fmt.Printf("%v\n", out)
		return nil
	}

	out, err := conv.Convert(value, dst)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", out)
	return nil
}

// handleRegistryList prints registered conversions, optionally filtered.
func (m *Manager) handleRegistryList(ctx *orpheus.Context) error {
	conv, closer, err := m.buildConverter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closer() }()
	reg := conv.Registry()

	kind := ctx.GetFlagString("kind")
	if kind == "exact" || kind == "all" {
		entries := reg.ExactEntries()
		sort.Strings(entries)
		for _, entry := range entries {
			fmt.Println(entry)
		}
	}
	if kind == "rules" || kind == "all" {
		for _, entry := range reg.RuleEntries() {
			fmt.Println(entry)
		}
	}
	return nil
}

// handleRegistryInfo prints registry statistics.
func (m *Manager) handleRegistryInfo(ctx *orpheus.Context) error {
	conv, closer, err := m.buildConverter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closer() }()
	reg := conv.Registry()

	fmt.Printf("Exact conversions: %d\n", reg.ExactCount())
	fmt.Printf("Rules:             %d\n", reg.RuleCount())
	return nil
}

// handleAuditStats prints audit store statistics.
func (m *Manager) handleAuditStats(ctx *orpheus.Context) error {
	logger, err := m.openAudit(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	stats, err := logger.Stats()
	if err != nil {
		return errors.Wrap(err, proteus.ErrCodeInvalidAudit, "failed to read audit statistics")
	}

	fmt.Printf("Total events: %d\n", stats.TotalEvents)
	fmt.Printf("Store size:   %d bytes\n", stats.StoreSize)
	for level, count := range stats.EventsByLevel {
		fmt.Printf("  %s: %d\n", level, count)
	}
	for event, count := range stats.EventsByEvent {
		fmt.Printf("  %s: %d\n", event, count)
	}
	return nil
}

// handleAuditCleanup runs retention maintenance on the audit store.
func (m *Manager) handleAuditCleanup(ctx *orpheus.Context) error {
	logger, err := m.openAudit(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	if err := logger.Maintenance(); err != nil {
		return errors.Wrap(err, proteus.ErrCodeInvalidAudit, "audit maintenance failed")
	}
	fmt.Println("audit maintenance completed")
	return nil
}

// buildConverter assembles a converter from the command's flags. The
// returned closer shuts down the converter's audit pipeline; callers must
// invoke it when done.
func (m *Manager) buildConverter(ctx *orpheus.Context) (*proteus.Converter, func() error, error) {
	manager := proteus.NewEngineManager("proteus")
	manager.Set("strategy", ctx.GetFlagString("strategy"))
	if table := ctx.GetFlagString("table"); table != "" {
		manager.Set("table", []string{table})
	}

	return manager.Build()
}

// openAudit opens the audit store named by the command's flags.
func (m *Manager) openAudit(ctx *orpheus.Context) (*proteus.AuditLogger, error) {
	cfg := proteus.DefaultAuditConfig()
	cfg.OutputFile = ctx.GetFlagString("output")

	logger, err := proteus.NewAuditLogger(cfg)
	if err != nil {
		return nil, errors.Wrap(err, proteus.ErrCodeInvalidAudit, "failed to open audit store")
	}
	return logger, nil
}

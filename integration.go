// integration.go: Unified setup layer for Proteus + FlashFlags
//
// EngineManager assembles a ready-to-use Converter from flags, environment
// variables and defaults: resolution strategy, audit configuration, and the
// conversion table files to load. It exists so applications embed one call
// chain instead of re-plumbing the registrar sequence by hand.
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"fmt"
	"os"
	"strings"

	flashflags "github.com/agilira/flash-flags"
	"github.com/agilira/go-errors"
)

// EngineManager builds a Converter from flags, env vars and defaults.
//
// Precedence, lowest to highest: built-in defaults, environment variables
// (APPNAME_FLAG_NAME), command-line flags, explicit Set calls.
type EngineManager struct {
	flags   *flashflags.FlagSet
	appName string

	// Explicit overrides (highest precedence)
	values map[string]interface{}
}

// NewEngineManager creates a manager with the standard engine flags
// registered: --strategy, --audit, --audit-output, --audit-verbose, --table.
func NewEngineManager(appName string) *EngineManager {
	m := &EngineManager{
		flags:   flashflags.New(appName),
		appName: appName,
		values:  make(map[string]interface{}),
	}

	m.flags.String("strategy", "best", "Resolution strategy (exact|fuzzy|rules|best)")
	m.flags.Bool("audit", false, "Enable conversion audit logging")
	m.flags.String("audit-output", "", "Audit output path (.jsonl, .db, or empty for unified store)")
	m.flags.Bool("audit-verbose", false, "Audit successful registrations, not only failures")
	m.flags.StringSlice("table", nil, "Conversion table files to load (repeatable)")

	return m
}

// SetDescription sets the application description for help text.
func (m *EngineManager) SetDescription(description string) *EngineManager {
	m.flags.SetDescription(description)
	return m
}

// SetVersion sets the application version for help text.
func (m *EngineManager) SetVersion(version string) *EngineManager {
	m.flags.SetVersion(version)
	return m
}

// Set explicitly overrides a configuration value (highest precedence).
func (m *EngineManager) Set(key string, value interface{}) *EngineManager {
	m.values[key] = value
	return m
}

// Parse parses command-line arguments and binds environment variables.
func (m *EngineManager) Parse(args []string) error {
	m.flags.SetEnvPrefix(strings.ToUpper(m.appName))
	if err := m.flags.Parse(args); err != nil {
		return errors.Wrap(err, ErrCodeInvalidManager, "failed to parse command-line flags")
	}
	return nil
}

// ParseArgs is a convenience method that parses os.Args[1:].
func (m *EngineManager) ParseArgs() error {
	return m.Parse(os.Args[1:])
}

// PrintUsage prints help information for all flags.
func (m *EngineManager) PrintUsage() {
	m.flags.PrintHelp()
}

// Strategy returns the configured strategy name.
func (m *EngineManager) Strategy() string {
	if v, ok := m.values["strategy"].(string); ok {
		return v
	}
	return m.flags.GetString("strategy")
}

// AuditEnabled reports whether audit logging was requested.
func (m *EngineManager) AuditEnabled() bool {
	if v, ok := m.values["audit"].(bool); ok {
		return v
	}
	return m.flags.GetBool("audit")
}

// TableFiles returns the conversion table files to load.
func (m *EngineManager) TableFiles() []string {
	if v, ok := m.values["table"].([]string); ok {
		return v
	}
	return m.flags.GetStringSlice("table")
}

func (m *EngineManager) auditOutput() string {
	if v, ok := m.values["audit-output"].(string); ok {
		return v
	}
	return m.flags.GetString("audit-output")
}

func (m *EngineManager) auditVerbose() bool {
	if v, ok := m.values["audit-verbose"].(bool); ok {
		return v
	}
	return m.flags.GetBool("audit-verbose")
}

// Build assembles the engine: registry with defaults, table files, audit
// logger, strategy. Call after Parse.
//
// The returned closer shuts the audit pipeline down; it is a no-op when
// auditing is disabled.
func (m *EngineManager) Build() (*Converter, func() error, error) {
	reg := NewRegistry()

	var logger *AuditLogger
	if m.AuditEnabled() {
		cfg := DefaultAuditConfig()
		cfg.OutputFile = m.auditOutput()
		cfg.Verbose = m.auditVerbose()

		var err error
		logger, err = NewAuditLogger(cfg)
		if err != nil {
			return nil, nil, errors.Wrap(err, ErrCodeInvalidAudit, "failed to initialize audit logging")
		}
		reg.WithAudit(logger)
	}

	RegisterDefaults(reg)

	if tables := m.TableFiles(); len(tables) > 0 {
		registrar := NewTableRegistrar(reg)
		var errs ErrorList
		for _, path := range tables {
			errs.Add(registrar.LoadFile(path))
		}
		if err := errs.Err(); err != nil {
			if logger != nil {
				_ = logger.Close()
			}
			return nil, nil, err
		}
	}

	conv := New(reg)
	switch m.Strategy() {
	case "best", "":
		// Default strategy already set
	case "exact":
		conv = conv.WithStrategy(NewExactStrategy(reg))
	case "fuzzy":
		conv = conv.WithStrategy(NewFuzzyStrategy(reg))
	case "rules":
		conv = conv.WithStrategy(NewRuleBasedStrategy(reg))
	default:
		if logger != nil {
			_ = logger.Close()
		}
		return nil, nil, errors.New(ErrCodeInvalidManager,
			fmt.Sprintf("unknown resolution strategy %q", m.Strategy()))
	}

	if logger != nil {
		conv = conv.WithAudit(logger)
	}

	closer := func() error {
		if logger != nil {
			return logger.Close()
		}
		return nil
	}
	return conv, closer, nil
}

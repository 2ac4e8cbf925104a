// audit.go: Audit trail system for the Proteus conversion engine
//
// This provides audit logging for registry population and conversion
// failures, giving production deployments a queryable record of which
// conversions exist and which ones fail in the field.
//
// Features:
// - Immutable audit logs with tamper detection
// - Structured events with source/destination type context
// - Performance optimized (disabled logger costs a nil check)
// - Pluggable storage backends (SQLite unified, JSONL fallback)
//
// Copyright (c) 2025 AGILira
// Series: AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"crypto/sha256"
	"fmt"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// AuditLevel represents the severity of audit events
type AuditLevel int

const (
	AuditInfo AuditLevel = iota
	AuditWarn
	AuditCritical
)

func (al AuditLevel) String() string {
	switch al {
	case AuditInfo:
		return "INFO"
	case AuditWarn:
		return "WARN"
	case AuditCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// AuditEvent represents a single auditable event in the conversion engine.
type AuditEvent struct {
	Timestamp       time.Time              `json:"timestamp"`
	Level           AuditLevel             `json:"level"`
	Event           string                 `json:"event"`
	Component       string                 `json:"component"`
	SourceType      string                 `json:"source_type,omitempty"`
	DestinationType string                 `json:"destination_type,omitempty"`
	Detail          string                 `json:"detail,omitempty"`
	ProcessID       int                    `json:"process_id"`
	ProcessName     string                 `json:"process_name"`
	Context         map[string]interface{} `json:"context,omitempty"`
	Checksum        string                 `json:"checksum"` // For tamper detection
}

// AuditConfig configures the audit system
type AuditConfig struct {
	Enabled       bool          `json:"enabled"`
	OutputFile    string        `json:"output_file"`
	MinLevel      AuditLevel    `json:"min_level"`
	BufferSize    int           `json:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval"`

	// Verbose additionally records successful registrations at AuditInfo.
	// Failed conversions are always recorded when the logger is enabled.
	Verbose bool `json:"verbose"`
}

// DefaultAuditConfig returns the default audit configuration with unified
// SQLite storage.
//
// The default uses the unified SQLite audit database, consolidating events
// from every Proteus-enabled process on the host into one queryable store.
// For JSONL output, set OutputFile to a path with a .jsonl extension.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:       true,
		OutputFile:    "", // Empty triggers unified SQLite backend
		MinLevel:      AuditInfo,
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
		Verbose:       true,
	}
}

// AuditLogger provides buffered audit logging with pluggable backends.
//
// The logger buffers events and flushes them in batches, either when the
// buffer fills or on the background flush interval. A nil *AuditLogger is a
// valid, disabled logger: every method is a no-op, which keeps the
// conversion hot path free of conditionals at call sites.
type AuditLogger struct {
	config      AuditConfig
	backend     auditBackend
	buffer      []AuditEvent
	bufferMu    sync.Mutex
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
	processID   int
	processName string
}

// NewAuditLogger creates a new audit logger with automatic backend
// selection: SQLite unified storage when available, JSONL fallback
// otherwise. An explicit .jsonl OutputFile always selects JSONL.
func NewAuditLogger(config AuditConfig) (*AuditLogger, error) {
	backend, err := createAuditBackend(config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit backend: %w", err)
	}

	logger := &AuditLogger{
		config:      config,
		backend:     backend,
		buffer:      make([]AuditEvent, 0, config.BufferSize),
		stopCh:      make(chan struct{}),
		processID:   os.Getpid(),
		processName: processName(),
	}

	if config.FlushInterval > 0 {
		logger.flushTicker = time.NewTicker(config.FlushInterval)
		go logger.flushLoop()
	}

	return logger, nil
}

// Log records an audit event.
func (al *AuditLogger) Log(level AuditLevel, event, srcType, dstType, detail string, context map[string]interface{}) {
	if al == nil || al.backend == nil || !al.config.Enabled || level < al.config.MinLevel {
		return
	}

	// Cached timestamp: audit must not slow the conversion path down.
	timestamp := timecache.CachedTime()

	auditEvent := AuditEvent{
		Timestamp:       timestamp,
		Level:           level,
		Event:           event,
		Component:       "proteus",
		SourceType:      srcType,
		DestinationType: dstType,
		Detail:          detail,
		ProcessID:       al.processID,
		ProcessName:     al.processName,
		Context:         context,
	}
	auditEvent.Checksum = al.generateChecksum(auditEvent)

	al.bufferMu.Lock()
	al.buffer = append(al.buffer, auditEvent)
	if len(al.buffer) >= al.config.BufferSize {
		_ = al.flushBufferUnsafe() // Buffer pressure beats flush errors here
	}
	al.bufferMu.Unlock()
}

// logRegistration records an exact-converter registration (Verbose only).
func (al *AuditLogger) logRegistration(event string, src, dst reflect.Type) {
	if al == nil || !al.config.Verbose {
		return
	}
	al.Log(AuditInfo, event, src.String(), dst.String(), "", nil)
}

// logRuleRegistration records a rule registration (Verbose only).
func (al *AuditLogger) logRuleRegistration(rule Rule) {
	if al == nil || !al.config.Verbose {
		return
	}
	al.Log(AuditInfo, "register_rule", "", "", rule.SubType().String(), nil)
}

// logConversionFailure records a failed conversion attempt.
func (al *AuditLogger) logConversionFailure(src, dst reflect.Type, reason string) {
	if al == nil {
		return
	}
	al.Log(AuditWarn, "conversion_failure", src.String(), dst.String(), reason, nil)
}

// Flush immediately writes all buffered events
func (al *AuditLogger) Flush() error {
	if al == nil {
		return nil
	}
	al.bufferMu.Lock()
	defer al.bufferMu.Unlock()
	return al.flushBufferUnsafe()
}

// Stats returns statistics from the underlying audit backend.
func (al *AuditLogger) Stats() (*AuditStoreStats, error) {
	if al == nil || al.backend == nil {
		return nil, fmt.Errorf("audit logger is not initialized")
	}
	if err := al.Flush(); err != nil {
		return nil, err
	}
	return al.backend.GetStats()
}

// Maintenance runs backend maintenance (retention cleanup, optimization).
func (al *AuditLogger) Maintenance() error {
	if al == nil || al.backend == nil {
		return nil
	}
	return al.backend.Maintenance()
}

// Close gracefully shuts down the audit logger. Safe to call multiple
// times; only the first call shuts the pipeline down.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	var err error
	al.closeOnce.Do(func() {
		close(al.stopCh)
		if al.flushTicker != nil {
			al.flushTicker.Stop()
		}

		if flushErr := al.Flush(); flushErr != nil {
			err = fmt.Errorf("failed to flush audit logger during close: %w", flushErr)
			return
		}

		if al.backend != nil {
			if closeErr := al.backend.Close(); closeErr != nil {
				err = fmt.Errorf("failed to close audit backend: %w", closeErr)
			}
		}
	})
	return err
}

// flushLoop runs the background flush process
func (al *AuditLogger) flushLoop() {
	for {
		select {
		case <-al.flushTicker.C:
			_ = al.Flush() // Background flush errors are not actionable here
		case <-al.stopCh:
			return
		}
	}
}

// flushBufferUnsafe writes buffer to backend storage (caller must hold bufferMu).
func (al *AuditLogger) flushBufferUnsafe() error {
	if len(al.buffer) == 0 {
		return nil
	}

	if err := al.backend.Write(al.buffer); err != nil {
		return fmt.Errorf("failed to write audit events to backend: %w", err)
	}

	al.buffer = al.buffer[:0]
	return nil
}

// generateChecksum creates a tamper-detection checksum using SHA-256
func (al *AuditLogger) generateChecksum(event AuditEvent) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		event.Timestamp.Format(time.RFC3339Nano),
		event.Event, event.SourceType, event.DestinationType, event.Detail)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

func processName() string {
	if len(os.Args) > 0 {
		return os.Args[0]
	}
	return "proteus"
}

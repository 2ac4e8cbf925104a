// audit_backend.go: Storage backends for the Proteus audit system
//
// This file defines the pluggable backend architecture for audit logging.
// Two backends exist: a unified SQLite database (default, queryable,
// WAL-mode) and a JSONL file (grep-able, ships cleanly to log
// aggregators). Selection degrades gracefully: SQLite first, JSONL
// fallback, so audit logging never prevents engine startup.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package proteus

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// auditBackend abstracts the audit storage mechanism so the logger can
// switch between SQLite and JSONL (or future stores) without API changes.
// The contract is deliberately minimal: Write, Flush, Close, Maintenance,
// GetStats.
type auditBackend interface {
	// Write persists a batch of audit events. Must be safe for concurrent use.
	Write(events []AuditEvent) error

	// Flush commits pending writes to durable storage.
	Flush() error

	// Close releases resources; the backend must not be used afterwards.
	Close() error

	// Maintenance performs backend-specific upkeep (retention cleanup,
	// optimization). JSONL files are self-maintaining.
	Maintenance() error

	// GetStats returns statistics about the stored audit trail.
	GetStats() (*AuditStoreStats, error)
}

// createAuditBackend selects the backend for config: explicit .jsonl output
// means JSONL, everything else tries the unified SQLite store first and
// falls back to JSONL.
func createAuditBackend(config AuditConfig) (auditBackend, error) {
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".jsonl" {
		return newJSONLBackend(config)
	}

	backend, err := newSQLiteBackend(config)
	if err == nil {
		return backend, nil
	}

	jsonlBackend, jsonlErr := newJSONLBackend(config)
	if jsonlErr != nil {
		return nil, fmt.Errorf("all audit backends failed - SQLite: %w, JSONL: %v", err, jsonlErr)
	}
	return jsonlBackend, nil
}

// unifiedAuditPath is the host-wide SQLite database consolidating audit
// events from every Proteus-enabled process.
func unifiedAuditPath() string {
	return filepath.Join(os.TempDir(), "proteus", "conversion-audit.db")
}

// unifiedJSONLPath is the degradation target when the SQLite store cannot
// open and no explicit output path was configured.
func unifiedJSONLPath() string {
	return filepath.Join(os.TempDir(), "proteus", "conversion-audit.jsonl")
}

// sqliteAuditBackend implements auditBackend on a WAL-mode SQLite database.
type sqliteAuditBackend struct {
	db         *sql.DB
	dbPath     string
	sourceFile string // Original OutputFile, tracked per event for correlation
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	closed     bool
}

// newSQLiteBackend opens (or creates) the audit database, migrates the
// schema, and prepares the batch insert statement.
func newSQLiteBackend(config AuditConfig) (*sqliteAuditBackend, error) {
	dbPath := unifiedAuditPath()
	if config.OutputFile != "" && filepath.Ext(config.OutputFile) == ".db" {
		// Explicit .db paths are respected (tests, custom deployments).
		dbPath = config.OutputFile
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create audit database directory: %w", err)
	}

	// WAL keeps writers from ever blocking the engine's readers; NORMAL
	// sync is the right durability trade for an audit trail.
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_cache_size=1000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	backend := &sqliteAuditBackend{
		db:         db,
		dbPath:     dbPath,
		sourceFile: config.OutputFile,
	}

	if err := backend.ensureSchema(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to prepare audit statements: %w", err)
	}

	// Opportunistic cleanup; maintenance failures never block startup.
	_ = backend.Maintenance()

	return backend, nil
}

// ensureSchema creates or migrates the audit schema.
//
// Versions:
//   - v1: conversion_events table and basic indexes
//   - v2: composite indexes for type-pair queries (current)
func (s *sqliteAuditBackend) ensureSchema() error {
	const currentSchemaVersion = 2

	createSchemaInfoSQL := `
	CREATE TABLE IF NOT EXISTS schema_info (
		version INTEGER PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(createSchemaInfoSQL); err != nil {
		return fmt.Errorf("failed to create schema_info table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&version)
	if err != nil {
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check schema version: %w", err)
		}
		version = 0
	}

	if version < currentSchemaVersion {
		if err := s.migrateSchema(version, currentSchemaVersion); err != nil {
			return fmt.Errorf("schema migration from v%d to v%d failed: %w", version, currentSchemaVersion, err)
		}
		if _, err := s.db.Exec(
			"INSERT OR REPLACE INTO schema_info (version, updated_at) VALUES (?, CURRENT_TIMESTAMP)",
			currentSchemaVersion); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	return nil
}

// migrateSchema applies incremental, transaction-wrapped migrations.
func (s *sqliteAuditBackend) migrateSchema(oldVersion, newVersion int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for version := oldVersion; version < newVersion; version++ {
		switch version {
		case 0:
			err = s.migrateToV1(tx)
		case 1:
			err = s.migrateToV2(tx)
		default:
			err = fmt.Errorf("unknown migration path from version %d", version)
		}
		if err != nil {
			return fmt.Errorf("migration from v%d failed: %w", version, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}
	return nil
}

// migrateToV1 creates the conversion event table.
func (s *sqliteAuditBackend) migrateToV1(tx *sql.Tx) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS conversion_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		level TEXT NOT NULL,
		event TEXT NOT NULL,
		component TEXT NOT NULL,

		-- Conversion context
		source_type TEXT,
		destination_type TEXT,
		detail TEXT,

		-- Source tracking for multi-process correlation
		original_output_file TEXT NOT NULL,
		process_id INTEGER NOT NULL,
		process_name TEXT NOT NULL,

		context TEXT, -- JSON blob for flexible metadata
		checksum TEXT,

		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := tx.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create conversion_events table: %w", err)
	}

	basicIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_conv_timestamp ON conversion_events(timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_conv_level ON conversion_events(level)",
		"CREATE INDEX IF NOT EXISTS idx_conv_event ON conversion_events(event)",
		"CREATE INDEX IF NOT EXISTS idx_conv_created_at ON conversion_events(created_at)",
	}
	for _, indexSQL := range basicIndexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create basic index: %w", err)
		}
	}
	return nil
}

// migrateToV2 adds composite indexes for the common "which pairs fail most"
// query patterns.
func (s *sqliteAuditBackend) migrateToV2(tx *sql.Tx) error {
	compositeIndexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_conv_pair ON conversion_events(source_type, destination_type)",
		"CREATE INDEX IF NOT EXISTS idx_conv_event_time ON conversion_events(event, timestamp)",
		"CREATE INDEX IF NOT EXISTS idx_conv_level_time ON conversion_events(level, created_at)",
	}
	for _, indexSQL := range compositeIndexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create composite index: %w", err)
		}
	}
	return nil
}

// Maintenance cleans events beyond the retention window and optimizes the
// database. Safe to call periodically in production.
func (s *sqliteAuditBackend) Maintenance() error {
	const defaultRetentionDays = 90

	_, err := s.db.Exec(
		"DELETE FROM conversion_events WHERE created_at < datetime('now', '-' || ? || ' days')",
		defaultRetentionDays)
	if err != nil {
		return fmt.Errorf("failed to cleanup old audit events: %w", err)
	}

	for _, task := range []string{"PRAGMA optimize", "PRAGMA wal_checkpoint(FULL)"} {
		if _, err := s.db.Exec(task); err != nil {
			continue // Non-critical optimization
		}
	}
	return nil
}

// prepareStatements prepares the batch insert statement, avoiding SQL
// parsing overhead on every flush.
func (s *sqliteAuditBackend) prepareStatements() error {
	insertSQL := `
	INSERT INTO conversion_events (
		timestamp, level, event, component,
		source_type, destination_type, detail,
		original_output_file, process_id, process_name,
		context, checksum
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := s.db.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	s.insertStmt = stmt
	return nil
}

// AuditStoreStats represents statistics about the stored audit trail.
type AuditStoreStats struct {
	TotalEvents   int64            `json:"total_events"`
	EventsByLevel map[string]int64 `json:"events_by_level"`
	EventsByEvent map[string]int64 `json:"events_by_event"`
	OldestEvent   *time.Time       `json:"oldest_event"`
	NewestEvent   *time.Time       `json:"newest_event"`
	StoreSize     int64            `json:"store_size_bytes"`
	SchemaVersion int              `json:"schema_version"`
}

// GetStats returns comprehensive statistics about the audit database.
func (s *sqliteAuditBackend) GetStats() (*AuditStoreStats, error) {
	stats := &AuditStoreStats{
		EventsByLevel: make(map[string]int64),
		EventsByEvent: make(map[string]int64),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM conversion_events").Scan(&stats.TotalEvents); err != nil {
		return nil, fmt.Errorf("failed to get total events count: %w", err)
	}

	if err := s.countGrouped("level", stats.EventsByLevel); err != nil {
		return nil, err
	}
	if err := s.countGrouped("event", stats.EventsByEvent); err != nil {
		return nil, err
	}

	var oldestStr, newestStr sql.NullString
	err := s.db.QueryRow(
		"SELECT MIN(created_at), MAX(created_at) FROM conversion_events").Scan(&oldestStr, &newestStr)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get event time range: %w", err)
	}
	if oldestStr.Valid {
		if oldest, err := time.Parse("2006-01-02 15:04:05", oldestStr.String); err == nil {
			stats.OldestEvent = &oldest
		}
	}
	if newestStr.Valid {
		if newest, err := time.Parse("2006-01-02 15:04:05", newestStr.String); err == nil {
			stats.NewestEvent = &newest
		}
	}

	if err := s.db.QueryRow("SELECT version FROM schema_info ORDER BY version DESC LIMIT 1").Scan(&stats.SchemaVersion); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.StoreSize = info.Size()
	}

	return stats, nil
}

func (s *sqliteAuditBackend) countGrouped(column string, into map[string]int64) error {
	rows, err := s.db.Query("SELECT " + column + ", COUNT(*) FROM conversion_events GROUP BY " + column)
	if err != nil {
		return fmt.Errorf("failed to get events by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan %s stats: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

// Write persists a batch of audit events inside one transaction.
func (s *sqliteAuditBackend) Write(events []AuditEvent) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("cannot write to closed SQLite audit backend")
	}
	s.mu.RUnlock()

	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txStmt := tx.Stmt(s.insertStmt)
	defer func() { _ = txStmt.Close() }()

	for _, event := range events {
		if err = s.insertEvent(txStmt, event); err != nil {
			return fmt.Errorf("failed to insert audit event: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}
	return nil
}

func (s *sqliteAuditBackend) insertEvent(stmt *sql.Stmt, event AuditEvent) error {
	contextJSON := ""
	if event.Context != nil {
		data, err := json.Marshal(event.Context)
		if err != nil {
			return fmt.Errorf("failed to serialize context: %w", err)
		}
		contextJSON = string(data)
	}

	_, err := stmt.Exec(
		event.Timestamp.Format(time.RFC3339Nano),
		event.Level.String(),
		event.Event,
		event.Component,
		event.SourceType,
		event.DestinationType,
		event.Detail,
		s.sourceFile,
		event.ProcessID,
		event.ProcessName,
		contextJSON,
		event.Checksum,
	)
	return err
}

// Flush forces a WAL checkpoint so recent transactions are durable.
func (s *sqliteAuditBackend) Flush() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to flush SQLite audit backend: %w", err)
	}
	return nil
}

// Close flushes pending WAL data and releases the database connection.
// Safe to call multiple times.
func (s *sqliteAuditBackend) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	var errs []error

	// Final flush outside the write lock so Flush can take its read lock.
	s.mu.Unlock()
	if err := s.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush audit backend during close: %w", err))
	}
	s.mu.Lock()

	if s.insertStmt != nil {
		if err := s.insertStmt.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close insert statement: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	s.closed = true

	if len(errs) > 0 {
		return fmt.Errorf("errors closing SQLite audit backend: %v", errs)
	}
	return nil
}

// jsonlAuditBackend implements auditBackend on an append-only JSONL file:
// one JSON object per line, human-readable and trivially shippable.
type jsonlAuditBackend struct {
	file       *os.File
	sourceFile string
	mu         sync.Mutex
	closed     bool
}

func newJSONLBackend(config AuditConfig) (*jsonlAuditBackend, error) {
	path := config.OutputFile
	if path == "" {
		path = unifiedJSONLPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create JSONL audit log directory: %w", err)
	}

	// Owner read/write only: audit trails are sensitive.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSONL audit log file: %w", err)
	}

	return &jsonlAuditBackend{file: file, sourceFile: path}, nil
}

// Write appends each event as one JSON line.
func (j *jsonlAuditBackend) Write(events []AuditEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return fmt.Errorf("cannot write to closed JSONL audit backend")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize audit event: %w", err)
		}
		if _, err := j.file.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write audit event to JSONL: %w", err)
		}
	}
	return nil
}

// Flush fsyncs the JSONL file.
func (j *jsonlAuditBackend) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync JSONL audit file: %w", err)
	}
	return nil
}

// Maintenance is a no-op; JSONL files are self-maintaining.
func (j *jsonlAuditBackend) Maintenance() error { return nil }

// GetStats returns basic file statistics. Counting events would require a
// full file scan, so only size is reported.
func (j *jsonlAuditBackend) GetStats() (*AuditStoreStats, error) {
	stats := &AuditStoreStats{
		EventsByLevel: make(map[string]int64),
		EventsByEvent: make(map[string]int64),
		SchemaVersion: 1,
	}
	if info, err := os.Stat(j.sourceFile); err == nil {
		stats.StoreSize = info.Size()
	}
	return stats, nil
}

// Close releases the file handle. Safe to call multiple times.
func (j *jsonlAuditBackend) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	var err error
	if j.file != nil {
		err = j.file.Close()
	}
	j.closed = true
	return err
}

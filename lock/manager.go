// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lock provides cross-process mutual exclusion for schema
// migrations, keyed by logical schema name and backed by a durable lock
// table.
//
// # Description
//
// One row per schema name, guarded by a primary key, gives at most one
// live holder per schema. Locks carry a TTL; expiry is lazy - an
// expired row is removed on the next acquire or status check, never by
// a background sweeper - so correctness depends only on comparing
// expires_at, and an abandoned lock self-heals within one TTL.
//
// # Failure Semantics
//
// Contention is a boolean, not an error: a live foreign lock makes
// Acquire return false immediately. Backing-store failures fail closed
// (false plus an error), never silently granted.
//
// # Thread Safety
//
// Manager is safe for concurrent use from any number of goroutines and
// processes sharing the lock table.
package lock

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultLockTimeout bounds how long an abandoned lock can block other
// processes.
const DefaultLockTimeout = 5 * time.Minute

// lockTableDDL creates the lock table idempotently. Executed lazily on
// first use; placeholder rebinding for non-ANSI dialects is the
// caller's connection adapter's job.
const lockTableDDL = `
	CREATE TABLE IF NOT EXISTS migration_locks (
		schema_name       TEXT PRIMARY KEY,
		holder_process_id TEXT NOT NULL,
		acquired_at       TIMESTAMP NOT NULL,
		expires_at        TIMESTAMP NOT NULL,
		lock_data         TEXT
	)`

// LockStatus reports the current holder of a schema lock.
type LockStatus struct {
	IsLocked        bool      `json:"is_locked"`
	HolderProcessID string    `json:"holder_process_id,omitempty"`
	AcquiredAt      time.Time `json:"acquired_at,omitempty"`
}

// holderData is the opaque payload stored in lock_data for operators
// inspecting the lock table directly.
type holderData struct {
	Hostname string `json:"hostname,omitempty"`
	PID      int    `json:"pid"`
	Reason   string `json:"reason,omitempty"`
}

// Manager is a distributed migration lock manager over a lock table.
type Manager struct {
	db       *sql.DB
	holderID string
	ttl      time.Duration
	reason   string
	logger   *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithReason attaches an operator-facing reason to every lock this
// manager acquires.
func WithReason(reason string) ManagerOption {
	return func(m *Manager) { m.reason = reason }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewHolderID mints a process identity for lock ownership. Call once at
// process startup and inject the result; holder identity is explicit,
// never process-global.
func NewHolderID() string {
	return uuid.NewString()
}

// NewManager creates a lock manager.
//
// Inputs:
//
//	db - Connection to the database holding the lock table.
//	holderID - This process's identity, e.g. from NewHolderID().
func NewManager(db *sql.DB, holderID string, opts ...ManagerOption) *Manager {
	m := &Manager{
		db:       db,
		holderID: holderID,
		ttl:      DefaultLockTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AcquireMigrationLock attempts to take the lock for a schema.
//
// Description:
//
//	Single-statement conditional insert: the primary key on schema_name
//	guarantees exactly one winner among concurrent attempts. If the row
//	exists but has expired, it is deleted and the insert retried once.
//	A live foreign lock returns false immediately; callers own their
//	backoff and retry policy.
//
// Outputs:
//
//	bool - True iff this process now holds the lock.
//	error - Non-nil on backing-store failure. Never (true, err).
func (m *Manager) AcquireMigrationLock(ctx context.Context, schemaName string) (bool, error) {
	if schemaName == "" {
		return false, errors.New("schema name is required")
	}
	if err := m.ensureTable(ctx); err != nil {
		return false, err
	}

	acquired, err := m.tryInsert(ctx, schemaName)
	if err != nil {
		recordAcquire("error")
		return false, err
	}
	if !acquired {
		// Lazy expiry: clear a stale row and retry exactly once.
		removed, err := m.deleteExpired(ctx, schemaName)
		if err != nil {
			recordAcquire("error")
			return false, err
		}
		if removed {
			acquired, err = m.tryInsert(ctx, schemaName)
			if err != nil {
				recordAcquire("error")
				return false, err
			}
		}
	}

	if acquired {
		recordAcquire("acquired")
		m.logger.Debug("migration lock acquired",
			"schema", schemaName,
			"holder", m.holderID,
			"ttl", m.ttl)
		return true, nil
	}
	recordAcquire("contended")
	m.logger.Debug("migration lock contended",
		"schema", schemaName)
	return false, nil
}

// tryInsert performs the atomic insert-if-absent.
func (m *Manager) tryInsert(ctx context.Context, schemaName string) (bool, error) {
	now := time.Now().UTC()
	data, err := json.Marshal(holderData{
		Hostname: hostname(),
		PID:      os.Getpid(),
		Reason:   m.reason,
	})
	if err != nil {
		return false, fmt.Errorf("encoding lock data: %w", err)
	}

	res, err := m.db.ExecContext(ctx, `
		INSERT INTO migration_locks (schema_name, holder_process_id, acquired_at, expires_at, lock_data)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM migration_locks WHERE schema_name = ?)`,
		schemaName, m.holderID, now, now.Add(m.ttl), string(data), schemaName)
	if err != nil {
		// A unique violation in the insert race also lands here: the
		// other process won, which is a loss, not a store failure. The
		// primary key still guarantees a single winner either way, so
		// report the conservative outcome.
		return false, fmt.Errorf("inserting lock row for %s: %w", schemaName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading lock insert result: %w", err)
	}
	return n == 1, nil
}

// deleteExpired removes the row for schemaName only if it has expired.
func (m *Manager) deleteExpired(ctx context.Context, schemaName string) (bool, error) {
	res, err := m.db.ExecContext(ctx, `
		DELETE FROM migration_locks WHERE schema_name = ? AND expires_at <= ?`,
		schemaName, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("removing expired lock for %s: %w", schemaName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading expiry cleanup result: %w", err)
	}
	if n > 0 {
		m.logger.Info("removed expired migration lock",
			"schema", schemaName)
	}
	return n > 0, nil
}

// ReleaseMigrationLock releases a lock this process holds.
//
// Description:
//
//	Deletes the row only when the holder matches. Idempotent: releasing
//	an absent or foreign-held lock is a no-op, not an error.
func (m *Manager) ReleaseMigrationLock(ctx context.Context, schemaName string) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, `
		DELETE FROM migration_locks WHERE schema_name = ? AND holder_process_id = ?`,
		schemaName, m.holderID)
	if err != nil {
		return fmt.Errorf("releasing lock for %s: %w", schemaName, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		recordRelease()
		m.logger.Debug("migration lock released",
			"schema", schemaName)
	}
	return nil
}

// CheckLockStatus reports who holds the schema lock, cleaning up an
// expired row first as a side effect.
func (m *Manager) CheckLockStatus(ctx context.Context, schemaName string) (*LockStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	if _, err := m.deleteExpired(ctx, schemaName); err != nil {
		return nil, err
	}

	row := m.db.QueryRowContext(ctx, `
		SELECT holder_process_id, acquired_at FROM migration_locks WHERE schema_name = ?`,
		schemaName)

	status := &LockStatus{}
	err := row.Scan(&status.HolderProcessID, &status.AcquiredAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return status, nil
	case err != nil:
		return nil, fmt.Errorf("reading lock status for %s: %w", schemaName, err)
	}
	status.IsLocked = true
	return status, nil
}

// WithMigrationLock runs fn while holding the schema lock.
//
// Description:
//
//	Acquires the lock (ErrLockHeld when contended), runs fn, and
//	releases on every exit path including panics. The release uses a
//	context detached from cancellation so a cancelled fn cannot leak
//	the lock until TTL expiry.
func (m *Manager) WithMigrationLock(ctx context.Context, schemaName string, fn func(ctx context.Context) error) error {
	ok, err := m.AcquireMigrationLock(ctx, schemaName)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: schema %s", ErrLockHeld, schemaName)
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if rerr := m.ReleaseMigrationLock(releaseCtx, schemaName); rerr != nil {
			m.logger.Warn("failed to release migration lock; TTL expiry will self-heal",
				"schema", schemaName,
				"error", rerr)
		}
	}()
	return fn(ctx)
}

// ForceReleaseLock removes a schema lock regardless of holder. Operator
// tooling only; normal release paths check holder identity.
func (m *Manager) ForceReleaseLock(ctx context.Context, schemaName string) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx,
		`DELETE FROM migration_locks WHERE schema_name = ?`, schemaName); err != nil {
		return fmt.Errorf("force-releasing lock for %s: %w", schemaName, err)
	}
	m.logger.Warn("migration lock force-released",
		"schema", schemaName)
	return nil
}

// CleanupExpiredLocks removes every expired row and returns the count.
// Optional housekeeping; lazy expiry alone is sufficient for
// correctness.
func (m *Manager) CleanupExpiredLocks(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	res, err := m.db.ExecContext(ctx,
		`DELETE FROM migration_locks WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleaning up expired locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading cleanup result: %w", err)
	}
	if n > 0 {
		m.logger.Info("cleaned up expired migration locks",
			"count", n)
	}
	return int(n), nil
}

// ensureTable creates the lock table if needed. Idempotent and cheap;
// run on every entry point so first use needs no setup ceremony.
func (m *Manager) ensureTable(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, lockTableDDL); err != nil {
		return fmt.Errorf("ensuring lock table: %w", err)
	}
	return nil
}

// hostname returns the local hostname, empty on failure.
func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}

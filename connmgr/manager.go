// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package connmgr allocates pooled database connections for migration
// work with priority-tiered acquisition timeouts, and plans how a batch
// of operations should share the pool.
//
// The underlying *sql.DB pool is assumed thread-safe; the only state
// this package adds is the active-lease registry, guarded by a single
// mutex.
package connmgr

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Priority orders migration work for connection acquisition. Higher
// priorities wait longer before giving up on a saturated pool.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Timeout returns the pool-acquisition timeout for the tier.
func (p Priority) Timeout() time.Duration {
	switch p {
	case PriorityLow:
		return 5 * time.Second
	case PriorityHigh:
		return 30 * time.Second
	case PriorityCritical:
		return 60 * time.Second
	default:
		return 15 * time.Second
	}
}

// String returns the tier name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

// Lease records one active connection for accounting and forced
// cleanup.
type Lease struct {
	Priority   Priority  `json:"priority"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Manager hands out pooled connections and tracks active leases.
type Manager struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	active map[*sql.Conn]Lease
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a connection manager over a shared pool.
func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:     db,
		logger: slog.Default(),
		active: make(map[*sql.Conn]Lease),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetMigrationConnection acquires a pooled connection, blocking up to
// the priority tier's timeout, and records the lease.
//
// Outputs:
//
//	*sql.Conn - Caller must release via ReleaseConnection.
//	error - Acquisition failure or timeout.
func (m *Manager) GetMigrationConnection(ctx context.Context, p Priority) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	conn, err := m.db.Conn(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("acquiring %s priority connection: %w", p, err)
	}

	m.mu.Lock()
	m.active[conn] = Lease{Priority: p, AcquiredAt: time.Now()}
	m.mu.Unlock()

	m.logger.Debug("migration connection acquired",
		"priority", p.String(),
		"active", m.ActiveCount())
	return conn, nil
}

// ReleaseConnection returns a connection to the pool and drops its
// lease. Releasing an untracked connection still closes it.
func (m *Manager) ReleaseConnection(conn *sql.Conn) error {
	if conn == nil {
		return nil
	}
	m.mu.Lock()
	delete(m.active, conn)
	m.mu.Unlock()
	return conn.Close()
}

// ActiveCount returns the number of live leases.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// ActiveLeases returns a snapshot of every live lease.
func (m *Manager) ActiveLeases() []Lease {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Lease, 0, len(m.active))
	for _, l := range m.active {
		out = append(out, l)
	}
	return out
}

// ForceReleaseStale closes every connection leased longer than maxAge
// and returns the count. Accounting backstop for leaked connections;
// well-behaved callers always release their own.
func (m *Manager) ForceReleaseStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var stale []*sql.Conn
	for conn, lease := range m.active {
		if lease.AcquiredAt.Before(cutoff) {
			stale = append(stale, conn)
			delete(m.active, conn)
		}
	}
	m.mu.Unlock()

	for _, conn := range stale {
		_ = conn.Close()
	}
	if len(stale) > 0 {
		m.logger.Warn("force-released stale migration connections",
			"count", len(stale),
			"max_age", maxAge)
	}
	return len(stale)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package connmgr

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/AleutianAI/schemaguard/schema"
)

// OperationExecutor applies one operation over a leased connection.
// Supplied by the orchestrator; this package never generates DDL.
type OperationExecutor func(ctx context.Context, conn *sql.Conn, op schema.Operation) error

// MigrationResult reports the outcome of a batch execution.
type MigrationResult struct {
	Success              bool    `json:"success"`
	OperationsCompleted  int     `json:"operations_completed"`
	TotalOperations      int     `json:"total_operations"`
	ConnectionsUsed      int     `json:"connections_used"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
}

// ExecuteWithPooledConnection runs a batch of operations sequentially
// over pooled connections.
//
// Description:
//
//	Plans the batch with OptimizeConnectionUsage, leases one connection
//	per planned batch slice at the planned priority, and applies
//	operations in order. Execution stops at the first failure; the
//	result reports partial completion with Success=false alongside the
//	causing error. Rolling back previously completed operations is the
//	orchestrator's responsibility.
//
// Outputs:
//
//	*MigrationResult - Always non-nil, even on error.
//	error - The first operation or acquisition failure, nil on success.
func (m *Manager) ExecuteWithPooledConnection(ctx context.Context, ops []schema.Operation, exec OperationExecutor) (*MigrationResult, error) {
	result := &MigrationResult{TotalOperations: len(ops)}
	if exec == nil {
		return result, ErrNoExecutor
	}
	if len(ops) == 0 {
		result.Success = true
		return result, nil
	}

	plan := m.OptimizeConnectionUsage(ops)
	start := time.Now()
	defer func() {
		result.ExecutionTimeSeconds = time.Since(start).Seconds()
	}()

	for offset := 0; offset < len(ops); offset += plan.BatchSize {
		end := offset + plan.BatchSize
		if end > len(ops) {
			end = len(ops)
		}

		conn, err := m.GetMigrationConnection(ctx, plan.Priority)
		if err != nil {
			return result, err
		}
		result.ConnectionsUsed++

		for _, op := range ops[offset:end] {
			if err := exec(ctx, conn, op); err != nil {
				_ = m.ReleaseConnection(conn)
				m.logger.Error("migration operation failed, stopping batch",
					"operation", string(op.Type),
					"table", op.Table,
					"completed", result.OperationsCompleted,
					"total", result.TotalOperations,
					"error", err)
				return result, fmt.Errorf("executing %s on %s: %w", op.Type, op.Table, err)
			}
			result.OperationsCompleted++
		}
		if err := m.ReleaseConnection(conn); err != nil {
			return result, fmt.Errorf("releasing batch connection: %w", err)
		}
	}

	result.Success = result.OperationsCompleted == result.TotalOperations
	return result, nil
}

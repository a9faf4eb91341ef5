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
	"github.com/AleutianAI/schemaguard/schema"
)

// maxBatchConnections caps how many pooled connections one migration
// batch may claim, so a large batch cannot exhaust the pool under
// concurrent migrations.
const maxBatchConnections = 4

// perOperationSeconds is the planning heuristic for one operation.
const perOperationSeconds = 2.0

// ConnectionPlan describes how a batch of operations should use the
// pool.
type ConnectionPlan struct {
	ConnectionCount          int      `json:"connection_count"`
	BatchSize                int      `json:"batch_size"`
	EstimatedDurationSeconds float64  `json:"estimated_duration_seconds"`
	Priority                 Priority `json:"priority"`
}

// OperationPriority maps an operation type to its connection priority:
// destructive drops are CRITICAL, table creation HIGH, everything else
// NORMAL.
func OperationPriority(t schema.OperationType) Priority {
	switch t {
	case schema.OpDropTable, schema.OpDropColumn:
		return PriorityCritical
	case schema.OpCreateTable:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// OptimizeConnectionUsage plans pool usage for a batch of operations.
//
// Description:
//
//	The batch runs at the maximum priority of its operations.
//	ConnectionCount is bounded by the pool size, maxBatchConnections,
//	and the batch length; BatchSize is sized so ConnectionCount times
//	BatchSize covers the batch. Malformed input (empty batch, or an
//	operation with an unknown type) degrades to the safe fallback plan
//	of one connection and a single batch rather than failing.
func (m *Manager) OptimizeConnectionUsage(ops []schema.Operation) ConnectionPlan {
	fallback := ConnectionPlan{
		ConnectionCount:          1,
		BatchSize:                len(ops),
		EstimatedDurationSeconds: float64(len(ops)) * perOperationSeconds,
		Priority:                 PriorityNormal,
	}
	if len(ops) == 0 {
		return fallback
	}

	pri := PriorityLow
	for _, op := range ops {
		if !op.Type.Known() {
			m.logger.Warn("unknown operation type in batch, using fallback plan",
				"operation_type", string(op.Type))
			return fallback
		}
		if p := OperationPriority(op.Type); p > pri {
			pri = p
		}
	}

	count := len(ops)
	if count > maxBatchConnections {
		count = maxBatchConnections
	}
	if poolMax := m.db.Stats().MaxOpenConnections; poolMax > 0 && count > poolMax {
		count = poolMax
	}
	if count < 1 {
		count = 1
	}

	batch := (len(ops) + count - 1) / count

	return ConnectionPlan{
		ConnectionCount:          count,
		BatchSize:                batch,
		EstimatedDurationSeconds: float64(len(ops)) * perOperationSeconds / float64(count),
		Priority:                 pri,
	}
}

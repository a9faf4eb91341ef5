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
	"errors"
	"testing"

	"github.com/AleutianAI/schemaguard/schema"
)

func TestExecuteWithPooledConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("executes every operation in order", func(t *testing.T) {
		m := newTestManager(t)
		ops := opsOf(schema.OpAddColumn, schema.OpCreateIndex, schema.OpAlterColumn)

		var seen []schema.OperationType
		exec := func(ctx context.Context, conn *sql.Conn, op schema.Operation) error {
			// Exercise the leased connection against the real database.
			if err := conn.PingContext(ctx); err != nil {
				return err
			}
			seen = append(seen, op.Type)
			return nil
		}

		result, err := m.ExecuteWithPooledConnection(ctx, ops, exec)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !result.Success {
			t.Error("expected success")
		}
		if result.OperationsCompleted != 3 || result.TotalOperations != 3 {
			t.Errorf("completed %d/%d, want 3/3", result.OperationsCompleted, result.TotalOperations)
		}
		if result.ConnectionsUsed < 1 {
			t.Errorf("connections used = %d, want >= 1", result.ConnectionsUsed)
		}
		for i, typ := range []schema.OperationType{schema.OpAddColumn, schema.OpCreateIndex, schema.OpAlterColumn} {
			if seen[i] != typ {
				t.Errorf("operation %d = %s, want %s", i, seen[i], typ)
			}
		}
		if m.ActiveCount() != 0 {
			t.Errorf("leaked %d connections", m.ActiveCount())
		}
	})

	t.Run("stops at the first failure and reports partial completion", func(t *testing.T) {
		m := newTestManager(t)
		ops := opsOf(schema.OpAddColumn, schema.OpAddColumn, schema.OpAddColumn)

		boom := errors.New("column already exists")
		calls := 0
		exec := func(context.Context, *sql.Conn, schema.Operation) error {
			calls++
			if calls == 2 {
				return boom
			}
			return nil
		}

		result, err := m.ExecuteWithPooledConnection(ctx, ops, exec)
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want the executor failure", err)
		}
		if result.Success {
			t.Error("partial execution reported success")
		}
		if result.OperationsCompleted != 1 {
			t.Errorf("completed = %d, want 1", result.OperationsCompleted)
		}
		if result.TotalOperations != 3 {
			t.Errorf("total = %d, want 3", result.TotalOperations)
		}
		if calls != 2 {
			t.Errorf("executor ran %d times, want 2", calls)
		}
		if m.ActiveCount() != 0 {
			t.Errorf("leaked %d connections", m.ActiveCount())
		}
	})

	t.Run("nil executor is rejected", func(t *testing.T) {
		m := newTestManager(t)
		result, err := m.ExecuteWithPooledConnection(ctx, opsOf(schema.OpAddColumn), nil)
		if !errors.Is(err, ErrNoExecutor) {
			t.Fatalf("err = %v, want ErrNoExecutor", err)
		}
		if result == nil {
			t.Fatal("result must be non-nil even on error")
		}
	})

	t.Run("empty batch succeeds without leasing", func(t *testing.T) {
		m := newTestManager(t)
		exec := func(context.Context, *sql.Conn, schema.Operation) error {
			t.Error("executor ran for an empty batch")
			return nil
		}
		result, err := m.ExecuteWithPooledConnection(ctx, nil, exec)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !result.Success {
			t.Error("expected success for an empty batch")
		}
		if result.ConnectionsUsed != 0 {
			t.Errorf("connections used = %d, want 0", result.ConnectionsUsed)
		}
	})
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fkimpact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/schemaguard/schema"
)

func TestGenerateFKSafeMigrationPlan(t *testing.T) {
	t.Run("single constraint yields drop, change, recreate", func(t *testing.T) {
		c := &fakeCatalog{fks: map[string][]schema.ForeignKeyDependency{
			"accounts": {fk("fk_tx_account", "transactions", "account_id", "accounts", "id",
				schema.ActionNoAction, schema.ActionCascade)},
		}}
		a := newTestAnalyzer(c)

		plan, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Table: "accounts", Column: "id", Type: schema.OpAlterColumn,
		})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 3)

		assert.Equal(t, StepDropConstraint, plan.Steps[0].Type)
		assert.Equal(t, StepModifyColumn, plan.Steps[1].Type)
		assert.Equal(t, StepRecreateConstraint, plan.Steps[2].Type)

		require.NotNil(t, plan.Steps[0].Constraint)
		require.NotNil(t, plan.Steps[2].Constraint)
		assert.Equal(t, "fk_tx_account", plan.Steps[0].Constraint.ConstraintName)
		assert.Equal(t, plan.Steps[0].Constraint.ConstraintName, plan.Steps[2].Constraint.ConstraintName)
		assert.Contains(t, plan.Steps[2].Description, "ON UPDATE CASCADE")

		assert.True(t, plan.RequiresTransaction)
		assert.Equal(t, ImpactHigh, plan.RiskLevel)
	})

	t.Run("no constraints yields a single step", func(t *testing.T) {
		a := newTestAnalyzer(&fakeCatalog{})

		plan, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Table: "audit_log", Column: "note", Type: schema.OpDropColumn,
		})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 1)
		assert.Equal(t, StepDropColumn, plan.Steps[0].Type)
		assert.False(t, plan.RequiresTransaction)
		assert.Equal(t, ImpactMedium, plan.RiskLevel)
	})

	t.Run("every dropped constraint is recreated", func(t *testing.T) {
		c := &fakeCatalog{fks: map[string][]schema.ForeignKeyDependency{
			"users": {
				fk("fk_orders_user", "orders", "user_id", "users", "id",
					schema.ActionRestrict, schema.ActionRestrict),
				fk("fk_sessions_user", "sessions", "user_id", "users", "id",
					schema.ActionCascade, schema.ActionNoAction),
			},
		}}
		a := newTestAnalyzer(c)

		plan, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Table: "users", Column: "id", Type: schema.OpAlterColumn,
		})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 5)

		dropped := map[string]bool{}
		recreated := map[string]bool{}
		for _, s := range plan.Steps {
			switch s.Type {
			case StepDropConstraint:
				dropped[s.Constraint.ConstraintName] = true
			case StepRecreateConstraint:
				recreated[s.Constraint.ConstraintName] = true
			}
		}
		assert.Equal(t, dropped, recreated)
		assert.Len(t, dropped, 2)
	})

	t.Run("duration grows with table size and constraint count", func(t *testing.T) {
		c := &fakeCatalog{fks: map[string][]schema.ForeignKeyDependency{
			"events": {fk("fk_event_type", "event_types", "event_id", "events", "id",
				schema.ActionRestrict, schema.ActionRestrict)},
		}}
		a := newTestAnalyzer(c)

		small, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Table: "events", Column: "id", Type: schema.OpAlterColumn, TableSizeMB: 10,
		})
		require.NoError(t, err)
		large, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Table: "events", Column: "id", Type: schema.OpAlterColumn, TableSizeMB: 4096,
		})
		require.NoError(t, err)

		assert.Greater(t, large.EstimatedDuration, small.EstimatedDuration)
		assert.GreaterOrEqual(t, small.EstimatedDuration,
			baseChangeCost+dropConstraintCost+recreateConstraintCost)
	})

	t.Run("malformed descriptor is rejected", func(t *testing.T) {
		a := newTestAnalyzer(&fakeCatalog{})
		_, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Type: schema.OpDropTable,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrInvalidOperation)
	})

	t.Run("rename maps to its own step type", func(t *testing.T) {
		a := newTestAnalyzer(&fakeCatalog{})
		plan, err := a.GenerateFKSafeMigrationPlan(context.Background(), schema.Operation{
			Table: "users", Column: "email", Type: schema.OpRenameColumn,
		})
		require.NoError(t, err)
		require.Len(t, plan.Steps, 1)
		assert.Equal(t, StepRenameColumn, plan.Steps[0].Type)
	})
}

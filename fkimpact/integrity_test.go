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

func TestValidateReferentialIntegrity(t *testing.T) {
	referenced := &fakeCatalog{fks: map[string][]schema.ForeignKeyDependency{
		"accounts": {fk("fk_tx_account", "transactions", "account_id", "accounts", "id",
			schema.ActionRestrict, schema.ActionRestrict)},
	}}

	t.Run("drop of referenced column is unsafe", func(t *testing.T) {
		a := newTestAnalyzer(referenced)
		v, err := a.ValidateReferentialIntegrity(context.Background(), schema.Operation{
			Table: "accounts", Column: "id", Type: schema.OpDropColumn,
		})
		require.NoError(t, err)
		assert.False(t, v.IsSafe)
		require.Len(t, v.Violations, 1)
		assert.Contains(t, v.Violations[0], "fk_tx_account")
		require.Len(t, v.RecommendedActions, 1)
		assert.Contains(t, v.RecommendedActions[0], "drop dependent constraint")
	})

	t.Run("drop of referenced table is unsafe", func(t *testing.T) {
		a := newTestAnalyzer(referenced)
		v, err := a.ValidateReferentialIntegrity(context.Background(), schema.Operation{
			Table: "accounts", Type: schema.OpDropTable,
		})
		require.NoError(t, err)
		assert.False(t, v.IsSafe)
		assert.NotEmpty(t, v.Violations)
	})

	t.Run("alter suggests widening", func(t *testing.T) {
		a := newTestAnalyzer(referenced)
		v, err := a.ValidateReferentialIntegrity(context.Background(), schema.Operation{
			Table: "accounts", Column: "id", Type: schema.OpAlterColumn,
		})
		require.NoError(t, err)
		assert.False(t, v.IsSafe)
		require.Len(t, v.RecommendedActions, 1)
		assert.Contains(t, v.RecommendedActions[0], "widen")
	})

	t.Run("cascading constraint gets an explicit-cascade recommendation", func(t *testing.T) {
		c := &fakeCatalog{fks: map[string][]schema.ForeignKeyDependency{
			"accounts": {fk("fk_tx_account", "transactions", "account_id", "accounts", "id",
				schema.ActionCascade, schema.ActionNoAction)},
		}}
		a := newTestAnalyzer(c)
		v, err := a.ValidateReferentialIntegrity(context.Background(), schema.Operation{
			Table: "accounts", Column: "id", Type: schema.OpDropColumn,
		})
		require.NoError(t, err)
		assert.False(t, v.IsSafe)
		require.Len(t, v.RecommendedActions, 1)
		assert.Contains(t, v.RecommendedActions[0], "CASCADE")
	})

	t.Run("non-destructive operation is safe with a warning", func(t *testing.T) {
		a := newTestAnalyzer(referenced)
		v, err := a.ValidateReferentialIntegrity(context.Background(), schema.Operation{
			Table: "accounts", Column: "id", Type: schema.OpRenameColumn,
		})
		require.NoError(t, err)
		assert.True(t, v.IsSafe)
		assert.Empty(t, v.Violations)
		assert.NotEmpty(t, v.Warnings)
	})

	t.Run("unreferenced target is safe", func(t *testing.T) {
		a := newTestAnalyzer(&fakeCatalog{})
		v, err := a.ValidateReferentialIntegrity(context.Background(), schema.Operation{
			Table: "audit_log", Type: schema.OpDropTable,
		})
		require.NoError(t, err)
		assert.True(t, v.IsSafe)
		assert.Empty(t, v.Violations)
	})
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema defines the shared domain types for SchemaGuard: the
// operation descriptor supplied by the orchestrator, referential actions,
// foreign key dependencies, and identifier sanitation.
//
// Thread Safety:
//
//	All types in this package are plain values. They carry no internal
//	synchronization and are safe to share once constructed.
package schema

import (
	"strings"
)

// OperationType identifies a schema-altering operation requested by the
// orchestrator.
type OperationType string

const (
	OpDropColumn   OperationType = "drop_column"
	OpDropTable    OperationType = "drop_table"
	OpAlterColumn  OperationType = "alter_column"
	OpRenameColumn OperationType = "rename_column"
	OpAddColumn    OperationType = "add_column"
	OpCreateTable  OperationType = "create_table"
	OpCreateIndex  OperationType = "create_index"
	OpDropIndex    OperationType = "drop_index"
)

// Known reports whether t is one of the operation types this module
// understands. Unknown types are rejected with a ValidationError rather
// than scored with a guess.
func (t OperationType) Known() bool {
	switch t {
	case OpDropColumn, OpDropTable, OpAlterColumn, OpRenameColumn,
		OpAddColumn, OpCreateTable, OpCreateIndex, OpDropIndex:
		return true
	}
	return false
}

// Destructive reports whether t can remove or narrow existing data or a
// referenced key. Destructive operations are the ones that can break
// referential integrity.
func (t OperationType) Destructive() bool {
	switch t {
	case OpDropColumn, OpDropTable, OpAlterColumn:
		return true
	}
	return false
}

// String returns the wire name of the operation type.
func (t OperationType) String() string { return string(t) }

// Operation is the descriptor the orchestrator hands to every analysis
// entry point. It is a plain value object; no runtime node registration
// is involved.
type Operation struct {
	// Table is the target table name. Required.
	Table string `json:"table" validate:"required,max=63"`

	// Column is the target column, empty for table-level operations.
	Column string `json:"column,omitempty" validate:"omitempty,max=63"`

	// Type is the requested operation.
	Type OperationType `json:"operation_type" validate:"required"`

	// IsProduction marks the target database as production.
	IsProduction bool `json:"is_production"`

	// EstimatedRows is the approximate row count of the target table.
	EstimatedRows int64 `json:"estimated_rows" validate:"gte=0"`

	// TableSizeMB is the approximate on-disk size of the target table.
	TableSizeMB float64 `json:"table_size_mb" validate:"gte=0"`

	// HasBackup indicates a restorable backup exists for the target.
	HasBackup bool `json:"has_backup"`
}

// ReferentialAction is a foreign key ON DELETE / ON UPDATE rule.
type ReferentialAction string

const (
	ActionCascade    ReferentialAction = "CASCADE"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
	ActionNoAction   ReferentialAction = "NO ACTION"
)

// ParseReferentialAction normalizes a catalog-reported rule string.
// Unknown or empty rules map to NO ACTION, the SQL default.
func ParseReferentialAction(s string) ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CASCADE":
		return ActionCascade
	case "RESTRICT":
		return ActionRestrict
	case "SET NULL":
		return ActionSetNull
	case "SET DEFAULT":
		return ActionSetDefault
	default:
		return ActionNoAction
	}
}

// Cascades reports whether the action auto-propagates changes to
// dependent rows.
func (a ReferentialAction) Cascades() bool { return a == ActionCascade }

// ForeignKeyDependency describes one foreign key constraint whose target
// is the object under analysis. Source is the referencing side, Target
// the referenced side.
type ForeignKeyDependency struct {
	ConstraintName string            `json:"constraint_name"`
	SourceTable    string            `json:"source_table"`
	SourceColumn   string            `json:"source_column"`
	TargetTable    string            `json:"target_table"`
	TargetColumn   string            `json:"target_column"`
	OnDelete       ReferentialAction `json:"on_delete"`
	OnUpdate       ReferentialAction `json:"on_update"`
}

// Cascades reports whether either rule of the constraint cascades.
func (fk ForeignKeyDependency) Cascades() bool {
	return fk.OnDelete.Cascades() || fk.OnUpdate.Cascades()
}

// Restrictive reports whether the constraint only blocks changes
// (RESTRICT on delete) without propagating or nulling data.
func (fk ForeignKeyDependency) Restrictive() bool {
	return !fk.Cascades() && fk.OnDelete == ActionRestrict
}

// maxIdentifierLen matches the PostgreSQL identifier limit.
const maxIdentifierLen = 63

// SanitizeIdentifier strips characters outside [A-Za-z0-9_$.] from a
// catalog-reported identifier and truncates it to the PostgreSQL limit.
// Applied to every identifier before it is echoed back to callers so a
// hostile catalog cannot smuggle control or quote characters into
// reports and plans.
func SanitizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == '$', r == '.':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxIdentifierLen {
		out = out[:maxIdentifierLen]
	}
	return out
}

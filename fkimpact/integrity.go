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
	"fmt"

	"github.com/AleutianAI/schemaguard/schema"
)

// ValidateReferentialIntegrity checks whether an operation would break
// foreign keys that reference its target.
//
// Description:
//
//	An operation is unsafe iff the targeted object is referenced by at
//	least one foreign key and the operation removes or narrows it
//	(drop_column, drop_table, or alter_column on a referenced key).
//	Each broken constraint yields a violation plus a remediation
//	suggestion. Non-destructive operations are always safe, though a
//	warning is attached when constraints exist around the target.
//
// Outputs:
//
//	*IntegrityValidation - Violations and recommendations as data;
//	                       unsafe is a result, not an error.
//	error - ValidationError for a malformed descriptor, or a catalog
//	        error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (a *Analyzer) ValidateReferentialIntegrity(ctx context.Context, op schema.Operation) (*IntegrityValidation, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	fks, err := a.catalog.ReferencingForeignKeys(ctx, op.Table, op.Column)
	if err != nil {
		return nil, err
	}

	v := &IntegrityValidation{IsSafe: true}

	if !op.Type.Destructive() {
		if len(fks) > 0 {
			v.Warnings = append(v.Warnings, fmt.Sprintf(
				"%d foreign key(s) reference %s; %s does not break them but coordination is advised",
				len(fks), target(op), op.Type))
		}
		return v, nil
	}

	for _, fk := range fks {
		fk = sanitized(fk)
		v.IsSafe = false
		v.Violations = append(v.Violations, fmt.Sprintf(
			"%s on %s breaks constraint %s: %s.%s references %s.%s (ON DELETE %s, ON UPDATE %s)",
			op.Type, target(op), fk.ConstraintName,
			fk.SourceTable, fk.SourceColumn, fk.TargetTable, fk.TargetColumn,
			fk.OnDelete, fk.OnUpdate))

		switch {
		case fk.Cascades():
			v.RecommendedActions = append(v.RecommendedActions, fmt.Sprintf(
				"constraint %s cascades; plan the CASCADE explicitly and verify dependent rows in %s before proceeding",
				fk.ConstraintName, fk.SourceTable))
		case op.Type == schema.OpAlterColumn:
			v.RecommendedActions = append(v.RecommendedActions, fmt.Sprintf(
				"widen %s.%s to stay compatible, or drop constraint %s first and recreate it after the change",
				fk.SourceTable, fk.SourceColumn, fk.ConstraintName))
		default:
			v.RecommendedActions = append(v.RecommendedActions, fmt.Sprintf(
				"drop dependent constraint %s on %s before applying %s",
				fk.ConstraintName, fk.SourceTable, op.Type))
		}
	}

	if !v.IsSafe {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"applying %s without the recommended steps will fail or destroy referencing data", op.Type))
	}
	return v, nil
}

// target renders the operation target for messages.
func target(op schema.Operation) string {
	if op.Column == "" {
		return schema.SanitizeIdentifier(op.Table)
	}
	return schema.SanitizeIdentifier(op.Table) + "." + schema.SanitizeIdentifier(op.Column)
}

// sanitized returns a copy of fk with every identifier sanitized.
func sanitized(fk schema.ForeignKeyDependency) schema.ForeignKeyDependency {
	fk.ConstraintName = schema.SanitizeIdentifier(fk.ConstraintName)
	fk.SourceTable = schema.SanitizeIdentifier(fk.SourceTable)
	fk.SourceColumn = schema.SanitizeIdentifier(fk.SourceColumn)
	fk.TargetTable = schema.SanitizeIdentifier(fk.TargetTable)
	fk.TargetColumn = schema.SanitizeIdentifier(fk.TargetColumn)
	return fk
}

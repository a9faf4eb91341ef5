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
	"time"

	"github.com/AleutianAI/schemaguard/schema"
)

// Per-step duration heuristics. Constraint drops are metadata-only;
// recreation revalidates every referencing row, and the change itself
// scales with table size.
const (
	dropConstraintCost     = 5 * time.Second
	recreateConstraintCost = 30 * time.Second
	baseChangeCost         = 15 * time.Second
	perGBChangeCost        = 60 * time.Second
)

// GenerateFKSafeMigrationPlan produces the ordered steps that apply an
// operation without ever violating a foreign key.
//
// Description:
//
//	For every constraint referencing the target: drop it, apply the
//	requested change, then recreate it with its original ON DELETE /
//	ON UPDATE semantics. Every dropped constraint appears again as a
//	recreate step, and any plan with more than one step requires a
//	transaction so a partial application cannot leave constraints
//	missing.
//
// Outputs:
//
//	*FKSafeMigrationPlan - Risk is HIGH when any constraint is
//	                       temporarily dropped, MEDIUM otherwise.
//	error - ValidationError for a malformed descriptor, or a catalog
//	        error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (a *Analyzer) GenerateFKSafeMigrationPlan(ctx context.Context, op schema.Operation) (*FKSafeMigrationPlan, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	fks, err := a.catalog.ReferencingForeignKeys(ctx, op.Table, op.Column)
	if err != nil {
		return nil, err
	}

	plan := &FKSafeMigrationPlan{RiskLevel: ImpactMedium}

	for i := range fks {
		fk := sanitized(fks[i])
		plan.Steps = append(plan.Steps, MigrationStep{
			Type: StepDropConstraint,
			Description: fmt.Sprintf("drop constraint %s on %s (%s.%s -> %s.%s)",
				fk.ConstraintName, fk.SourceTable,
				fk.SourceTable, fk.SourceColumn, fk.TargetTable, fk.TargetColumn),
			Constraint: &fk,
		})
	}

	plan.Steps = append(plan.Steps, MigrationStep{
		Type:        changeStepType(op.Type),
		Description: fmt.Sprintf("apply %s on %s", op.Type, target(op)),
	})

	for i := range fks {
		fk := sanitized(fks[i])
		plan.Steps = append(plan.Steps, MigrationStep{
			Type: StepRecreateConstraint,
			Description: fmt.Sprintf("recreate constraint %s on %s with ON DELETE %s, ON UPDATE %s",
				fk.ConstraintName, fk.SourceTable, fk.OnDelete, fk.OnUpdate),
			Constraint: &fk,
		})
	}

	plan.RequiresTransaction = len(plan.Steps) > 1
	if len(fks) > 0 {
		plan.RiskLevel = ImpactHigh
	}
	plan.EstimatedDuration = estimateDuration(op, len(fks))

	a.logger.Debug("safe migration plan generated",
		"table", op.Table,
		"operation", op.Type,
		"steps", len(plan.Steps),
		"risk_level", plan.RiskLevel,
		"requires_transaction", plan.RequiresTransaction)

	return plan, nil
}

// changeStepType maps the requested operation to its plan step type.
func changeStepType(t schema.OperationType) StepType {
	switch t {
	case schema.OpAlterColumn:
		return StepModifyColumn
	case schema.OpDropColumn:
		return StepDropColumn
	case schema.OpDropTable:
		return StepDropTable
	case schema.OpRenameColumn:
		return StepRenameColumn
	default:
		return StepApplyChange
	}
}

// estimateDuration applies the per-step cost heuristics.
func estimateDuration(op schema.Operation, constraints int) time.Duration {
	d := baseChangeCost
	d += time.Duration(constraints) * (dropConstraintCost + recreateConstraintCost)
	d += time.Duration(op.TableSizeMB / 1024.0 * float64(perGBChangeCost))
	return d
}

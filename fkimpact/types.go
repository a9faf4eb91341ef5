// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fkimpact analyzes the foreign key blast radius of a schema
// change: impact classification, transitive FK chain discovery,
// referential integrity validation, and safe multi-step plan generation.
package fkimpact

import (
	"time"

	"github.com/AleutianAI/schemaguard/schema"
)

// ImpactLevel classifies how dangerous a change is for the foreign keys
// around it.
type ImpactLevel string

const (
	ImpactSafe     ImpactLevel = "SAFE"
	ImpactMedium   ImpactLevel = "MEDIUM"
	ImpactHigh     ImpactLevel = "HIGH"
	ImpactCritical ImpactLevel = "CRITICAL"
)

// FKImpactReport is the result of impact classification for one
// operation.
type FKImpactReport struct {
	TableName           string                        `json:"table_name"`
	OperationType       schema.OperationType          `json:"operation_type"`
	AffectedForeignKeys []schema.ForeignKeyDependency `json:"affected_foreign_keys,omitempty"`
	ImpactLevel         ImpactLevel                   `json:"impact_level"`

	// CascadeRiskDetected is true iff any affected action is CASCADE.
	// Invariant: CascadeRiskDetected implies ImpactLevel HIGH or CRITICAL.
	CascadeRiskDetected bool `json:"cascade_risk_detected"`

	// RequiresCoordination is true iff at least one foreign key is
	// affected, meaning other teams or services may need notice.
	RequiresCoordination bool `json:"requires_coordination"`
}

// ChainNode is one hop in a foreign key chain: the referencing table
// and the constraint that links it to the previous node.
type ChainNode struct {
	Table      string `json:"table"`
	Constraint string `json:"constraint"`
}

// FKChain is a transitive path of referencing tables rooted at the
// analyzed table.
type FKChain struct {
	RootTable      string      `json:"root_table"`
	Nodes          []ChainNode `json:"nodes"`
	ContainsCycles bool        `json:"contains_cycles"`
}

// Depth returns the number of hops in the chain.
func (c FKChain) Depth() int { return len(c.Nodes) }

// IntegrityValidation reports whether an operation would break
// referential integrity. Violations are data, not errors: an unsafe
// operation is a legitimate analysis result.
type IntegrityValidation struct {
	IsSafe             bool     `json:"is_safe"`
	Violations         []string `json:"violations,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty"`
}

// StepType identifies a step in a safe migration plan.
type StepType string

const (
	StepDropConstraint     StepType = "drop_constraint"
	StepModifyColumn       StepType = "modify_column"
	StepDropColumn         StepType = "drop_column"
	StepDropTable          StepType = "drop_table"
	StepRenameColumn       StepType = "rename_column"
	StepApplyChange        StepType = "apply_change"
	StepRecreateConstraint StepType = "recreate_constraint"
)

// MigrationStep is one ordered step of a safe plan. The description is
// operator-facing; actual DDL text is generated by an external,
// vendor-aware collaborator.
type MigrationStep struct {
	Type        StepType `json:"type"`
	Description string   `json:"description"`

	// Constraint is set on drop_constraint and recreate_constraint
	// steps and carries the original semantics to recreate.
	Constraint *schema.ForeignKeyDependency `json:"constraint,omitempty"`
}

// FKSafeMigrationPlan is an ordered plan that drops affected
// constraints, applies the requested change, and recreates every
// dropped constraint with its original semantics.
type FKSafeMigrationPlan struct {
	Steps []MigrationStep `json:"steps"`

	// RequiresTransaction is true whenever the plan has more than one
	// step: a partial application would leave constraints dropped.
	RequiresTransaction bool `json:"requires_transaction"`

	EstimatedDuration time.Duration `json:"estimated_duration"`

	// RiskLevel is HIGH when any constraint is temporarily dropped,
	// MEDIUM otherwise.
	RiskLevel ImpactLevel `json:"risk_level"`
}

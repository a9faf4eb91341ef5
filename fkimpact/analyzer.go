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
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/schemaguard/catalog"
	"github.com/AleutianAI/schemaguard/schema"
)

// hubEscalationThreshold is the affected-FK count at which a
// RESTRICT-only hub table is escalated from MEDIUM to HIGH: nothing
// destroys data, but that many referencing tables make the change a
// coordination hazard.
const hubEscalationThreshold = 5

// Analyzer computes foreign key impact over a catalog connection.
type Analyzer struct {
	catalog catalog.Querier
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates a foreign key analyzer over the given catalog.
func NewAnalyzer(q catalog.Querier, opts ...Option) *Analyzer {
	a := &Analyzer{
		catalog: q,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeForeignKeyImpact classifies how an operation affects the
// foreign keys referencing its target.
//
// Description:
//
//	Fetches every referencing constraint in one batched catalog query
//	and classifies the impact level:
//
//	  CRITICAL - any affected action is CASCADE; data in referencing
//	             tables can be silently destroyed or rewritten.
//	  HIGH     - at least one non-cascading, non-RESTRICT constraint
//	             (NO ACTION / SET NULL), or a RESTRICT-only hub with
//	             many referencing tables.
//	  MEDIUM   - only RESTRICT constraints; the change is blocked, not
//	             destructive.
//	  SAFE     - nothing references the target.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	op - Validated operation descriptor.
//
// Outputs:
//
//	*FKImpactReport - Never nil on a nil error.
//	error - ValidationError for a malformed descriptor, or the catalog
//	        error surfaced by the Querier.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (a *Analyzer) AnalyzeForeignKeyImpact(ctx context.Context, op schema.Operation) (*FKImpactReport, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "fkimpact.AnalyzeForeignKeyImpact",
		trace.WithAttributes(
			attribute.String("table", op.Table),
			attribute.String("operation", string(op.Type)),
		))
	defer span.End()

	start := time.Now()
	fks, err := a.catalog.ReferencingForeignKeys(ctx, op.Table, op.Column)
	if err != nil {
		span.RecordError(err)
		recordAnalysis("error", time.Since(start), 0)
		return nil, err
	}

	report := &FKImpactReport{
		TableName:            schema.SanitizeIdentifier(op.Table),
		OperationType:        op.Type,
		AffectedForeignKeys:  fks,
		ImpactLevel:          classifyImpact(fks),
		CascadeRiskDetected:  anyCascade(fks),
		RequiresCoordination: len(fks) > 0,
	}

	span.SetAttributes(
		attribute.String("impact_level", string(report.ImpactLevel)),
		attribute.Int("affected_foreign_keys", len(fks)),
	)
	recordAnalysis(string(report.ImpactLevel), time.Since(start), len(fks))

	a.logger.Debug("foreign key impact analyzed",
		"table", report.TableName,
		"operation", op.Type,
		"impact_level", report.ImpactLevel,
		"affected_foreign_keys", len(fks),
		"cascade_risk", report.CascadeRiskDetected)

	return report, nil
}

// classifyImpact maps the affected constraints to an impact level.
func classifyImpact(fks []schema.ForeignKeyDependency) ImpactLevel {
	if len(fks) == 0 {
		return ImpactSafe
	}
	if anyCascade(fks) {
		return ImpactCritical
	}
	restrictOnly := true
	for _, fk := range fks {
		if !fk.Restrictive() {
			restrictOnly = false
			break
		}
	}
	if restrictOnly && len(fks) < hubEscalationThreshold {
		return ImpactMedium
	}
	return ImpactHigh
}

// anyCascade reports whether any affected rule is CASCADE.
func anyCascade(fks []schema.ForeignKeyDependency) bool {
	for _, fk := range fks {
		if fk.Cascades() {
			return true
		}
	}
	return false
}

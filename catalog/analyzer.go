// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/schemaguard/schema"
)

// FailurePolicy controls how the Analyzer reacts to catalog errors.
type FailurePolicy int

const (
	// FailOpen degrades catalog failures to an empty report. Favors
	// tool availability over strict correctness; the degraded path is
	// always logged at Warn.
	FailOpen FailurePolicy = iota

	// FailClosed surfaces catalog failures as a ConnectivityError so
	// callers can score an unreachable catalog as high risk.
	FailClosed
)

// Analyzer produces DependencyReports from live catalog metadata.
type Analyzer struct {
	catalog Querier
	policy  FailurePolicy
	logger  *slog.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithFailurePolicy overrides the default FailOpen policy.
func WithFailurePolicy(p FailurePolicy) AnalyzerOption {
	return func(a *Analyzer) { a.policy = p }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates a dependency analyzer over the given catalog.
func NewAnalyzer(q Querier, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		catalog: q,
		policy:  FailOpen,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeDependencies reports what depends on (table, column).
//
// Description:
//
//	Runs the three catalog lookups concurrently and assembles a
//	DependencyReport. Identifiers echoed back in the report are
//	sanitized. A table nothing references yields an empty report, as
//	does a non-existent table.
//
// Inputs:
//
//	ctx - Context for cancellation and query deadlines.
//	table - Target table name. Required.
//	column - Target column; empty for table-level analysis.
//
// Outputs:
//
//	*DependencyReport - Never nil on a nil error.
//	error - ValidationError for a missing table name; ConnectivityError
//	        for catalog failures under FailClosed. Under FailOpen,
//	        catalog failures return an empty report and a nil error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (a *Analyzer) AnalyzeDependencies(ctx context.Context, table, column string) (*DependencyReport, error) {
	if table == "" {
		return nil, &schema.ValidationError{Field: "table", Reason: "table name is required"}
	}

	report := &DependencyReport{
		TableName:  schema.SanitizeIdentifier(table),
		ColumnName: schema.SanitizeIdentifier(column),
	}

	var (
		fks     []schema.ForeignKeyDependency
		views   []ViewDependency
		indexes []IndexDependency
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if fks, err = a.catalog.ReferencingForeignKeys(gctx, table, column); err != nil {
			return &ConnectivityError{Lookup: DependencyForeignKey, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if views, err = a.catalog.ViewsOn(gctx, table); err != nil {
			return &ConnectivityError{Lookup: DependencyView, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if indexes, err = a.catalog.IndexesOn(gctx, table, column); err != nil {
			return &ConnectivityError{Lookup: DependencyIndex, Err: err}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if a.policy == FailClosed {
			return nil, err
		}
		a.logger.Warn("catalog lookup failed, degrading to empty report",
			"table", report.TableName,
			"column", report.ColumnName,
			"error", err)
		return report, nil
	}

	for _, fk := range fks {
		report.ForeignKeys = append(report.ForeignKeys, sanitizeForeignKey(fk))
	}
	for _, v := range views {
		v.ViewName = schema.SanitizeIdentifier(v.ViewName)
		report.Views = append(report.Views, v)
	}
	for _, idx := range indexes {
		idx.IndexName = schema.SanitizeIdentifier(idx.IndexName)
		idx.Table = schema.SanitizeIdentifier(idx.Table)
		for i, col := range idx.Columns {
			idx.Columns[i] = schema.SanitizeIdentifier(col)
		}
		report.Indexes = append(report.Indexes, idx)
	}

	a.logger.Debug("dependency analysis complete",
		"table", report.TableName,
		"column", report.ColumnName,
		"foreign_keys", len(report.ForeignKeys),
		"views", len(report.Views),
		"indexes", len(report.Indexes))

	return report, nil
}

// sanitizeForeignKey sanitizes every identifier on a catalog-reported
// foreign key.
func sanitizeForeignKey(fk schema.ForeignKeyDependency) schema.ForeignKeyDependency {
	fk.ConstraintName = schema.SanitizeIdentifier(fk.ConstraintName)
	fk.SourceTable = schema.SanitizeIdentifier(fk.SourceTable)
	fk.SourceColumn = schema.SanitizeIdentifier(fk.SourceColumn)
	fk.TargetTable = schema.SanitizeIdentifier(fk.TargetTable)
	fk.TargetColumn = schema.SanitizeIdentifier(fk.TargetColumn)
	return fk
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package risk

import (
	"fmt"

	"github.com/AleutianAI/schemaguard/catalog"
	"github.com/AleutianAI/schemaguard/fkimpact"
	"github.com/AleutianAI/schemaguard/schema"
)

// Size thresholds shared by the availability and performance scorers.
const (
	largeTableMB = 1024
	midTableMB   = 100
	smallTableMB = 10

	largeRowCount = 1_000_000
	midRowCount   = 100_000
)

// DataLossRisk scores the chance the operation destroys data.
//
// A CASCADE foreign key on the target lands in the CRITICAL band
// (>= 90): the database will delete or rewrite referencing rows on its
// own. Non-cascading constraints block the change instead of destroying
// data and stay in the MEDIUM band. With no foreign keys at all the
// score stays LOW regardless of other dependency classes.
func (e *Engine) DataLossRisk(report *catalog.DependencyReport, op schema.Operation) Score {
	s := Score{Category: CategoryDataLoss}
	fks := report.ForeignKeys

	cascades := 0
	setNulls := 0
	for _, fk := range fks {
		if fk.Cascades() {
			cascades++
		} else if fk.OnDelete == schema.ActionSetNull {
			setNulls++
		}
	}

	switch {
	case cascades > 0:
		s.Value = Clamp(90 + float64(cascades)*2)
		s.Description = "cascading foreign keys can silently destroy dependent rows"
		s.Factors = append(s.Factors, fmt.Sprintf(
			"%d CASCADE constraint(s) reference %s", cascades, report.TableName))
	case len(fks) > 0:
		s.Value = 30 + float64(len(fks)-1)*4 + float64(setNulls)*5
		if s.Value > mediumMax {
			s.Value = mediumMax
		}
		s.Description = "referencing constraints block the change but do not destroy data"
		s.Factors = append(s.Factors, fmt.Sprintf(
			"%d non-cascading constraint(s) reference %s", len(fks), report.TableName))
		if setNulls > 0 {
			s.Factors = append(s.Factors, fmt.Sprintf(
				"%d SET NULL constraint(s) would null out referencing columns", setNulls))
		}
	default:
		s.Value = 5
		if op.Type.Destructive() && report.Count() > 0 {
			s.Value = 15
			s.Factors = append(s.Factors, fmt.Sprintf(
				"%d non-constraint dependencies (views, indexes) on %s", report.Count(), report.TableName))
		}
		s.Description = "no foreign keys reference the target"
	}

	s.Level = LevelForScore(s.Value)
	return s
}

// AvailabilityRisk scores the chance of user-visible downtime. Weighs
// the production flag, table size and row count, and dependent views.
func (e *Engine) AvailabilityRisk(op schema.Operation, report *catalog.DependencyReport) Score {
	s := Score{Category: CategoryAvailability}

	if op.IsProduction {
		s.Value += 40
		s.Factors = append(s.Factors, "target database is flagged production")
	}

	switch {
	case op.TableSizeMB >= largeTableMB:
		s.Value += 30
		s.Factors = append(s.Factors, fmt.Sprintf("large table (%.0f MB) extends lock duration", op.TableSizeMB))
	case op.TableSizeMB >= midTableMB:
		s.Value += 15
		s.Factors = append(s.Factors, fmt.Sprintf("mid-sized table (%.0f MB)", op.TableSizeMB))
	case op.TableSizeMB >= smallTableMB:
		s.Value += 5
	}

	switch {
	case op.EstimatedRows >= largeRowCount:
		s.Value += 10
		s.Factors = append(s.Factors, fmt.Sprintf("%d estimated rows", op.EstimatedRows))
	case op.EstimatedRows >= midRowCount:
		s.Value += 5
	}

	if n := len(report.Views); n > 0 {
		pts := float64(n) * 7
		if pts > 20 {
			pts = 20
		}
		s.Value += pts
		s.Factors = append(s.Factors, fmt.Sprintf("%d dependent view(s) break while the change applies", n))
	}

	s.Value = Clamp(s.Value)
	s.Level = LevelForScore(s.Value)
	s.Description = "likelihood of user-visible downtime during the migration"
	return s
}

// PerformanceRisk scores degradation from index churn. Unique and
// partial indexes on the affected column are costly to rebuild, and the
// cost scales with table size.
func (e *Engine) PerformanceRisk(report *catalog.DependencyReport, op schema.Operation) Score {
	s := Score{Category: CategoryPerformance}

	if len(report.Indexes) == 0 {
		if op.TableSizeMB >= midTableMB {
			s.Value = 5
		}
		s.Level = LevelForScore(s.Value)
		s.Description = "no indexes cover the affected column"
		return s
	}

	for _, idx := range report.Indexes {
		switch {
		case idx.IsUnique:
			s.Value += 35
			s.Factors = append(s.Factors, fmt.Sprintf("unique index %s must be rebuilt and revalidated", idx.IndexName))
		case idx.IsPartial:
			s.Value += 20
			s.Factors = append(s.Factors, fmt.Sprintf("partial index %s must be rebuilt", idx.IndexName))
		default:
			s.Value += 10
			s.Factors = append(s.Factors, fmt.Sprintf("index %s must be rebuilt", idx.IndexName))
		}
	}

	if op.TableSizeMB >= midTableMB {
		s.Value += 25
		s.Factors = append(s.Factors, fmt.Sprintf("index rebuilds scale with table size (%.0f MB)", op.TableSizeMB))
	}

	s.Value = Clamp(s.Value)
	s.Level = LevelForScore(s.Value)
	s.Description = "query degradation while indexes are rebuilt"
	return s
}

// RollbackComplexityRisk scores how hard the change is to undo. Weighs
// foreign key chain depth, CASCADE presence, cycles, and backup
// availability.
func (e *Engine) RollbackComplexityRisk(chains []fkimpact.FKChain, impact *fkimpact.FKImpactReport, op schema.Operation) Score {
	s := Score{Category: CategoryRollbackComplexity}

	depth := fkimpact.MaxChainDepth(chains)
	if depth > 0 {
		pts := float64(depth) * 12
		if pts > 40 {
			pts = 40
		}
		s.Value += pts
		s.Factors = append(s.Factors, fmt.Sprintf("foreign key chain depth %d; rollback must restore tables in order", depth))
	}
	if fkimpact.AnyCycles(chains) {
		s.Value += 10
		s.Factors = append(s.Factors, "cyclic foreign key chain complicates ordered restoration")
	}
	if impact != nil && impact.CascadeRiskDetected {
		s.Value += 30
		s.Factors = append(s.Factors, "cascaded deletions cannot be undone without a restore")
	}
	if op.Type.Destructive() && !op.HasBackup {
		s.Value += 25
		s.Factors = append(s.Factors, "no backup recorded for the target table")
	}

	s.Value = Clamp(s.Value)
	s.Level = LevelForScore(s.Value)
	s.Description = "difficulty of restoring the previous schema and data"
	return s
}

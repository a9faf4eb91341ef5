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
	"math"

	"github.com/AleutianAI/schemaguard/catalog"
	"github.com/AleutianAI/schemaguard/fkimpact"
	"github.com/AleutianAI/schemaguard/schema"
)

// Category identifies one risk dimension.
type Category string

const (
	CategoryDataLoss           Category = "data_loss"
	CategoryAvailability       Category = "system_availability"
	CategoryPerformance        Category = "performance"
	CategoryRollbackComplexity Category = "rollback_complexity"
)

// weightTolerance is the accepted deviation of the weight sum from 1.0.
const weightTolerance = 1e-3

// Weights maps categories to their share of the composite score.
type Weights map[Category]float64

// DefaultWeights returns the stock weighting: data loss dominates, then
// availability and rollback difficulty, then performance.
func DefaultWeights() Weights {
	return Weights{
		CategoryDataLoss:           0.40,
		CategoryAvailability:       0.25,
		CategoryPerformance:        0.15,
		CategoryRollbackComplexity: 0.20,
	}
}

// Sum returns the total weight across all categories.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// NormalizeWeights rescales weights so they sum to 1.0. A zero or
// negative sum falls back to DefaultWeights.
func NormalizeWeights(w Weights) Weights {
	sum := w.Sum()
	if sum <= 0 {
		return DefaultWeights()
	}
	out := make(Weights, len(w))
	for c, v := range w {
		out[c] = v / sum
	}
	return out
}

// Score is one category's risk assessment.
type Score struct {
	Category    Category `json:"category"`
	Value       float64  `json:"score"`
	Level       Level    `json:"level"`
	Description string   `json:"description"`
	Factors     []string `json:"risk_factors,omitempty"`
}

// MigrationRiskScore is the weighted composite across all categories.
type MigrationRiskScore struct {
	OverallScore   float64            `json:"overall_score"`
	CategoryScores map[Category]Score `json:"category_scores"`
	Level          Level              `json:"risk_level"`

	// Factors aggregates every category's factors. Duplication across
	// categories is acceptable; operators read these directly.
	Factors         []string `json:"risk_factors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Engine computes weighted composite risk scores.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine with validated weights. Weights must sum
// to 1.0 within tolerance; pass the result of NormalizeWeights when the
// caller's weights are not already normalized.
func NewEngine(w Weights) (*Engine, error) {
	if len(w) == 0 {
		w = DefaultWeights()
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %.4f", ErrInvalidWeights, sum)
	}
	// Copy so later caller mutation cannot skew scoring.
	owned := make(Weights, len(w))
	for c, v := range w {
		owned[c] = v
	}
	return &Engine{weights: owned}, nil
}

// NewDefaultEngine creates an engine with DefaultWeights.
func NewDefaultEngine() *Engine {
	e, err := NewEngine(DefaultWeights())
	if err != nil {
		// DefaultWeights always sums to 1.0.
		panic(err)
	}
	return e
}

// AssessMigrationRisk combines the four category scores into the
// composite assessment for an operation.
//
// Description:
//
//	Validates the descriptor, computes every category score from the
//	pre-fetched inputs, and produces the weighted composite banded by
//	LevelForScore. A nil dependency report or impact report is treated
//	as empty; empty inputs never error and never produce CRITICAL.
//
// Inputs:
//
//	op - Operation descriptor. Must validate.
//	report - Pre-fetched dependency report; nil means no dependencies.
//	impact - Pre-fetched FK impact report; nil means no FK impact.
//	chains - Pre-fetched FK chains; nil means none.
//
// Outputs:
//
//	*MigrationRiskScore - Composite score, factors, recommendations.
//	error - ValidationError for a malformed descriptor.
func (e *Engine) AssessMigrationRisk(op schema.Operation, report *catalog.DependencyReport, impact *fkimpact.FKImpactReport, chains []fkimpact.FKChain) (*MigrationRiskScore, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if report == nil {
		report = &catalog.DependencyReport{TableName: op.Table, ColumnName: op.Column}
	}

	scores := map[Category]Score{
		CategoryDataLoss:           e.DataLossRisk(report, op),
		CategoryAvailability:       e.AvailabilityRisk(op, report),
		CategoryPerformance:        e.PerformanceRisk(report, op),
		CategoryRollbackComplexity: e.RollbackComplexityRisk(chains, impact, op),
	}

	overall := 0.0
	for c, s := range scores {
		overall += e.weights[c] * s.Value
	}
	overall = Clamp(overall)

	out := &MigrationRiskScore{
		OverallScore:   overall,
		CategoryScores: scores,
		Level:          LevelForScore(overall),
	}
	for _, c := range []Category{CategoryDataLoss, CategoryAvailability, CategoryPerformance, CategoryRollbackComplexity} {
		out.Factors = append(out.Factors, scores[c].Factors...)
	}
	out.Recommendations = recommendations(op, scores)
	return out, nil
}

// recommendations derives operator guidance from category levels.
func recommendations(op schema.Operation, scores map[Category]Score) []string {
	var recs []string
	if scores[CategoryDataLoss].Level == LevelCritical {
		recs = append(recs, "cascading foreign keys will destroy dependent data; take a verified backup and plan each cascade explicitly")
	}
	if l := scores[CategoryAvailability].Level; l == LevelHigh || l == LevelCritical {
		recs = append(recs, "schedule the migration in a maintenance window; the target serves production traffic")
	}
	if l := scores[CategoryPerformance].Level; l == LevelHigh || l == LevelCritical {
		recs = append(recs, "rebuilding indexes on a table this size will be slow; consider a concurrent index build")
	}
	if l := scores[CategoryRollbackComplexity].Level; l == LevelHigh || l == LevelCritical {
		if !op.HasBackup {
			recs = append(recs, "no backup is recorded for this table; create one before a change this hard to roll back")
		} else {
			recs = append(recs, "rehearse the rollback path; the foreign key chain makes restoration multi-step")
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "no special precautions required; standard migration review applies")
	}
	return recs
}

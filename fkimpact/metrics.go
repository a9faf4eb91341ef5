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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

// Package-level tracer for foreign key analysis operations.
var tracer = otel.Tracer("schemaguard.fkimpact")

var (
	analysisTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schemaguard_fk_analyses_total",
		Help: "Foreign key impact analyses by resulting impact level.",
	}, []string{"impact_level"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "schemaguard_fk_analysis_duration_seconds",
		Help:    "Duration of foreign key impact analyses.",
		Buckets: prometheus.DefBuckets,
	})

	affectedForeignKeys = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "schemaguard_fk_affected_foreign_keys",
		Help:    "Number of foreign keys affected per analysis.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
)

// recordAnalysis records one impact analysis outcome.
func recordAnalysis(level string, d time.Duration, affected int) {
	analysisTotal.WithLabelValues(level).Inc()
	analysisDuration.Observe(d.Seconds())
	affectedForeignKeys.Observe(float64(affected))
}

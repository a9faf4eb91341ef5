// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	acquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schemaguard_lock_acquire_total",
		Help: "Migration lock acquisition attempts by outcome.",
	}, []string{"outcome"})

	releaseTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schemaguard_lock_release_total",
		Help: "Migration lock releases by this process.",
	})
)

// recordAcquire records one acquisition attempt outcome: acquired,
// contended, or error.
func recordAcquire(outcome string) {
	acquireTotal.WithLabelValues(outcome).Inc()
}

// recordRelease records one successful release.
func recordRelease() {
	releaseTotal.Inc()
}

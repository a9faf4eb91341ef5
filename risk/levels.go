// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package risk scores migration operations across four categories -
// data loss, system availability, performance, and rollback complexity -
// and combines them into a weighted composite. Everything in this
// package is pure: inputs are pre-fetched reports, there is no I/O, and
// every function is safe for unsynchronized concurrent use.
package risk

// Level is a risk band derived from a numeric score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Band thresholds. The bands are mutually exclusive and total over
// [0, 100]: 0-25 LOW, 26-50 MEDIUM, 51-75 HIGH, 76-100 CRITICAL.
const (
	lowMax    = 25
	mediumMax = 50
	highMax   = 75
)

// LevelForScore maps a score to its band. The single source of truth
// for banding; scores outside [0, 100] are clamped first, so the
// function is total.
func LevelForScore(score float64) Level {
	score = Clamp(score)
	switch {
	case score <= lowMax:
		return LevelLow
	case score <= mediumMax:
		return LevelMedium
	case score <= highMax:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Clamp bounds a score to [0, 100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

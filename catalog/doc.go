// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog answers "what depends on this table or column" against
// live database metadata.
//
// The Analyzer queries a Querier for three dependency classes - foreign
// keys referencing the target, views selecting from the table, and
// indexes covering the column - and assembles them into a
// DependencyReport. PostgresCatalog is the stock Querier over a
// *sql.DB; adapting the queries to another dialect is an external
// collaborator's job.
//
// # Failure Policy
//
// Catalog connectivity failures are handled according to a configurable
// policy. FailOpen (the default) degrades to an empty report so the
// tooling stays available when the catalog is flaky; FailClosed surfaces
// a ConnectivityError so callers can treat an unreachable catalog as
// high risk. Non-existent tables yield an empty report under both
// policies.
//
// # Thread Safety
//
// Analyzer and PostgresCatalog hold no mutable state beyond the
// *sql.DB, which is safe for concurrent use. Any number of goroutines
// may analyze concurrently.
package catalog

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
	"github.com/AleutianAI/schemaguard/schema"
)

// DependencyType classifies an entry in a DependencyReport.
type DependencyType string

const (
	DependencyForeignKey DependencyType = "foreign_key"
	DependencyView       DependencyType = "view"
	DependencyIndex      DependencyType = "index"
)

// ViewDependency is a view that selects from the analyzed table.
type ViewDependency struct {
	ViewName   string `json:"view_name"`
	Definition string `json:"definition,omitempty"`
}

// IndexDependency is an index covering the analyzed column.
type IndexDependency struct {
	IndexName string   `json:"index_name"`
	Table     string   `json:"table"`
	Columns   []string `json:"columns,omitempty"`
	IsUnique  bool     `json:"is_unique"`
	IsPartial bool     `json:"is_partial"`
}

// DependencyReport summarizes everything in the schema that depends on a
// table or column. Reports are ephemeral: one is created per analysis
// call and never cached.
type DependencyReport struct {
	TableName  string `json:"table_name"`
	ColumnName string `json:"column_name,omitempty"`

	ForeignKeys []schema.ForeignKeyDependency `json:"foreign_keys,omitempty"`
	Views       []ViewDependency              `json:"views,omitempty"`
	Indexes     []IndexDependency             `json:"indexes,omitempty"`
}

// Empty reports whether nothing depends on the analyzed object.
func (r *DependencyReport) Empty() bool {
	return len(r.ForeignKeys) == 0 && len(r.Views) == 0 && len(r.Indexes) == 0
}

// Count returns the total number of dependencies across all classes.
func (r *DependencyReport) Count() int {
	return len(r.ForeignKeys) + len(r.Views) + len(r.Indexes)
}

// CountByType returns per-class dependency counts, keyed the way the
// report is serialized.
func (r *DependencyReport) CountByType() map[DependencyType]int {
	return map[DependencyType]int{
		DependencyForeignKey: len(r.ForeignKeys),
		DependencyView:       len(r.Views),
		DependencyIndex:      len(r.Indexes),
	}
}

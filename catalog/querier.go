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
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/schemaguard/schema"
)

// Querier is the catalog-query capability this package consumes. A
// dialect adapter implements it for each supported backend; tests
// substitute an in-memory fake.
type Querier interface {
	// ReferencingForeignKeys returns foreign keys whose target is the
	// given table. When column is non-empty, only constraints against
	// that column are returned.
	ReferencingForeignKeys(ctx context.Context, table, column string) ([]schema.ForeignKeyDependency, error)

	// ViewsOn returns views that select from the given table.
	ViewsOn(ctx context.Context, table string) ([]ViewDependency, error)

	// IndexesOn returns indexes on the given table. When column is
	// non-empty, only indexes covering that column are returned.
	IndexesOn(ctx context.Context, table, column string) ([]IndexDependency, error)
}

// defaultQueryTimeout bounds each catalog lookup.
const defaultQueryTimeout = 10 * time.Second

// PostgresCatalog implements Querier against PostgreSQL system views.
// Foreign keys and views come from information_schema; indexes come
// from pg_indexes because information_schema has no index view.
type PostgresCatalog struct {
	db      *sql.DB
	schema  string
	timeout time.Duration
}

// NewPostgresCatalog wraps a catalog-capable connection. schemaName
// defaults to "public" when empty.
func NewPostgresCatalog(db *sql.DB, schemaName string) *PostgresCatalog {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresCatalog{db: db, schema: schemaName, timeout: defaultQueryTimeout}
}

const referencingFKQuery = `
	SELECT
		tc.constraint_name,
		tc.table_name,
		kcu.column_name,
		ccu.table_name  AS foreign_table_name,
		ccu.column_name AS foreign_column_name,
		rc.delete_rule,
		rc.update_rule
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
	JOIN information_schema.constraint_column_usage AS ccu
		ON ccu.constraint_name = tc.constraint_name
	JOIN information_schema.referential_constraints AS rc
		ON rc.constraint_name = tc.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		AND ccu.table_name = $2
		AND ($3 = '' OR ccu.column_name = $3)
	ORDER BY tc.constraint_name`

// ReferencingForeignKeys returns all foreign keys targeting the table
// (or the specific column) in a single batched query. One round trip
// regardless of how many tables reference the target.
func (c *PostgresCatalog) ReferencingForeignKeys(ctx context.Context, table, column string) ([]schema.ForeignKeyDependency, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, referencingFKQuery, c.schema, table, column)
	if err != nil {
		return nil, fmt.Errorf("querying referencing foreign keys for %s: %w", table, err)
	}
	defer rows.Close()

	var fks []schema.ForeignKeyDependency
	for rows.Next() {
		var fk schema.ForeignKeyDependency
		var deleteRule, updateRule string
		if err := rows.Scan(
			&fk.ConstraintName,
			&fk.SourceTable,
			&fk.SourceColumn,
			&fk.TargetTable,
			&fk.TargetColumn,
			&deleteRule,
			&updateRule,
		); err != nil {
			return nil, fmt.Errorf("scanning foreign key row: %w", err)
		}
		fk.OnDelete = schema.ParseReferentialAction(deleteRule)
		fk.OnUpdate = schema.ParseReferentialAction(updateRule)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

const viewsOnQuery = `
	SELECT
		vtu.view_name,
		COALESCE(v.view_definition, '')
	FROM information_schema.view_table_usage AS vtu
	LEFT JOIN information_schema.views AS v
		ON v.table_schema = vtu.view_schema AND v.table_name = vtu.view_name
	WHERE vtu.view_schema = $1
		AND vtu.table_name = $2
	ORDER BY vtu.view_name`

// ViewsOn returns views depending on the table.
func (c *PostgresCatalog) ViewsOn(ctx context.Context, table string) ([]ViewDependency, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, viewsOnQuery, c.schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying views on %s: %w", table, err)
	}
	defer rows.Close()

	var views []ViewDependency
	for rows.Next() {
		var v ViewDependency
		if err := rows.Scan(&v.ViewName, &v.Definition); err != nil {
			return nil, fmt.Errorf("scanning view row: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

const indexesOnQuery = `
	SELECT indexname, tablename, indexdef
	FROM pg_indexes
	WHERE schemaname = $1
		AND tablename = $2
	ORDER BY indexname`

// IndexesOn returns indexes on the table, filtered to those covering
// column when it is non-empty. Uniqueness and partiality are read from
// the reconstructed index definition, which pg_indexes normalizes.
func (c *PostgresCatalog) IndexesOn(ctx context.Context, table, column string) ([]IndexDependency, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, indexesOnQuery, c.schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying indexes on %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []IndexDependency
	for rows.Next() {
		var name, tbl, def string
		if err := rows.Scan(&name, &tbl, &def); err != nil {
			return nil, fmt.Errorf("scanning index row: %w", err)
		}
		idx := parseIndexDef(name, tbl, def)
		if column != "" && !idx.covers(column) {
			continue
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// parseIndexDef extracts columns, uniqueness, and partiality from a
// pg_indexes indexdef string.
func parseIndexDef(name, table, def string) IndexDependency {
	idx := IndexDependency{
		IndexName: name,
		Table:     table,
		IsUnique:  strings.Contains(def, "CREATE UNIQUE INDEX"),
		IsPartial: strings.Contains(def, " WHERE "),
	}
	open := strings.Index(def, "(")
	end := strings.Index(def, ")")
	if open >= 0 && end > open {
		for _, col := range strings.Split(def[open+1:end], ",") {
			idx.Columns = append(idx.Columns, strings.TrimSpace(col))
		}
	}
	return idx
}

// covers reports whether the index includes the column.
func (i IndexDependency) covers(column string) bool {
	for _, c := range i.Columns {
		if strings.EqualFold(c, column) {
			return true
		}
	}
	return false
}

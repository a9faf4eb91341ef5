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
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/schemaguard/schema"
)

// chainFrame is one pending branch of the traversal: a table to expand
// and the path that led to it.
type chainFrame struct {
	table string
	path  []ChainNode
}

// FindAllForeignKeyChains discovers every transitive "who references
// me" chain rooted at table.
//
// Description:
//
//	Iterative breadth-first traversal over reverse foreign key edges
//	with an explicit queue and visited set, so termination never
//	depends on call-stack limits. When an edge leads back to an
//	already-visited table (e.g. a self-referencing employee.manager_id)
//	the branch terminates and its chain is marked ContainsCycles.
//	Sibling edges expand in constraint-name order, so results are
//	deterministic for a given catalog state.
//
// Inputs:
//
//	ctx - Context for cancellation; checked each expansion.
//	table - Root table name. Required.
//
// Outputs:
//
//	[]FKChain - One chain per terminated branch; empty when nothing
//	            references the root.
//	error - ValidationError for an empty table name, or a catalog error.
//
// Thread Safety:
//
//	Safe for concurrent use.
func (a *Analyzer) FindAllForeignKeyChains(ctx context.Context, table string) ([]FKChain, error) {
	if table == "" {
		return nil, &schema.ValidationError{Field: "table", Reason: "table name is required"}
	}

	ctx, span := tracer.Start(ctx, "fkimpact.FindAllForeignKeyChains",
		trace.WithAttributes(attribute.String("table", table)))
	defer span.End()

	root := schema.SanitizeIdentifier(table)
	visited := map[string]bool{root: true}
	queue := []chainFrame{{table: root}}

	var chains []FKChain
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := queue[0]
		queue = queue[1:]

		fks, err := a.catalog.ReferencingForeignKeys(ctx, frame.table, "")
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		sort.Slice(fks, func(i, j int) bool {
			return fks[i].ConstraintName < fks[j].ConstraintName
		})

		if len(fks) == 0 {
			// Leaf: the branch ends here. The root itself is only a
			// chain if something led to it.
			if len(frame.path) > 0 {
				chains = append(chains, FKChain{RootTable: root, Nodes: frame.path})
			}
			continue
		}

		for _, fk := range fks {
			source := schema.SanitizeIdentifier(fk.SourceTable)
			node := ChainNode{
				Table:      source,
				Constraint: schema.SanitizeIdentifier(fk.ConstraintName),
			}
			path := appendNode(frame.path, node)

			if visited[source] {
				chains = append(chains, FKChain{
					RootTable:      root,
					Nodes:          path,
					ContainsCycles: true,
				})
				continue
			}
			visited[source] = true
			queue = append(queue, chainFrame{table: source, path: path})
		}
	}

	span.SetAttributes(attribute.Int("chains", len(chains)))
	return chains, nil
}

// appendNode copies the path before extending it so sibling branches
// never alias the same backing array.
func appendNode(path []ChainNode, node ChainNode) []ChainNode {
	out := make([]ChainNode, len(path), len(path)+1)
	copy(out, path)
	return append(out, node)
}

// MaxChainDepth returns the longest chain depth, used as the rollback
// complexity signal.
func MaxChainDepth(chains []FKChain) int {
	depth := 0
	for _, c := range chains {
		if c.Depth() > depth {
			depth = c.Depth()
		}
	}
	return depth
}

// AnyCycles reports whether any chain contains a cycle.
func AnyCycles(chains []FKChain) bool {
	for _, c := range chains {
		if c.ContainsCycles {
			return true
		}
	}
	return false
}

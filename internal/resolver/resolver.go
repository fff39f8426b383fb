// Package resolver computes the order in which tables must be populated so
// that every foreign key target exists before its dependents.
package resolver

import (
	"context"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

type Resolver struct {
	catalog catalog.Catalog

	// StrictCycles makes Resolve fail with a *CycleError instead of returning
	// a best-effort order.
	StrictCycles bool
}

func New(c catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolution is the outcome of one Resolve call.
type Resolution struct {
	Start  string
	Order  []string
	Cycles [][]string
}

// Err reports the cycles as an error, or nil when the walk was acyclic.
func (r *Resolution) Err() error {
	if len(r.Cycles) == 0 {
		return nil
	}
	return &CycleError{Cycles: r.Cycles}
}

func (r *Resolution) HasCycles() bool {
	return len(r.Cycles) > 0
}

// Resolve walks foreign keys depth-first from start and returns the tables
// reachable from it in post-order: every table appears after the tables it
// depends on, and start is last. Each table is looked up once per call.
func (r *Resolver) Resolve(ctx context.Context, start string) (*Resolution, error) {
	exists, err := r.catalog.TableExists(ctx, start)
	if err != nil {
		return nil, catalog.Unavailable("table exists", start, err)
	}
	if !exists {
		return nil, &catalog.StructuralError{Table: start, Reason: "table does not exist", Err: catalog.ErrTableNotFound}
	}

	t := newTraversal(func(table string) ([]string, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edges, err := r.catalog.GetForeignKeys(ctx, table)
		if err != nil {
			return nil, catalog.Unavailable("get foreign keys", table, err)
		}
		return targets(edges), nil
	})

	if err := t.visit(start); err != nil {
		return nil, err
	}

	res := &Resolution{
		Start:  start,
		Order:  t.order,
		Cycles: t.cycles,
	}
	if r.StrictCycles {
		if err := res.Err(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// PopulationPriority lists the tables that must be populated before start,
// in order: the Resolve order restricted to empty tables, excluding start.
func (r *Resolver) PopulationPriority(ctx context.Context, start string) ([]string, error) {
	res, err := r.Resolve(ctx, start)
	if err != nil {
		return nil, err
	}

	priority := make([]string, 0, len(res.Order))
	for _, table := range res.Order {
		if table == start {
			continue
		}
		count, err := r.catalog.RowCount(ctx, table)
		if err != nil {
			return nil, catalog.Unavailable("row count", table, err)
		}
		if count == 0 {
			priority = append(priority, table)
		}
	}
	return priority, nil
}

// BuildGraph loads the dependency graph of the given tables. Foreign key
// targets outside the list are added as nodes too.
func (r *Resolver) BuildGraph(ctx context.Context, tables []string) (*Graph, error) {
	g := NewGraph()
	for _, table := range tables {
		g.AddTable(table)
		edges, err := r.catalog.GetForeignKeys(ctx, table)
		if err != nil {
			return nil, catalog.Unavailable("get foreign keys", table, err)
		}
		for _, edge := range edges {
			g.AddEdge(table, edge.TargetTable)
		}
	}
	return g, nil
}

// targets returns the distinct target tables of a table's edges, in edge order.
func targets(edges []catalog.ForeignKeyEdge) []string {
	seen := make(map[string]bool, len(edges))
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		if seen[e.TargetTable] {
			continue
		}
		seen[e.TargetTable] = true
		out = append(out, e.TargetTable)
	}
	return out
}

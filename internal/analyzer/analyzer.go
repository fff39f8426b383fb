// Package analyzer classifies the foreign key edges of a table and reports
// how much data each target currently holds.
package analyzer

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
)

// DefaultSampleLimit bounds the distinct target values kept per edge.
const DefaultSampleLimit = 1000

// minDistinctValues is the point below which a target is reported as thin.
const minDistinctValues = 10

type Cardinality int

const (
	OneToMany Cardinality = iota
	OneToOneExact
	OneToOnePotential
	// ManyToMany is only ever assigned by callers, see MarkManyToMany.
	ManyToMany
)

func (c Cardinality) String() string {
	switch c {
	case OneToOneExact:
		return "one-to-one (exact)"
	case OneToOnePotential:
		return "one-to-one (potential)"
	case ManyToMany:
		return "many-to-many"
	default:
		return "one-to-many"
	}
}

func (c Cardinality) IsOneToOne() bool {
	return c == OneToOneExact || c == OneToOnePotential
}

// Availability is a snapshot of the target column of an edge.
type Availability struct {
	RowCount      int64
	DistinctCount int64
	Values        []interface{}
	HasData       bool
}

type Relationship struct {
	catalog.ForeignKeyEdge

	Table          string
	Cardinality    Cardinality
	Availability   Availability
	Recommendation string

	// Degraded is set when a catalog query for this edge failed and the
	// classification fell back to OneToMany.
	Degraded bool
	Err      error
}

type Analyzer struct {
	catalog     catalog.Catalog
	sampleLimit int
}

func New(c catalog.Catalog, sampleLimit int) *Analyzer {
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	return &Analyzer{catalog: c, sampleLimit: sampleLimit}
}

// Analyze returns one Relationship per foreign key edge of table, in edge
// order. Only the edge listing itself is fatal; failures while inspecting a
// single edge degrade that edge.
func (a *Analyzer) Analyze(ctx context.Context, table string) ([]Relationship, error) {
	edges, err := a.catalog.GetForeignKeys(ctx, table)
	if err != nil {
		return nil, catalog.Unavailable("get foreign keys", table, err)
	}

	relationships := make([]Relationship, 0, len(edges))
	for _, edge := range edges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		relationships = append(relationships, a.analyzeEdge(ctx, table, edge))
	}
	return relationships, nil
}

func (a *Analyzer) analyzeEdge(ctx context.Context, table string, edge catalog.ForeignKeyEdge) Relationship {
	rel := Relationship{
		ForeignKeyEdge: edge,
		Table:          table,
		Cardinality:    OneToMany,
	}

	avail, err := a.availability(ctx, edge)
	if err != nil {
		rel.Degraded = true
		rel.Err = err
		rel.Recommendation = fmt.Sprintf("could not inspect %s.%s, treating as one-to-many", edge.TargetTable, edge.TargetColumn)
		return rel
	}
	rel.Availability = avail

	unique, err := a.catalog.HasUniqueConstraint(ctx, edge.TargetTable, edge.TargetColumn)
	if err != nil {
		rel.Degraded = true
		rel.Err = catalog.Unavailable("unique constraint", edge.TargetTable, err)
	} else if unique {
		if avail.DistinctCount == 1 {
			rel.Cardinality = OneToOneExact
		} else {
			rel.Cardinality = OneToOnePotential
		}
	}

	rel.Recommendation = recommend(rel)
	return rel
}

func (a *Analyzer) availability(ctx context.Context, edge catalog.ForeignKeyEdge) (Availability, error) {
	rows, err := a.catalog.RowCount(ctx, edge.TargetTable)
	if err != nil {
		return Availability{}, catalog.Unavailable("row count", edge.TargetTable, err)
	}
	distinct, err := a.catalog.DistinctCount(ctx, edge.TargetTable, edge.TargetColumn)
	if err != nil {
		return Availability{}, catalog.Unavailable("distinct count", edge.TargetTable, err)
	}

	var values []interface{}
	if distinct > 0 {
		values, err = a.catalog.SampleDistinctValues(ctx, edge.TargetTable, edge.TargetColumn, a.sampleLimit)
		if err != nil {
			return Availability{}, catalog.Unavailable("sample values", edge.TargetTable, err)
		}
	}

	return Availability{
		RowCount:      rows,
		DistinctCount: distinct,
		Values:        values,
		HasData:       rows > 0 && len(values) > 0,
	}, nil
}

func recommend(rel Relationship) string {
	switch {
	case !rel.Availability.HasData:
		return fmt.Sprintf("populate %s first", rel.TargetTable)
	case rel.Availability.DistinctCount < minDistinctValues:
		return fmt.Sprintf("only %d distinct values available in %s.%s", rel.Availability.DistinctCount, rel.TargetTable, rel.TargetColumn)
	case rel.Cardinality == ManyToMany:
		return fmt.Sprintf("%s looks like a join table, pair %s values freely", rel.Table, rel.TargetTable)
	default:
		return "ready"
	}
}

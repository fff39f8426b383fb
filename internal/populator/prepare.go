package populator

import (
	"context"
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/analyzer"
	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
	"github.com/Lumos-Labs-HQ/flashseed/internal/validator"
)

// prepare builds the column specs of one run. It fails before anything is
// inserted when a foreign key is broken or a NOT NULL foreign key has no
// candidates.
func (p *Populator) prepare(ctx context.Context, gc *generator.GenerationContext, table *catalog.Table, columns []string, configs map[string]generator.ColumnConfig) ([]*generator.ColumnSpec, error) {
	report, err := validator.ValidateForeignKeys(ctx, p.catalog, table.Name)
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	relationships, err := p.analyzer.Analyze(ctx, table.Name)
	if err != nil {
		return nil, err
	}
	byColumn := make(map[string]analyzer.Relationship, len(relationships))
	for _, rel := range relationships {
		if rel.Degraded {
			p.reporter.Warn(table.Name, fmt.Sprintf("%s: %v", rel.Column, rel.Err))
		}
		byColumn[rel.Column] = rel
	}

	existing, err := p.catalog.RowCount(ctx, table.Name)
	if err != nil {
		return nil, catalog.Unavailable("row count", table.Name, err)
	}

	singlePK := countPrimaryKeys(table) == 1
	specs := make([]*generator.ColumnSpec, 0, len(columns))
	for _, name := range columns {
		col, _ := table.Column(name)
		spec := &generator.ColumnSpec{
			Table:    table.Name,
			Column:   col,
			Strategy: generator.StrategyGenerated,
		}
		if cfg, ok := configs[name]; ok {
			spec.Config = cfg
			if cfg.Mode != "" && cfg.Mode != generator.ModeRandom {
				spec.Strategy = generator.StrategyConfigured
			}
		}
		spec.Unique = col.Unique || spec.Config.Unique || (col.PrimaryKey && singlePK)

		if rel, ok := byColumn[name]; ok {
			pool, err := p.candidates(ctx, rel)
			if err != nil {
				return nil, err
			}
			if pool.Empty() && spec.Strategy != generator.StrategyConfigured {
				if !col.Nullable {
					return nil, &catalog.EmptyDependencyError{Table: table.Name, Column: name, Target: rel.TargetTable}
				}
				p.reporter.Warn(table.Name, fmt.Sprintf("%s references empty table %s, filling with NULL", name, rel.TargetTable))
			}
			spec.Pool = pool
			if spec.Strategy != generator.StrategyConfigured {
				spec.Strategy = generator.StrategyForeignKey
			}
		}

		if spec.Unique && existing > 0 {
			values, err := p.catalog.SampleDistinctValues(ctx, table.Name, name, 0)
			if err != nil {
				return nil, catalog.Unavailable("sample values", table.Name, err)
			}
			gc.Reserve(table.Name, name, values...)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// candidates returns the pool for a foreign key column. When the analyzer
// could not sample the target, sampling is retried once here.
func (p *Populator) candidates(ctx context.Context, rel analyzer.Relationship) (*generator.CandidatePool, error) {
	values := rel.Availability.Values
	if rel.Degraded && len(values) == 0 {
		limit := p.opts.SampleLimit
		if limit <= 0 {
			limit = analyzer.DefaultSampleLimit
		}
		sampled, err := p.catalog.SampleDistinctValues(ctx, rel.TargetTable, rel.TargetColumn, limit)
		if err != nil {
			return nil, catalog.Unavailable("sample values", rel.TargetTable, err)
		}
		values = sampled
	}
	return generator.NewCandidatePool(values, rel.Cardinality.IsOneToOne()), nil
}

func countPrimaryKeys(table *catalog.Table) int {
	n := 0
	for _, col := range table.Columns {
		if col.PrimaryKey {
			n++
		}
	}
	return n
}

package populator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
)

// PopulateWithPrerequisites first fills the empty tables req.Table depends
// on, in dependency order, then req.Table itself. Each table is its own unit
// of work; a failed prerequisite stops the chain. plan builds the request for
// a prerequisite table; when nil the prerequisite gets req's record count and
// batch size.
func (p *Populator) PopulateWithPrerequisites(ctx context.Context, req Request, plan func(table string) Request) ([]*Result, error) {
	resolution, err := p.resolver.Resolve(ctx, req.Table)
	if err != nil {
		return nil, err
	}
	for _, cycle := range resolution.Cycles {
		p.reporter.Warn(req.Table, fmt.Sprintf("%v: %s", catalog.ErrCyclicDependency, strings.Join(cycle, " -> ")))
	}

	priority, err := p.resolver.PopulationPriority(ctx, req.Table)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, table := range priority {
		prereq := Request{Table: table, RecordCount: req.RecordCount, BatchSize: req.BatchSize}
		if plan != nil {
			prereq = plan(table)
			prereq.Table = table
		}
		res, err := p.Populate(ctx, prereq)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, fmt.Errorf("prerequisite %s: %w", table, err)
		}
	}

	res, err := p.Populate(ctx, req)
	if res != nil {
		results = append(results, res)
	}
	return results, err
}

// Preview generates n records for req.Table without inserting them.
func (p *Populator) Preview(ctx context.Context, req Request, n int) ([]catalog.Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("record count must not be negative, got %d", n)
	}
	table, err := catalog.LoadTable(ctx, p.catalog, req.Table)
	if err != nil {
		return nil, err
	}
	columns, err := selectColumns(table, req.Columns)
	if err != nil {
		return nil, err
	}

	gc := generator.NewContext(p.opts.Seed)
	specs, err := p.prepare(ctx, gc, table, columns, req.ColumnConfigs)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, n)
	for i := range records {
		records[i] = p.generateRecord(gc, specs)
	}
	return records, nil
}

// Package populator drives batched insertion of generated records into one
// table at a time, falling back to row-by-row inserts when a batch fails.
package populator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Lumos-Labs-HQ/flashseed/internal/analyzer"
	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
	"github.com/Lumos-Labs-HQ/flashseed/internal/resolver"
)

type Options struct {
	// NullProbability is the chance a nullable column gets NULL instead of a
	// generated value.
	NullProbability   float64
	Seed              int64
	SampleLimit       int
	MaxUniqueAttempts int
	StrictCycles      bool
}

type Populator struct {
	catalog  catalog.Catalog
	engine   *generator.Engine
	analyzer *analyzer.Analyzer
	resolver *resolver.Resolver
	reporter Reporter
	opts     Options
}

func New(c catalog.Catalog, opts Options) *Populator {
	res := resolver.New(c)
	res.StrictCycles = opts.StrictCycles
	return &Populator{
		catalog:  c,
		engine:   generator.NewEngine(opts.MaxUniqueAttempts),
		analyzer: analyzer.New(c, opts.SampleLimit),
		resolver: res,
		reporter: nopReporter{},
		opts:     opts,
	}
}

// WithReporter sets where progress goes. A nil reporter discards it.
func (p *Populator) WithReporter(r Reporter) *Populator {
	if r == nil {
		r = nopReporter{}
	}
	p.reporter = r
	return p
}

// Populate generates and inserts req.RecordCount rows into req.Table.
// Batches run strictly in order. A batch that fails as a whole is retried
// row by row; rows the database rejects are counted and reported, not fatal.
// Losing the connection stops the run and returns the partial result
// together with the error. Cancelling ctx lets the batch in flight finish
// and then stops the run with ctx.Err().
func (p *Populator) Populate(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	if req.RecordCount < 0 {
		return nil, fmt.Errorf("record count must not be negative, got %d", req.RecordCount)
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	table, err := catalog.LoadTable(ctx, p.catalog, req.Table)
	if err != nil {
		return nil, err
	}

	if req.Truncate {
		if err := p.truncate(ctx, table.Name); err != nil {
			return nil, err
		}
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

	result := &Result{
		Table:     table.Name,
		Requested: req.RecordCount,
		Columns:   columns,
		Seed:      gc.Seed,
	}
	total := req.RecordCount
	batches := (total + batchSize - 1) / batchSize
	p.reporter.RunStarted(table.Name, total, batches)

	finish := func(err error) (*Result, error) {
		result.Unresolved = gc.Unresolved()
		if result.Unresolved > 0 {
			p.reporter.Warn(table.Name, fmt.Sprintf("%v: %d values accepted after %d attempts",
				catalog.ErrUnresolvableUniqueness, result.Unresolved, p.maxAttempts()))
		}
		result.Aborted = err != nil
		result.Duration = time.Since(started)
		p.reporter.RunFinished(result)
		return result, err
	}

	// Cancellation is honored between batches. A batch that has started
	// runs to completion.
	batchCtx := context.WithoutCancel(ctx)
	for index, start := 0, 0; start < total; index, start = index+1, start+batchSize {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}

		size := batchSize
		if start+size > total {
			size = total - start
		}
		records := make([]catalog.Record, size)
		for i := range records {
			records[i] = p.generateRecord(gc, specs)
		}

		outcome, err := p.insertBatch(batchCtx, table.Name, columns, records, index)
		result.add(outcome)
		p.reporter.BatchDone(table.Name, outcome, start+size, total)
		if err != nil {
			return finish(err)
		}
	}

	return finish(nil)
}

func (p *Populator) maxAttempts() int {
	if p.opts.MaxUniqueAttempts > 0 {
		return p.opts.MaxUniqueAttempts
	}
	return generator.DefaultMaxUniqueAttempts
}

func (p *Populator) generateRecord(gc *generator.GenerationContext, specs []*generator.ColumnSpec) catalog.Record {
	record := make(catalog.Record, len(specs))
	for _, spec := range specs {
		if p.nullable(spec) && gc.Rand().Float64() < p.opts.NullProbability {
			record[spec.Column.Name] = nil
			continue
		}
		if spec.Unique {
			record[spec.Column.Name] = p.engine.GenerateUnique(gc, spec)
		} else {
			record[spec.Column.Name] = p.engine.Generate(gc, spec)
		}
	}
	return record
}

func (p *Populator) nullable(spec *generator.ColumnSpec) bool {
	return p.opts.NullProbability > 0 &&
		spec.Column.Nullable &&
		!spec.Column.PrimaryKey &&
		spec.Strategy != generator.StrategyConfigured
}

// insertBatch tries the whole batch in one transaction, then row by row.
func (p *Populator) insertBatch(ctx context.Context, table string, columns []string, records []catalog.Record, index int) (BatchOutcome, error) {
	outcome := BatchOutcome{
		Index: index,
		Size:  len(records),
		State: BatchBulkAttempted,
	}

	err := p.catalog.BulkInsert(ctx, table, columns, records)
	if err == nil {
		outcome.State = BatchCommitted
		outcome.SuccessCount = len(records)
		return outcome, nil
	}
	outcome.BulkErr = err
	if lost := p.connectionLost(ctx, err); lost != nil {
		outcome.ErrorCount = len(records)
		return outcome, catalog.Unavailable("bulk insert", table, lost)
	}

	outcome.State = BatchRolledBackThenRowRetried
	for i, record := range records {
		err := p.catalog.InsertOne(ctx, table, columns, record)
		if err == nil {
			outcome.SuccessCount++
			continue
		}
		if lost := p.connectionLost(ctx, err); lost != nil {
			outcome.ErrorCount += len(records) - i
			p.settle(&outcome)
			return outcome, catalog.Unavailable("insert", table, lost)
		}

		rowErr := &catalog.ConstraintError{Table: table, Record: record, Err: err}
		outcome.ErrorCount++
		outcome.RowErrors = append(outcome.RowErrors, rowErr)
		p.reporter.RowRejected(table, rowErr)
	}
	p.settle(&outcome)
	return outcome, nil
}

func (p *Populator) settle(o *BatchOutcome) {
	if o.SuccessCount > 0 {
		o.State = BatchPartiallyCommitted
	}
}

// connectionLost returns a non-nil error when err is not about the data and
// the database no longer answers a ping.
func (p *Populator) connectionLost(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if catalog.IsDataError(err) {
		return nil
	}
	if pingErr := p.catalog.Ping(ctx); pingErr != nil {
		return fmt.Errorf("%w (ping: %v)", err, pingErr)
	}
	return nil
}

func (p *Populator) truncate(ctx context.Context, table string) error {
	t, ok := p.catalog.(Truncater)
	if !ok {
		return fmt.Errorf("truncate %q: catalog does not support truncation", table)
	}
	if err := t.TruncateTable(ctx, table); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", table, err)
	}
	p.reporter.Warn(table, "table truncated")
	return nil
}

// selectColumns validates requested columns, or picks every column that the
// database does not fill itself.
func selectColumns(table *catalog.Table, requested []string) ([]string, error) {
	if len(requested) == 0 {
		var columns []string
		for _, col := range table.Columns {
			if col.AutoIncrement {
				continue
			}
			columns = append(columns, col.Name)
		}
		if len(columns) == 0 {
			return nil, &catalog.StructuralError{Table: table.Name, Reason: "no insertable columns"}
		}
		return columns, nil
	}

	seen := make(map[string]bool, len(requested))
	columns := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := table.Column(name); !ok {
			return nil, &catalog.StructuralError{Table: table.Name, Column: name, Reason: "column does not exist", Err: catalog.ErrColumnNotFound}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
	}
	return columns, nil
}

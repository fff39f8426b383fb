package populator

import (
	"context"
	"time"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
)

const DefaultBatchSize = 1000

// Request describes one population run for a single table.
type Request struct {
	Table       string
	RecordCount int
	// Columns to fill; nil means every column that is not auto-incremented.
	Columns       []string
	BatchSize     int
	ColumnConfigs map[string]generator.ColumnConfig
	// Truncate empties the table before generating.
	Truncate bool
}

type BatchState int

const (
	BatchGenerated BatchState = iota
	BatchBulkAttempted
	BatchCommitted
	BatchRolledBackThenRowRetried
	BatchPartiallyCommitted
)

func (s BatchState) String() string {
	switch s {
	case BatchBulkAttempted:
		return "bulk-attempted"
	case BatchCommitted:
		return "committed"
	case BatchRolledBackThenRowRetried:
		return "rolled-back-row-retried"
	case BatchPartiallyCommitted:
		return "partially-committed"
	default:
		return "generated"
	}
}

type BatchOutcome struct {
	Index        int
	Size         int
	SuccessCount int
	ErrorCount   int
	State        BatchState
	// BulkErr is the error that made the bulk insert fall back to rows.
	BulkErr   error
	RowErrors []*catalog.ConstraintError
}

type Result struct {
	Table        string
	Requested    int
	Columns      []string
	// Seed is the effective seed; passing it back reproduces the values.
	Seed         int64
	SuccessCount int
	ErrorCount   int
	Batches      []BatchOutcome
	// Unresolved counts unique values accepted after the attempt ceiling.
	Unresolved int
	Aborted    bool
	Duration   time.Duration
}

func (r *Result) add(o BatchOutcome) {
	r.Batches = append(r.Batches, o)
	r.SuccessCount += o.SuccessCount
	r.ErrorCount += o.ErrorCount
}

// Reporter receives progress from a run. Implementations render it; the
// populator itself never prints.
type Reporter interface {
	RunStarted(table string, records, batches int)
	BatchDone(table string, outcome BatchOutcome, done, total int)
	RowRejected(table string, err *catalog.ConstraintError)
	Warn(table, message string)
	RunFinished(result *Result)
}

type nopReporter struct{}

func (nopReporter) RunStarted(string, int, int)                  {}
func (nopReporter) BatchDone(string, BatchOutcome, int, int)     {}
func (nopReporter) RowRejected(string, *catalog.ConstraintError) {}
func (nopReporter) Warn(string, string)                          {}
func (nopReporter) RunFinished(*Result)                          {}

// Truncater is implemented by adapters that can empty a table.
type Truncater interface {
	TruncateTable(ctx context.Context, table string) error
}

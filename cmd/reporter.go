package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/populator"
	"github.com/fatih/color"
)

// consoleReporter prints population progress the way the rest of the CLI
// talks: one emoji-prefixed line per event.
type consoleReporter struct {
	out     io.Writer
	verbose bool
}

func newConsoleReporter(verbose bool) *consoleReporter {
	return &consoleReporter{out: os.Stdout, verbose: verbose}
}

func (r *consoleReporter) RunStarted(table string, records, batches int) {
	color.New(color.FgCyan, color.Bold).Fprintf(r.out, "🌱 Populating %s: %d records in %d batch(es)\n", table, records, batches)
}

func (r *consoleReporter) BatchDone(table string, o populator.BatchOutcome, done, total int) {
	status := color.GreenString("✓")
	if o.ErrorCount > 0 {
		status = color.YellowString("!")
	}
	fmt.Fprintf(r.out, "   %s batch %d: %d/%d inserted (%s) [%d/%d]\n",
		status, o.Index+1, o.SuccessCount, o.Size, o.State, done, total)
	if r.verbose && o.BulkErr != nil {
		fmt.Fprintf(r.out, "     bulk insert failed: %v\n", o.BulkErr)
	}
}

func (r *consoleReporter) RowRejected(table string, err *catalog.ConstraintError) {
	color.New(color.FgYellow).Fprintf(r.out, "     ⚠️  row rejected: %v\n", err.Err)
	fmt.Fprintf(r.out, "        record: %s\n", formatRecord(err.Record))
}

// formatRecord renders a record as {col: value, ...} in column order.
func formatRecord(record catalog.Record) string {
	parts := make([]string, 0, len(record))
	for _, col := range recordColumns(record) {
		parts = append(parts, fmt.Sprintf("%s: %v", col, displayValue(record[col])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r *consoleReporter) Warn(table, message string) {
	color.New(color.FgYellow).Fprintf(r.out, "⚠️  %s: %s\n", table, message)
}

func (r *consoleReporter) RunFinished(res *populator.Result) {
	line := fmt.Sprintf("%s: %d inserted, %d failed of %d requested in %s",
		res.Table, res.SuccessCount, res.ErrorCount, res.Requested, res.Duration.Round(1e6))
	switch {
	case res.Aborted:
		color.New(color.FgRed, color.Bold).Fprintf(r.out, "❌ %s (aborted)\n", line)
	case res.ErrorCount > 0:
		color.New(color.FgYellow, color.Bold).Fprintf(r.out, "⚠️  %s\n", line)
	default:
		color.New(color.FgGreen, color.Bold).Fprintf(r.out, "✅ %s\n", line)
	}
}

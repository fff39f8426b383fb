package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/config"
	"github.com/Lumos-Labs-HQ/flashseed/internal/export"
	"github.com/Lumos-Labs-HQ/flashseed/internal/populator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	populateCount         int
	populateBatchSize     int
	populateColumns       []string
	populateTruncate      bool
	populatePrerequisites bool
	populateFrom          string
	populateDryRun        bool
	populateOutput        string
	populateSaveRun       bool
	populateSeed          int64
	populateNullProb      float64
	populateVerbose       bool
)

var populateCmd = &cobra.Command{
	Use:   "populate [table]",
	Short: "Generate and insert rows into a table",
	Long: `
Generate rows for a table and insert them in batches. Foreign key columns are
filled from values already present in the referenced tables; use
--with-prerequisites to fill empty referenced tables first.

Examples:
  flashseed populate users -n 500
  flashseed populate orders -n 1000 --with-prerequisites
  flashseed populate orders --columns customer_id,total --batch-size 200
  flashseed populate products --dry-run --output csv
  flashseed populate --from db/export/run_orders_2024-01-01_10-00-00.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		req, opts, err := buildRequest(cmd, s, args)
		if err != nil {
			return err
		}

		if req.Truncate && !populateDryRun {
			force, _ := cmd.Flags().GetBool("force")
			if !force && !confirm(fmt.Sprintf("This will delete every row in %s. Continue?", req.Table)) {
				fmt.Println("Cancelled")
				return nil
			}
		}

		p := populator.New(s.adapter, opts).WithReporter(newConsoleReporter(populateVerbose))

		if populateDryRun {
			return preview(ctx, p, s, req)
		}

		var results []*populator.Result
		if populatePrerequisites {
			results, err = p.PopulateWithPrerequisites(ctx, req, func(table string) populator.Request {
				cols, _ := s.cfg.ColumnConfigs(table)
				return populator.Request{
					RecordCount:   s.cfg.RecordCount(table),
					BatchSize:     s.cfg.BatchSize(table),
					ColumnConfigs: cols,
				}
			})
		} else {
			var res *populator.Result
			res, err = p.Populate(ctx, req)
			if res != nil {
				results = append(results, res)
			}
		}

		if len(results) > 1 {
			printSummary(results)
		}
		if err != nil {
			return err
		}

		if populateSaveRun {
			target := results[len(results)-1]
			path, err := export.WriteRunConfig(s.cfg.ExportPath, &config.RunConfig{
				Table:       target.Table,
				RecordCount: req.RecordCount,
				BatchSize:   req.BatchSize,
				Columns:     target.Columns,
				ColumnSpecs: config.FromGenerator(req.ColumnConfigs),
				Seed:        target.Seed,
			})
			if err != nil {
				return err
			}
			color.Cyan("💾 Run saved: %s", path)
		}
		return nil
	},
}

// buildRequest merges, lowest to highest precedence: config defaults, the
// table's config section, a saved run, command line flags.
func buildRequest(cmd *cobra.Command, s *session, args []string) (populator.Request, populator.Options, error) {
	opts := s.options()
	var req populator.Request

	switch {
	case populateFrom != "":
		rc, err := config.LoadRunConfig(populateFrom)
		if err != nil {
			return req, opts, err
		}
		cols, err := rc.GeneratorConfigs()
		if err != nil {
			return req, opts, err
		}
		req = populator.Request{
			Table:         rc.Table,
			RecordCount:   rc.RecordCount,
			BatchSize:     rc.BatchSize,
			Columns:       rc.Columns,
			ColumnConfigs: cols,
		}
		if rc.Seed != 0 {
			opts.Seed = rc.Seed
		}
		if len(args) == 1 && args[0] != rc.Table {
			return req, opts, fmt.Errorf("run config is for table %s, not %s", rc.Table, args[0])
		}
	case len(args) == 1:
		cols, err := s.cfg.ColumnConfigs(args[0])
		if err != nil {
			return req, opts, err
		}
		req = populator.Request{
			Table:         args[0],
			RecordCount:   s.cfg.RecordCount(args[0]),
			BatchSize:     s.cfg.BatchSize(args[0]),
			ColumnConfigs: cols,
		}
	default:
		return req, opts, fmt.Errorf("a table name or --from is required")
	}

	flags := cmd.Flags()
	if flags.Changed("count") {
		req.RecordCount = populateCount
	}
	if flags.Changed("batch-size") {
		req.BatchSize = populateBatchSize
	}
	if flags.Changed("columns") {
		req.Columns = populateColumns
	}
	if flags.Changed("seed") {
		opts.Seed = populateSeed
	}
	if flags.Changed("null-probability") {
		if populateNullProb < 0 || populateNullProb > 1 {
			return req, opts, fmt.Errorf("--null-probability must be between 0 and 1")
		}
		opts.NullProbability = populateNullProb
	}
	req.Truncate = populateTruncate
	return req, opts, nil
}

func preview(ctx context.Context, p *populator.Populator, s *session, req populator.Request) error {
	n := req.RecordCount
	if populateOutput == "" && n > 10 {
		n = 10
	}
	records, err := p.Preview(ctx, req, n)
	if err != nil {
		return err
	}
	columns := req.Columns
	if len(columns) == 0 && len(records) > 0 {
		columns = recordColumns(records[0])
	}

	if populateOutput != "" {
		path, err := export.WriteRecords(s.cfg.ExportPath, req.Table, columns, records, populateOutput)
		if err != nil {
			return err
		}
		color.Green("✅ %d preview records written: %s", len(records), path)
		return nil
	}

	color.New(color.FgCyan, color.Bold).Printf("🔍 %d of %d records for %s (nothing inserted)\n", len(records), req.RecordCount, req.Table)
	for i, record := range records {
		parts := make([]string, len(columns))
		for j, col := range columns {
			parts[j] = fmt.Sprintf("%s=%v", col, displayValue(record[col]))
		}
		fmt.Printf("  %d. %s\n", i+1, strings.Join(parts, ", "))
	}
	return nil
}

func recordColumns(r catalog.Record) []string {
	columns := make([]string, 0, len(r))
	for col := range r {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func displayValue(v interface{}) interface{} {
	if v == nil {
		return "NULL"
	}
	return v
}

func printSummary(results []*populator.Result) {
	fmt.Println()
	color.New(color.Bold).Println("Summary:")
	for _, res := range results {
		fmt.Printf("  %-30s %6d inserted %6d failed\n", res.Table, res.SuccessCount, res.ErrorCount)
	}
}

func confirm(prompt string) bool {
	color.Yellow("⚠️  %s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(populateCmd)

	populateCmd.Flags().IntVarP(&populateCount, "count", "n", 0, "Number of records to generate (default from config)")
	populateCmd.Flags().IntVar(&populateBatchSize, "batch-size", 0, "Records per insert batch (default from config)")
	populateCmd.Flags().StringSliceVar(&populateColumns, "columns", nil, "Only fill these columns")
	populateCmd.Flags().BoolVar(&populateTruncate, "truncate", false, "Delete existing rows first")
	populateCmd.Flags().BoolVar(&populatePrerequisites, "with-prerequisites", false, "Populate empty referenced tables first")
	populateCmd.Flags().StringVar(&populateFrom, "from", "", "Replay a saved run config")
	populateCmd.Flags().BoolVar(&populateDryRun, "dry-run", false, "Generate records without inserting them")
	populateCmd.Flags().StringVarP(&populateOutput, "output", "o", "", "With --dry-run, write records to the export path as json, csv or sql")
	populateCmd.Flags().BoolVar(&populateSaveRun, "save-run", false, "Save the run config to the export path")
	populateCmd.Flags().Int64Var(&populateSeed, "seed", 0, "Random seed for reproducible values")
	populateCmd.Flags().Float64Var(&populateNullProb, "null-probability", 0, "Chance of NULL in nullable columns (0-1)")
	populateCmd.Flags().BoolVar(&populateVerbose, "verbose", false, "Print the error behind each failed bulk insert")
}

package cmd

import (
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/analyzer"
	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var detectJoinTables bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <table>",
	Short: "Classify a table's foreign keys and check that referenced data exists",
	Long: `
Analyze every foreign key of a table: its cardinality, how many rows and
distinct values the referenced table holds, and what to do before populating.

Examples:
  flashseed analyze orders
  flashseed analyze order_items --detect-join-tables`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		rels, err := analyzer.New(s.adapter, s.cfg.Defaults.SampleLimit).Analyze(ctx, args[0])
		if err != nil {
			return err
		}

		if detectJoinTables {
			table, err := catalog.LoadTable(ctx, s.adapter, args[0])
			if err != nil {
				return err
			}
			if analyzer.LooksLikeJoinTable(table.Name, table.Columns, table.ForeignKeys) {
				analyzer.MarkManyToMany(rels)
				color.Cyan("🔗 %s looks like a join table", table.Name)
			}
		}

		if len(rels) == 0 {
			fmt.Printf("%s has no foreign keys\n", args[0])
			return nil
		}

		for _, rel := range rels {
			header := color.New(color.Bold).Sprintf("%s.%s -> %s.%s", rel.Table, rel.Column, rel.TargetTable, rel.TargetColumn)
			fmt.Printf("%s  [%s]\n", header, rel.Cardinality)
			fmt.Printf("   rows: %d, distinct: %d, sampled: %d\n",
				rel.Availability.RowCount, rel.Availability.DistinctCount, len(rel.Availability.Values))
			switch {
			case rel.Degraded:
				color.Yellow("   ⚠️  %s (%v)", rel.Recommendation, rel.Err)
			case rel.Recommendation == "ready":
				color.Green("   ✅ ready")
			default:
				color.Yellow("   💡 %s", rel.Recommendation)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&detectJoinTables, "detect-join-tables", false, "Treat tables that only link two others as many-to-many")
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/generator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List tables with their row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		tables, err := s.adapter.ListTables(ctx)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			fmt.Println("No tables found in database")
			return nil
		}

		for _, name := range tables {
			count, err := s.adapter.RowCount(ctx, name)
			if err != nil {
				color.Yellow("⚠️  %s: %v", name, err)
				continue
			}
			fmt.Printf("  %-40s %d\n", name, count)
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Show columns, keys and how each column would be generated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		table, err := catalog.LoadTable(ctx, s.adapter, args[0])
		if err != nil {
			return err
		}

		fks := make(map[string]catalog.ForeignKeyEdge, len(table.ForeignKeys))
		for _, fk := range table.ForeignKeys {
			fks[fk.Column] = fk
		}
		engine := generator.NewEngine(0)

		color.New(color.FgCyan, color.Bold).Printf("📋 %s\n", table.Name)
		for _, col := range table.Columns {
			var flags []string
			if col.PrimaryKey {
				flags = append(flags, "PK")
			}
			if col.Unique && !col.PrimaryKey {
				flags = append(flags, "UNIQUE")
			}
			if !col.Nullable {
				flags = append(flags, "NOT NULL")
			}
			if col.AutoIncrement {
				flags = append(flags, "AUTO")
			}

			source := engine.Category(col)
			if fk, ok := fks[col.Name]; ok {
				source = fmt.Sprintf("-> %s.%s", fk.TargetTable, fk.TargetColumn)
			}
			fmt.Printf("  %-30s %-20s %-28s %s\n", col.Name, col.RawType, strings.Join(flags, " "), source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(describeCmd)
}

package cmd

import (
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export [tables...]",
	Short: "Export database tables",
	Long: `
Export tables to the configured export path.
Supported formats: json (default), csv, sql, sqlite

Examples:
  flashseed export
  flashseed export users orders --format sql
  flashseed export --format csv --limit 100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		exportPath, err := export.PerformExport(ctx, s.adapter, s.cfg.ExportPath, exportFormat, args, exportLimit)
		if err != nil {
			return err
		}

		if exportPath != "" {
			fmt.Printf("✅ Export completed: %s\n", exportPath)
		} else {
			fmt.Println("No export created (database is empty)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatJSON, "Export format: json, csv, sql or sqlite")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Maximum rows per table (0 for all)")
}

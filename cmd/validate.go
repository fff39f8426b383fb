package cmd

import (
	"fmt"

	"github.com/Lumos-Labs-HQ/flashseed/internal/validator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <table>",
	Short: "Check that a table and its foreign keys can be populated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		structure, err := validator.ValidateTable(ctx, s.adapter, args[0])
		if err != nil {
			return err
		}
		printReport("structure", structure)
		if !structure.Valid() {
			return structure.Err()
		}

		keys, err := validator.ValidateForeignKeys(ctx, s.adapter, args[0])
		if err != nil {
			return err
		}
		printReport("foreign keys", keys)
		if !keys.Valid() {
			return keys.Err()
		}

		if len(keys.EmptyTables) > 0 {
			color.Cyan("💡 Run: flashseed populate %s --with-prerequisites", args[0])
		}
		color.Green("✅ %s is ready to populate", args[0])
		return nil
	},
}

func printReport(section string, r *validator.Report) {
	fmt.Printf("%s:\n", section)
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		color.Green("  ✓ ok")
		return
	}
	for _, issue := range r.Errors {
		color.Red("  ❌ %s", issue)
	}
	for _, issue := range r.Warnings {
		color.Yellow("  ⚠️  %s", issue)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

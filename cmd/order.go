package cmd

import (
	"fmt"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/Lumos-Labs-HQ/flashseed/internal/resolver"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var priorityCmd = &cobra.Command{
	Use:   "priority <table>",
	Short: "List the empty tables that must be populated before a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		res := resolver.New(s.adapter)
		res.StrictCycles = s.cfg.Defaults.StrictCycles

		resolution, err := res.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		printCycles(resolution.Cycles)

		priority, err := res.PopulationPriority(ctx, args[0])
		if err != nil {
			return err
		}
		if len(priority) == 0 {
			color.Green("✅ %s can be populated now", args[0])
			return nil
		}

		fmt.Printf("Populate these tables before %s:\n", args[0])
		for i, table := range priority {
			fmt.Printf("  %d. %s\n", i+1, table)
		}
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order [tables...]",
	Short: "Print an insertion order for the given tables, or the whole database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		tables := args
		if len(tables) == 0 {
			if tables, err = s.adapter.ListTables(ctx); err != nil {
				return err
			}
		}

		graph, err := resolver.New(s.adapter).BuildGraph(ctx, tables)
		if err != nil {
			return err
		}
		order, cycles := graph.InsertionOrder()
		printCycles(cycles)
		if len(cycles) > 0 && s.cfg.Defaults.StrictCycles {
			return &resolver.CycleError{Cycles: cycles}
		}

		for i, table := range order {
			fmt.Printf("  %d. %s\n", i+1, table)
		}
		return nil
	},
}

func printCycles(cycles [][]string) {
	for _, cycle := range cycles {
		color.Yellow("⚠️  %v: %s", catalog.ErrCyclicDependency, strings.Join(cycle, " -> "))
	}
}

func init() {
	rootCmd.AddCommand(priorityCmd)
	rootCmd.AddCommand(orderCmd)
}

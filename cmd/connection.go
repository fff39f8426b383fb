package cmd

import (
	"fmt"
	"sort"

	"github.com/Lumos-Labs-HQ/flashseed/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var connectionCmd = &cobra.Command{
	Use:   "connection",
	Short: "Manage saved database connections",
}

var connectionSaveCmd = &cobra.Command{
	Use:   "save <name> <url>",
	Short: "Save a connection URL under a name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveConnection(args[0], args[1]); err != nil {
			return err
		}
		color.Green("✅ Saved connection %s", args[0])
		return nil
	},
}

var connectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Connections) == 0 {
			fmt.Println("No saved connections")
			return nil
		}
		names := make([]string, 0, len(cfg.Connections))
		for name := range cfg.Connections {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-20s %s\n", name, cfg.Connections[name])
		}
		return nil
	},
}

var connectionTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Connect to the configured database (or --connection) and ping it",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		color.Green("✅ Connected")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectionCmd)
	connectionCmd.AddCommand(connectionSaveCmd)
	connectionCmd.AddCommand(connectionListCmd)
	connectionCmd.AddCommand(connectionTestCmd)
}

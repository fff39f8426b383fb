package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	connection string
	Version    = "0.4.0"
)

func showBanner() {
	green := color.New(color.FgGreen, color.Bold)

	banner := []string{
		"╔════════════════════════════════════════════════════╗",
		"║   ⚡ flashseed                                      ║",
		"║   dependency-aware test data for SQL databases     ║",
		"║                                                    ║",
		"║   PostgreSQL • MySQL • SQLite                      ║",
		"╚════════════════════════════════════════════════════╝",
	}
	for _, line := range banner {
		green.Println(line)
	}

	fmt.Print("   ")
	color.New(color.FgCyan, color.Bold).Print("Version: ")
	color.New(color.FgYellow, color.Bold).Printf("%s\n", Version)
}

var rootCmd = &cobra.Command{
	Use:   "flashseed",
	Short: "Populate database tables with realistic data that respects foreign keys",
	Long: `
flashseed inspects a live database schema and fills tables with generated rows.
Foreign key columns only receive values that already exist in the referenced
table, unique columns get values that do not collide, and rows the database
rejects are retried one by one so a single bad value never loses a batch.

Database Support:
- PostgreSQL
- MySQL
- SQLite`,
	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("flashseed version %s\n", Version)
			os.Exit(0)
		}

		if len(args) == 0 {
			showBanner()
			fmt.Println()
			cmd.Help()
		}
	},
}

func Execute() error {
	ctx, stop := signalContext()
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps the error taxonomy onto process exit codes.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case catalog.IsCatalogUnavailable(err):
		return 3
	case catalog.IsEmptyDependency(err), catalog.IsStructural(err), errors.Is(err, catalog.ErrCyclicDependency):
		return 2
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./flashseed.config.json)")
	rootCmd.PersistentFlags().StringVarP(&connection, "connection", "C", "", "use a saved connection instead of the configured database")
	rootCmd.PersistentFlags().BoolP("force", "f", false, "Skip confirmations")

	rootCmd.Flags().BoolP("version", "v", false, "Show CLI version")
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env")
		godotenv.Load(".env.local")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("json")
		viper.SetConfigName("flashseed.config")
	}

	viper.SetEnvPrefix("FLASHSEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

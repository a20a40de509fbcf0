// Package cmd provides the CLI commands for tradein-engine.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tradein-engine/internal/config"
	"tradein-engine/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tradein-engine",
	Short: "Trade-in offer session and price-calculation service",
	Long: `tradein-engine runs the sell-side offer session engine for the
used-electronics marketplace: short-lived valuation sessions, catalog-driven
price deltas, and deterministic quote computation.

Examples:
  tradein-engine serve
  tradein-engine catalog validate ./catalog.hcl
  tradein-engine sessions cleanup`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tradein-engine.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tradein-engine %s\n", Version)
	},
}

// Version is the CLI version, set at build time
var Version = "1.0.0"

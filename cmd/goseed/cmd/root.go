package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile     string
	logLevel    string
	logFormat   string
	environment string
	fixturesDir string
	storeDriver string
)

var rootCmd = &cobra.Command{
	Use:   "goseed",
	Short: "Fixture seeding & reconciliation for document stores",
	Long: `A CLI tool that imports portable JSON fixtures into a document store,
resolving cross-collection relations through stable identifiers.

Features:
  - Idempotent create-or-update keyed by stableId
  - Baseline and demo plans with validated dependency order
  - Reset in dependency order, refused in production
  - Deferred relation passes for self-referencing collections
  - Verification and export back to fixtures`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "goseed.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().StringVar(&environment, "env", "",
		"Override environment (resets are refused in production)")
	rootCmd.PersistentFlags().StringVar(&fixturesDir, "fixtures", "",
		"Override fixtures directory")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "",
		"Override store driver (mysql, memory); memory performs a dry run")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel    string
	LogFormat   string
	Environment string
	FixturesDir string
	StoreDriver string
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		Environment: environment,
		FixturesDir: fixturesDir,
		StoreDriver: storeDriver,
	}
}

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
	cfgFile   string
	logLevel  string
	logFormat string
	workers   int
	batchSize int
)

var rootCmd = &cobra.Command{
	Use:   "godelegate",
	Short: "Delegated wallet discovery across chains",
	Long: `A CLI tool that finds every account a set of root keys can act for,
through proxies and multisigs, across several chains, and keeps a wallet
list in sync with what it finds.

Features:
  - Transitive proxy and multisig discovery per chain
  - Cross-chain merge of universal multisigs
  - Deletion safety when a chain cannot be checked
  - MySQL or embedded bbolt wallet store
  - Periodic sync with Prometheus metrics`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "godelegate.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override the number of chains searched concurrently")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override the maximum number of accounts per remote query")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	Workers   int
	BatchSize int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		Workers:   workers,
		BatchSize: batchSize,
	}
}

// Package cmd provides the command-line interface for memsim.
package cmd

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "memsim",
	Short: "Memsim simulates classical memory-management strategies: " +
		"dynamic partition allocation and demand paging.",
	Long: `Memsim simulates classical memory-management strategies. The ` +
		`partition subcommand runs a dynamic partition allocator with ` +
		`first-fit, best-fit, and worst-fit placement. The paging subcommand ` +
		`runs a demand-paged memory with FIFO page replacement. The serve ` +
		`subcommand exposes both engines over HTTP for inspection.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	// A .env file can provide defaults for the flags.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// envUint returns the value of an environment variable as an integer, or the
// fallback when the variable is unset or malformed.
func envUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}

	return n
}

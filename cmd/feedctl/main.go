// Package main is the entry point for feedctl, a command-line client that renders
// InspireHEP literature searches as RSS without running the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the feedctl CLI.
var rootCmd = &cobra.Command{
	Use:   "feedctl",
	Short: "Render InspireHEP literature searches as RSS",
	Long: `feedctl runs the same fetch, map and assemble pipeline as the HTTP server
once and prints the resulting RSS document to stdout. Configuration is read
from INSPIRERSS_* environment variables and config.yaml, like the server.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// Package main implements the entry point for flixd, the daemon that
// mediates between editor clients and a single long-running Flix compiler
// process reachable over one socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "flixd",
	Short: "Job scheduler daemon for the Flix compiler process",
	Long: `flixd mediates between editor clients and a single long-running Flix
compiler process. It batches and coalesces fast-lane mutations, keeps the
compiler's input pipe fed in priority order, and exposes a local debug API
for queue inspection and job submission.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the compiler process and start scheduling",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

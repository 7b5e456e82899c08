// Package main is the entry point for the livesync CLI.
//
// livesync is primarily a library (SDK); this CLI is its debugging
// companion. It connects to a realtime server described by a YAML config,
// mirrors the configured stores and presence topics, and streams every
// change to stdout.
//
// Usage:
//
//	livesync tail -c config.yaml     # Mirror stores and print updates
//	livesync validate -c config.yaml # Validate configuration
//	livesync version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "livesync",
	Short: "A realtime store mirroring client",
	Long: `livesync mirrors server-pushed collections and presence topics
over a websocket and streams every change to stdout.

Quick start:
  1. Create a config file (livesync.yaml)
  2. Run: livesync tail -c livesync.yaml

Example config:
  url: ws://localhost:4000/livesync
  stores:
    - name: messages
      key: id
      sort:
        field: inserted_at
  topics:
    - room:lobby`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this livesync binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("livesync %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}

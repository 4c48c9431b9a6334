// Package main is the entry point for the msgboard CLI.
//
// The same console is available to Go programs through the msgboard
// package; this binary drives it from a YAML file.
//
// Usage:
//
//	msgboard serve -c config.yaml    # Start the console
//	msgboard validate -c config.yaml # Validate configuration
//	msgboard version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Release builds stamp these with -X main.version=... and friends.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd prints help; serve and validate do the work.
var rootCmd = &cobra.Command{
	Use:   "msgboard",
	Short: "A web console for a JSON-RPC message service",
	Long: `msgboard is a small web console for a message service.

It keeps one WebSocket channel open to the service, shows the connection
status, announces pushed messages and lets you send a message to any
recipient.

Quick start:
  1. Create a config file (msgboard.yaml)
  2. Run: msgboard serve -c msgboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  service_url: ws://localhost:9501/message
  account: "7"`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this msgboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "msgboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

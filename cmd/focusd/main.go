// Focusd is the focusfuel daemon. It tracks browser tab activity reported by
// the extension, classifies sessions as productive or distracting, and
// delivers distraction events to the event store, NATS and notification
// queue.
//
// Configuration is loaded from ~/.config/focusfuel/config.yaml and
// FOCUSFUEL_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Serve the HTTP API for the browser extension
//	focusd serve
//
//	# Serve MCP over stdio (and the HTTP API in-process)
//	focusd mcp
//
//	# Classify a single activity snapshot offline
//	focusd classify --url https://youtube.com/watch --time-spent 600
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "focusd",
	Short: "Focus tracking and distraction classification daemon",
	Long: `focusd tracks per-tab browsing activity, classifies each session as
productive or distracting using domain lists, behavioral heuristics and an
optional AI model, and emits distraction events.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/focusfuel/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "focusd %s\n", version)
	fmt.Fprintf(out, "  commit: %s\n", gitCommit)
	fmt.Fprintf(out, "  built:  %s\n", buildDate)
}

// Package commands implements planreviewctl, an operator CLI over the
// HTTP Control Plane, in the corpus's cobra-command-per-file layout
// (cmd/substrate/commands/root.go).
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// daemonAddr is the base URL of a running planreviewd.
	daemonAddr string

	// projectPath scopes the list and watch commands to one project.
	projectPath string

	// outputFormat controls output format (text, json).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "planreviewctl",
	Short: "Operator CLI for the plan review daemon",
	Long: `planreviewctl drives a running planreviewd over its HTTP Control
Plane: list pending reviews, inspect one, approve or request changes,
or watch a review's event stream from a terminal.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&daemonAddr, "addr", "http://localhost:3030",
		"Base URL of the planreviewd HTTP Control Plane",
	)
	rootCmd.PersistentFlags().StringVar(
		&projectPath, "project", "",
		"Project path to scope list and watch to",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(requestChangesCmd)
	rootCmd.AddCommand(watchCmd)
}

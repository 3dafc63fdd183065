package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/obscura-io/obscura/cmd/obscura/commands"
)

var rootCmd = &cobra.Command{
	Use:   "obscura",
	Short: "Obscura - Local-first security document analysis and anonymization",
	Long: `Obscura - Security document analysis and anonymization pipeline.

Obscura runs documents through a fixed sequence of analysis stages backed by
a local inference server: classification, entity extraction, security risk
assessment, anonymization, and report generation. Nothing leaves the machine.

Available commands:
  process - Run a document through the full pipeline
  runs    - List persisted pipeline runs
  version - Show version information

Examples:
  obscura process contract.json           # Analyze a structured document
  obscura process notes.txt -o ./out      # Analyze plain text, write to ./out
  obscura runs --limit 5                  # Show the five most recent runs`,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a TOML config file (defaults to standard locations)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug-level logging")

	rootCmd.AddCommand(commands.ProcessCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

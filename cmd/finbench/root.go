package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentify/finbench/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "finbench",
	Short: "Finance research-agent evaluation harness",
	Long: `Finbench evaluates autonomous research agents on finance question-answering
tasks. It hosts three HTTP services: a tool hub (web search, page fetch, HTML
parsing, scoped key-value storage, numeric extraction), a reference
participant agent and an evaluator that dispatches tasks, grades answers and
writes run artifacts.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "discovery-orch",
		Short: "Discovery Orchestrator - judge-gated research pipeline",
		Long: `Discovery Orchestrator runs multi-phase discovery workflows.
Each run moves a research query through research, hypothesis, validation
and output phases; every phase iterates until a rubric judge passes the
artifact or the iteration budget runs out.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

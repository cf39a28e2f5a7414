package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "purku",
		Short: "Dependency-aware cloud teardown",
		Long: `Purku - Dependency-Aware Cloud Teardown

Purku tears down cloud environments across accounts and regions,
deleting resources tier by tier so dependents always go before the
things they depend on. Protected resources are never touched, every
deletion is verified, and the full audit trail survives the run.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Purku {{.Version}} - Dependency-Aware Cloud Teardown
`)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "purku.yaml", "Path to run configuration")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

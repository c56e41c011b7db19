package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:          "villagebank",
		Short:        "Village bank savings group service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load settings from this file instead of .env")

	rootCmd.AddCommand(
		newServeCmd(&envFile),
		newMigrateCmd(&envFile),
		newTokenCmd(&envFile),
	)
	return rootCmd
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "edc-server",
		Short:        "Maternal CRF validation server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(siteCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(formsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command for the vault API server.
var rootCmd = &cobra.Command{
	Use:   "vaultd",
	Short: "Pandora's Vault backend",
	Long:  `Backend for Pandora's Vault: auth, profiles and per-user learning progress.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

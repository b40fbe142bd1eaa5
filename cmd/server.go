package cmd

import (
	"fmt"
	"os"

	"github.com/pandoras-vault/apiserver/config"
	"github.com/pandoras-vault/apiserver/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serverCmd starts the HTTP API server.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the vault backend server",
	Long: `Starts the vault backend server. Usage:

	vaultd server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		log, err := zap.NewProduction()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = log.Sync() }()

		srv, err := server.New(cmd.Context(), cfg, log)
		if err != nil {
			log.Error("failed to start server", zap.Error(err))
			os.Exit(1)
		}
		log.Info("server listening", zap.Int("port", cfg.ServerPort))
		if err := srv.Start(); err != nil {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

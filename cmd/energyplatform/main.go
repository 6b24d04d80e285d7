package main

import (
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/bher20/energyplatform/internal/config"
	"github.com/bher20/energyplatform/pkg/logging"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "energyplatform",
	Short: "Electricity bill simulator and invoice service for Santander",
	Long: `energyplatform computes electricity bills from the sector rate table,
renders PDF invoices and serves them over HTTP together with the regional
consumption map, dashboard data and news.

Configuration comes from environment variables (PORT, ENERGYPLATFORM_*,
LOG_LEVEL, LOG_FORMAT).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.Setup()
		var err error
		cfg, err = config.FromEnv()
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, workerCmd, migrateCmd, billCmd, ratesCmd, invoiceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

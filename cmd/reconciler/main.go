// Command reconciler runs a single reconciliation pass against the bank provider
// and prints the summary. It is meant to be started by an external scheduler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
	"github.com/username/vertex/backend/src/config"
	"github.com/username/vertex/backend/src/database"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/services"
)

var (
	concurrency int
	skipMigrate bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "reconciler",
		Short:         "Match pending transactions against bank movements",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runReconcile,
	}
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "accounts reconciled in parallel (overrides RECONCILE_CONCURRENCY)")
	rootCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations before the run")

	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() error {
	config.LoadJobConfig()
	// Logs go to stderr so stdout carries only the report.
	logger.InitLoggerWithWriter(config.Cfg.LogLevel, os.Stderr)

	conn, err := database.Open(config.Cfg.DatabasePath)
	if err != nil {
		return err
	}
	database.DB = conn
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return err
	}
	defer database.DB.Close()

	if !skipMigrate {
		if err := database.Migrate(database.DB); err != nil {
			return err
		}
	}

	workers := config.Cfg.ReconcileConcurrency
	if concurrency > 0 {
		workers = concurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway := services.NewInterBankingGateway(services.InterBankingConfigFromApp(config.Cfg))
	reconciler := services.NewReconciliationService(
		gateway,
		services.NewSQLStore(database.DB),
		cache.New(config.Cfg.ReportCacheTTL, services.CacheCleanupInterval),
		services.ReconciliationConfig{Concurrency: workers, CacheTTL: config.Cfg.ReportCacheTTL},
	)

	report, err := reconciler.Run(ctx, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if report.FailedAccounts > 0 {
		return fmt.Errorf("%d of %d accounts failed", report.FailedAccounts, len(report.Accounts))
	}
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(); err != nil {
				return err
			}
			defer database.DB.Close()
			if err := database.Migrate(database.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied.")
			return nil
		},
	}
}

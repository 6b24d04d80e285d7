package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/bher20/energyplatform/internal/alerting"
	"github.com/bher20/energyplatform/internal/api"
	"github.com/bher20/energyplatform/internal/artifact"
	"github.com/bher20/energyplatform/internal/auth"
	"github.com/bher20/energyplatform/internal/billing"
	"github.com/bher20/energyplatform/internal/cron"
	"github.com/bher20/energyplatform/internal/events"
	"github.com/bher20/energyplatform/internal/geocoding"
	"github.com/bher20/energyplatform/internal/invoice"
	"github.com/bher20/energyplatform/internal/metrics"
	"github.com/bher20/energyplatform/internal/migrate"
	"github.com/bher20/energyplatform/internal/notification"
	"github.com/bher20/energyplatform/internal/storage"
	"github.com/bher20/energyplatform/internal/tariff"
)

var noWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the retention worker",
	RunE:  runServe,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the invoice retention worker",
	RunE:  runWorker,
}

var workerOnce bool

func init() {
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "Do not start the retention worker in-process")
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "Run a single retention pass and exit")
}

// openStorage runs goose migrations first when auto-migration is enabled for
// a SQL backend, then opens the store.
func openStorage(ctx context.Context) (storage.Storage, error) {
	if cfg.Storage.AutoMigrate && cfg.Storage.Driver != "memory" {
		if err := migrate.Up(ctx, cfg.Storage.Driver, cfg.Storage.DSN); err != nil {
			logger.Error("auto-migration failed", "error", err)
		}
	}
	return storage.Open(ctx, cfg.Storage)
}

func newWorker(st storage.Storage) *cron.Worker {
	alerter := alerting.NewAlerter(cfg.Alerting, logger)
	return cron.NewWorker(st, cfg.Cron, alerter, clockwork.NewRealClock(), logger)
}

type statsProvider interface {
	Stats() (sql.DBStats, error)
}

func reportPoolMetrics(ctx context.Context, st storage.Storage, driver string) {
	sp, ok := st.(statsProvider)
	if !ok {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s, err := sp.Stats(); err == nil {
				metrics.UpdateDBPoolMetrics(driver, s)
			}
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rates, err := tariff.Load(cfg.RatesFile)
	if err != nil {
		return err
	}

	st, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	artifacts, err := artifact.Open(ctx, cfg.Artifact)
	if err != nil {
		return err
	}

	geocoder, err := geocoding.Open(ctx, cfg.Geocoding)
	if err != nil {
		// the map still works without search
		logger.Warn("geocoding disabled", "error", err)
		geocoder = nil
	}

	publisher := events.Open(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	clock := clockwork.NewRealClock()
	authSvc, err := auth.NewService(st, auth.WithClock(clock))
	if err != nil {
		return err
	}

	mux := api.NewMux(api.Deps{
		Calculator: billing.NewCalculator(rates),
		Generator: invoice.NewGenerator(
			invoice.WithClock(clock),
			invoice.WithLocation(cfg.Location),
			invoice.WithBranding(cfg.PlatformName, cfg.Organization),
		),
		Storage:   st,
		Artifacts: artifacts,
		Geocoder:  geocoder,
		Events:    publisher,
		Auth:      authSvc,
		Notifier:  notification.NewService(st),
		Logger:    logger,
		Clock:     clock,
		Location:  cfg.Location,
		DBDriver:  cfg.Storage.Driver,
	})

	if !noWorker {
		go func() {
			if err := newWorker(st).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("retention worker stopped", "error", err)
			}
		}()
	}
	go reportPoolMetrics(ctx, st, cfg.Storage.Driver)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("energyplatform listening", "addr", srv.Addr, "db", cfg.Storage.Driver,
			"map_provider", cfg.Geocoding.Provider, "artifacts", cfg.Artifact.Kind)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	w := newWorker(st)
	if workerOnce {
		purged, skipped, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("retention pass finished", "purged", purged, "skipped", skipped)
		return nil
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

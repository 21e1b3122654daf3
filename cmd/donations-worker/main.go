package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"donations/internal/amqp"
	"donations/internal/backend"
	"donations/internal/cli"
	"donations/internal/log"
	"donations/internal/services"
	"donations/internal/sheets"
	gsheet "donations/internal/sheets/google"
	"donations/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := cli.Bootstrap()
	if err != nil {
		return err
	}
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting donations-worker")

	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required by the worker")
	}

	ctx := context.Background()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	var ledger sheets.Ledger
	if cfg.LedgerEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.LedgerSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		ledger = client
		logger.Info("Google Sheets ledger enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets ledger disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	processor := worker.NewProcessor(res.Store, ledger, services.NewReconciler(res.Store, logger), logger)

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer client.Close()

	var scheduler *worker.Scheduler
	if cfg.ReconcileSchedule != "" {
		scheduler, err = worker.NewScheduler(cfg.ReconcileSchedule, func(ctx context.Context) error {
			_, err := processor.Reconcile(ctx)
			return err
		}, logger)
		if err != nil {
			return err
		}
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if scheduler != nil {
			if err := scheduler.Stop(ctx); err != nil {
				logger.Error("Scheduler stop failed", log.FieldError, err)
			}
		}
	})

	if scheduler != nil {
		if err := scheduler.Start(shutdownCtx); err != nil {
			return err
		}
	}

	consumeErr := make(chan error, 1)
	go func() {
		consumeErr <- client.Consume(shutdownCtx, cfg.WorkerPrefetch, processor.Handle)
	}()

	select {
	case err := <-consumeErr:
		if !errors.Is(err, context.Canceled) {
			if scheduler != nil {
				_ = scheduler.Stop(context.Background())
			}
			return fmt.Errorf("message consumption failed: %w", err)
		}
	case <-shutdownCtx.Done():
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker shutdown complete")
	return nil
}

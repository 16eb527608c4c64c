package main

import (
	"context"
	"errors"
	"os"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentWorker)
	logger.Info("Starting expensetracker-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// the worker consumes events, it never publishes them
	backendCfg.PublishEvents = false

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}

	var exporter sheets.ExpenseExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			_ = res.Cleanup()
			os.Exit(1)
		}
		exporter = sheetsClient
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	retention := worker.NewRetentionJob(res.Deps.Notifications, cfg.NotificationRetention, logger)
	events := worker.NewEventWorker(res.Repo, res.Monitor, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := retention.Stop(shutdownCtx); err != nil {
			logger.Error("Retention job stop error", applog.FieldError, err)
		}
		if err := consumer.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	if err := retention.Start(ctx, cfg.RetentionSchedule); err != nil {
		logger.Error("Failed to schedule retention job", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := consumer.ConsumeExpenseEvents(ctx, events.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"retention_schedule", cfg.RetentionSchedule)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}

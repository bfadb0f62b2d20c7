package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerinsight/internal/amqp"
	"ledgerinsight/internal/cli"
	"ledgerinsight/internal/config"
	apphttp "ledgerinsight/internal/http"
	"ledgerinsight/internal/insight"
	"ledgerinsight/internal/log"
	"ledgerinsight/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		cli.Fatal(logger, "Server error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	ledger, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	engine := insight.NewEngine(cfg.InsightOptions(), nil)

	// AMQP is optional: without it the API still serves reports.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPReportRoutingKey, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without it", log.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	opts := apphttp.Options{
		Ledger:  ledger.Backend,
		Engine:  engine,
		Logger:  logger,
		Metrics: cfg.MetricsEnabled,
	}
	if amqpClient != nil {
		opts.Notifier = amqpClient
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting insight server", "port", cfg.Port, "backend", cfg.LedgerBackend, "period_mode", cfg.PeriodMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if amqpClient != nil {
		reports := worker.NewReportWorker(ledger.Backend, engine, amqpClient, logger)
		g.Go(func() error {
			err := amqpClient.ConsumeLedgerChanges(gctx, reports.HandleLedgerChanged)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		if cfg.ReportInterval > 0 {
			g.Go(func() error { return reports.RunPeriodic(gctx, cfg.ReportInterval) })
		}
	}

	return g.Wait()
}

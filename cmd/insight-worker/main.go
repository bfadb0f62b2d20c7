package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"ledgerinsight/internal/amqp"
	"ledgerinsight/internal/cli"
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
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker requires AMQP", errors.New("AMQP_URL is not set"))
	}

	logger.Info("Starting insight-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	ledger, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open ledger", err)
	}
	defer ledger.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPReportRoutingKey, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	engine := insight.NewEngine(cfg.InsightOptions(), nil)
	reports := worker.NewReportWorker(ledger.Backend, engine, amqpClient, logger)

	// Publish once on startup so consumers have a current report even if
	// change notifications were missed while the worker was down.
	if err := reports.PublishCurrent(ctx); err != nil {
		logger.Error("Startup report failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
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

	if err := g.Wait(); err != nil {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	logger.Info("Worker shutdown complete")
}

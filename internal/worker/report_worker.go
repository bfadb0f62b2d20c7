package worker

import (
	"context"
	"fmt"
	"time"

	"ledgerinsight/internal/amqp"
	"ledgerinsight/internal/insight"
	"ledgerinsight/internal/ledger"
	"ledgerinsight/internal/log"
	"ledgerinsight/internal/metrics"
)

// ReportPublisher is the outbound side of the worker.
type ReportPublisher interface {
	PublishReport(ctx context.Context, msg *amqp.ReportMessage) error
}

// ReportWorker recomputes the insight report whenever the ledger changes and
// publishes the result.
type ReportWorker struct {
	ledger    ledger.Reader
	engine    *insight.Engine
	publisher ReportPublisher
	logger    *log.Logger
}

func NewReportWorker(reader ledger.Reader, engine *insight.Engine, publisher ReportPublisher, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportWorker{
		ledger:    reader,
		engine:    engine,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChanged processes a single ledger change notification. The
// report is evaluated at msg.At when set, otherwise at the engine clock.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		"transaction_id", msg.TransactionID,
		"timestamp", msg.Timestamp)

	at := msg.At
	if at.IsZero() {
		at = w.engine.Now()
	}
	return w.publish(ctx, at, msg.TransactionID)
}

// PublishCurrent builds and publishes the report for the configured period
// at the current clock reading.
func (w *ReportWorker) PublishCurrent(ctx context.Context) error {
	return w.publish(ctx, w.engine.Now(), "")
}

// RunPeriodic publishes a report every interval until ctx is done. This is a
// backstop for lost change notifications.
func (w *ReportWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.PublishCurrent(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic report failed", log.FieldError, err)
			}
		}
	}
}

func (w *ReportWorker) publish(ctx context.Context, at time.Time, triggeredBy string) error {
	started := time.Now()

	txs, err := w.ledger.Transactions(ctx)
	if err != nil {
		metrics.LedgerLoadErrors.Inc()
		return fmt.Errorf("load ledger: %w", err)
	}

	report := w.engine.ReportAt(txs, w.engine.DefaultRequest(), at)
	metrics.ObserveReport(metrics.SourceWorker, started, report)

	if err := w.publisher.PublishReport(ctx, amqp.NewReportMessage(report, triggeredBy)); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}

	fields := log.NewFields().
		WithOperation(log.OpReport).
		WithReport(report.Period.Start.Format(time.RFC3339), report.Period.End.Format(time.RFC3339),
			len(txs), len(report.Installments.Items), len(report.Recurring.Items), len(report.Outliers.Items))
	w.logger.InfoContext(ctx, "Report published", fields.ToSlice()...)
	return nil
}

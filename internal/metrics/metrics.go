// Package metrics exposes Prometheus instrumentation for report generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledgerinsight/internal/insight"
)

const namespace = "ledgerinsight"

// Report sources.
const (
	SourceHTTP   = "http"
	SourceWorker = "worker"
	SourceCLI    = "cli"
)

// Flagged item kinds.
const (
	KindInstallments = "installments"
	KindRecurring    = "recurring"
	KindOutliers     = "outliers"
)

var ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "reports_total",
	Help:      "Total insight reports computed, by source.",
}, []string{"source"})

var ReportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "report_duration_seconds",
	Help:      "Time spent computing an insight report.",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
})

var FlaggedItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "flagged_items",
	Help:      "Items in the most recent report, by kind.",
}, []string{"kind"})

var LedgerLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "ledger_load_errors_total",
	Help:      "Total failures loading the ledger snapshot.",
})

// ObserveReport records one computed report.
func ObserveReport(source string, started time.Time, r insight.Report) {
	ReportsTotal.WithLabelValues(source).Inc()
	ReportDuration.Observe(time.Since(started).Seconds())
	FlaggedItems.WithLabelValues(KindInstallments).Set(float64(len(r.Installments.Items)))
	FlaggedItems.WithLabelValues(KindRecurring).Set(float64(len(r.Recurring.Items)))
	FlaggedItems.WithLabelValues(KindOutliers).Set(float64(len(r.Outliers.Items)))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

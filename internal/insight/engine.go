package insight

import (
	"time"

	"ledgerinsight/internal/core"
)

// Options is the whole tunable surface of the engine.
type Options struct {
	PeriodMode PeriodMode       `toml:"period_mode"`
	WeekStart  WeekStart        `toml:"week_start"`
	Recurring  RecurringOptions `toml:"recurring"`
	Outlier    OutlierOptions   `toml:"outlier"`
}

// Report bundles every view for one period.
type Report struct {
	Period       core.Period        `json:"period"`
	GeneratedAt  time.Time          `json:"generatedAt"`
	Installments InstallmentView    `json:"installments"`
	Active       []core.Installment `json:"activeInstallments"`
	Recurring    RecurringView      `json:"recurring"`
	Outliers     OutlierView        `json:"outliers"`
}

func DefaultOptions() Options {
	return Options{
		PeriodMode: MonthMode,
		WeekStart:  Monday,
		Recurring:  DefaultRecurringOptions(),
		Outlier:    DefaultOutlierOptions(),
	}
}

// Engine binds options to a clock. It keeps no state between calls.
type Engine struct {
	opts  Options
	clock Clock
}

// NewEngine returns an engine reading time from clock. A nil clock uses the
// system clock.
func NewEngine(opts Options, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{opts: opts, clock: clock}
}

func (e *Engine) Options() Options { return e.opts }

// At returns a copy of the engine frozen at now.
func (e *Engine) At(now time.Time) *Engine {
	return &Engine{opts: e.opts, clock: FixedClock(now)}
}

// WithOutlierFactor returns a copy using factor for outlier detection.
// Non-positive factors leave the engine unchanged.
func (e *Engine) WithOutlierFactor(factor float64) *Engine {
	if factor <= 0 {
		return e
	}
	opts := e.opts
	opts.Outlier.Factor = factor
	return &Engine{opts: opts, clock: e.clock}
}

func (e *Engine) Now() time.Time { return e.clock.Now() }

// DefaultRequest is the configured period for "now": the current month or
// week depending on PeriodMode.
func (e *Engine) DefaultRequest() PeriodRequest {
	return PeriodRequest{Mode: e.opts.PeriodMode, WeekStart: e.opts.WeekStart}
}

func (e *Engine) Period(req PeriodRequest) core.Period {
	if req.WeekStart == "" {
		req.WeekStart = e.opts.WeekStart
	}
	return Resolve(req, e.clock.Now())
}

func (e *Engine) Installments(txs []core.Transaction, period core.Period) InstallmentView {
	return ProjectInstallments(txs, period, e.clock.Now())
}

func (e *Engine) ActiveInstallments(txs []core.Transaction) []core.Installment {
	return ActiveInstallments(txs, e.clock.Now())
}

func (e *Engine) Recurring(txs []core.Transaction, period core.Period) RecurringView {
	return DetectRecurring(txs, period, e.clock.Now(), e.opts.Recurring)
}

// Outliers uses factor when positive, the configured factor otherwise.
func (e *Engine) Outliers(txs []core.Transaction, period core.Period, factor float64) OutlierView {
	opts := e.opts.Outlier
	if factor > 0 {
		opts.Factor = factor
	}
	return DetectOutliers(txs, period, e.clock.Now(), opts)
}

// Report computes every view against one reading of the clock.
func (e *Engine) Report(txs []core.Transaction, req PeriodRequest) Report {
	return e.ReportAt(txs, req, e.clock.Now())
}

// ReportAt is Report evaluated at an explicit instant, for replays.
func (e *Engine) ReportAt(txs []core.Transaction, req PeriodRequest, now time.Time) Report {
	if req.WeekStart == "" {
		req.WeekStart = e.opts.WeekStart
	}
	period := Resolve(req, now)
	return Report{
		Period:       period,
		GeneratedAt:  now,
		Installments: ProjectInstallments(txs, period, now),
		Active:       ActiveInstallments(txs, now),
		Recurring:    DetectRecurring(txs, period, now, e.opts.Recurring),
		Outliers:     DetectOutliers(txs, period, now, e.opts.Outlier),
	}
}

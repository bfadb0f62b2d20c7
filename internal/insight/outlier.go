package insight

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgerinsight/internal/core"
)

const (
	DefaultOutlierWindowDays = 90
	DefaultOutlierFactor     = 2.0
)

// OutlierOptions tunes outlier detection.
type OutlierOptions struct {
	WindowDays int     `toml:"window_days"`
	Factor     float64 `toml:"factor"`
}

// Outlier is a flagged expense together with the baseline it was compared to.
type Outlier struct {
	core.Transaction
	Baseline decimal.Decimal `json:"baseline"`
	Ratio    decimal.Decimal `json:"ratio"`
}

// OutlierView lists flagged expenses, largest first.
type OutlierView struct {
	Items []Outlier       `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func DefaultOutlierOptions() OutlierOptions {
	return OutlierOptions{
		WindowDays: DefaultOutlierWindowDays,
		Factor:     DefaultOutlierFactor,
	}
}

func (o OutlierOptions) withDefaults() OutlierOptions {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultOutlierWindowDays
	}
	if o.Factor <= 0 {
		o.Factor = DefaultOutlierFactor
	}
	return o
}

// Baselines returns the mean expense amount per category over the trailing
// window ending at now. Categories with no expenses in the window are absent.
//
// The mean is not trimmed: one large past expense raises the baseline and
// can hide later spikes in the same category.
func Baselines(txs []core.Transaction, now time.Time, windowDays int) map[string]decimal.Decimal {
	if windowDays <= 0 {
		windowDays = DefaultOutlierWindowDays
	}
	window := core.TrailingWindow(now, windowDays)

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int64)
	for _, tx := range txs {
		if tx.Type != core.Expense || !window.Contains(tx.Date.Time) {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
		counts[tx.Category]++
	}

	out := make(map[string]decimal.Decimal, len(sums))
	for cat, sum := range sums {
		out[cat] = sum.Div(decimal.NewFromInt(counts[cat]))
	}
	return out
}

// DetectOutliers flags period expenses that reach Factor times their
// category baseline.
func DetectOutliers(txs []core.Transaction, period core.Period, now time.Time, opts OutlierOptions) OutlierView {
	opts = opts.withDefaults()
	baselines := Baselines(txs, now, opts.WindowDays)
	factor := decimal.NewFromFloat(opts.Factor)

	view := OutlierView{Items: []Outlier{}, Total: decimal.Zero}
	for _, tx := range txs {
		if tx.Type != core.Expense || !period.Contains(tx.Date.Time) {
			continue
		}
		baseline, ok := baselines[tx.Category]
		if !ok || !baseline.IsPositive() {
			continue
		}
		if tx.Amount.LessThan(factor.Mul(baseline)) {
			continue
		}
		view.Items = append(view.Items, Outlier{
			Transaction: tx,
			Baseline:    baseline,
			Ratio:       tx.Amount.DivRound(baseline, 4),
		})
		view.Total = view.Total.Add(tx.Amount)
	}

	sort.SliceStable(view.Items, func(i, j int) bool {
		a, b := view.Items[i], view.Items[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID < b.ID
	})
	return view
}

package insight

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerinsight/internal/core"
)

const (
	DefaultRecurringWindowDays     = 90
	DefaultRecurringMinOccurrences = 2
)

// RecurringOptions tunes recurrence detection.
type RecurringOptions struct {
	WindowDays     int `toml:"window_days"`
	MinOccurrences int `toml:"min_occurrences"`
}

// RecurringGroup describes a description that qualified as recurring.
type RecurringGroup struct {
	Key           string          `json:"key"`
	Count         int             `json:"count"`
	LastSeen      time.Time       `json:"lastSeen"`
	AverageAmount decimal.Decimal `json:"averageAmount"`
}

// RecurringView holds the period's transactions that belong to a recurring
// group, newest first.
type RecurringView struct {
	Items  []core.Transaction `json:"items"`
	Total  decimal.Decimal    `json:"total"`
	Groups []RecurringGroup   `json:"groups"`
}

func DefaultRecurringOptions() RecurringOptions {
	return RecurringOptions{
		WindowDays:     DefaultRecurringWindowDays,
		MinOccurrences: DefaultRecurringMinOccurrences,
	}
}

func (o RecurringOptions) withDefaults() RecurringOptions {
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultRecurringWindowDays
	}
	// A single occurrence is never a pattern.
	if o.MinOccurrences < 2 {
		o.MinOccurrences = DefaultRecurringMinOccurrences
	}
	return o
}

// NormalizeDescription is the grouping key for recurrence.
func NormalizeDescription(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// RecurringGroups groups the transactions inside the trailing window by
// normalized description and keeps the groups with enough members.
func RecurringGroups(txs []core.Transaction, now time.Time, opts RecurringOptions) map[string]RecurringGroup {
	opts = opts.withDefaults()
	window := core.TrailingWindow(now, opts.WindowDays)

	type acc struct {
		count    int
		sum      decimal.Decimal
		lastSeen time.Time
	}
	byKey := make(map[string]*acc)
	for _, tx := range txs {
		if !window.Contains(tx.Date.Time) {
			continue
		}
		key := NormalizeDescription(tx.Description)
		if key == "" {
			continue
		}
		a, ok := byKey[key]
		if !ok {
			a = &acc{sum: decimal.Zero}
			byKey[key] = a
		}
		a.count++
		a.sum = a.sum.Add(tx.Amount)
		if tx.Date.After(a.lastSeen) {
			a.lastSeen = tx.Date.Time
		}
	}

	groups := make(map[string]RecurringGroup)
	for key, a := range byKey {
		if a.count < opts.MinOccurrences {
			continue
		}
		groups[key] = RecurringGroup{
			Key:           key,
			Count:         a.count,
			LastSeen:      a.lastSeen,
			AverageAmount: a.sum.Div(decimal.NewFromInt(int64(a.count))),
		}
	}
	return groups
}

// DetectRecurring returns the transactions dated inside period whose
// description recurs in the trailing window ending at now. The period and the
// window are independent.
func DetectRecurring(txs []core.Transaction, period core.Period, now time.Time, opts RecurringOptions) RecurringView {
	groups := RecurringGroups(txs, now, opts)
	view := RecurringView{Items: []core.Transaction{}, Total: decimal.Zero, Groups: []RecurringGroup{}}

	for _, tx := range txs {
		if !period.Contains(tx.Date.Time) {
			continue
		}
		if _, ok := groups[NormalizeDescription(tx.Description)]; !ok {
			continue
		}
		view.Items = append(view.Items, tx)
		view.Total = view.Total.Add(tx.Amount)
	}
	sort.SliceStable(view.Items, func(i, j int) bool {
		a, b := view.Items[i], view.Items[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID < b.ID
	})

	for _, g := range groups {
		view.Groups = append(view.Groups, g)
	}
	sort.Slice(view.Groups, func(i, j int) bool { return view.Groups[i].Key < view.Groups[j].Key })
	return view
}

package insight

import (
	"time"

	"github.com/shopspring/decimal"

	"ledgerinsight/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func expense(id string, when time.Time, desc, category string, amount int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Date:        core.Date{Time: when},
		Description: desc,
		Amount:      decimal.NewFromInt(amount),
		Type:        core.Expense,
		Category:    category,
		AccountID:   "acc-1",
	}
}

func installment(id string, when time.Time, amount int64, months int) core.Transaction {
	tx := expense(id, when, "plan "+id, "Shopping", amount)
	tx.AccountID = "credit-card"
	tx.InstallmentMonths = &months
	return tx
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

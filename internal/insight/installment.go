package insight

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgerinsight/internal/core"
)

// InstallmentDue is one projected monthly payment falling inside a period.
type InstallmentDue struct {
	SourceID        string          `json:"sourceId"`
	Description     string          `json:"description"`
	PaymentDate     time.Time       `json:"paymentDate"`
	MonthlyPayment  decimal.Decimal `json:"monthlyPayment"`
	RemainingMonths int             `json:"remainingMonths"`
	AccountID       string          `json:"accountId"`
}

// InstallmentView lists the dues of a period ordered by payment date.
type InstallmentView struct {
	Items []InstallmentDue `json:"items"`
	Total decimal.Decimal  `json:"total"`
}

// Schedule returns every payment date of an installment purchase, one per
// month starting at the purchase date. Non-installment transactions have no
// schedule.
func Schedule(tx core.Transaction) []time.Time {
	if !tx.IsInstallment() {
		return nil
	}
	dates := make([]time.Time, tx.Months())
	for k := range dates {
		dates[k] = core.AddCalendarMonths(tx.Date.Time, k)
	}
	return dates
}

// RemainingMonths counts the months still to be paid at now using the
// calendar month difference. A result <= 0 means the plan is retired.
func RemainingMonths(tx core.Transaction, now time.Time) int {
	return tx.Months() - core.MonthsElapsed(tx.Date.Time, now)
}

// ProjectInstallments returns, for each running installment plan, the first
// payment that lands inside period.
func ProjectInstallments(txs []core.Transaction, period core.Period, now time.Time) InstallmentView {
	view := InstallmentView{Items: []InstallmentDue{}, Total: decimal.Zero}

	for _, tx := range txs {
		if !tx.IsInstallment() {
			continue
		}
		remaining := RemainingMonths(tx, now)
		if remaining <= 0 {
			continue
		}
		months := tx.Months()
		for k := 0; k < months; k++ {
			due := core.AddCalendarMonths(tx.Date.Time, k)
			if due.After(period.End) {
				break
			}
			if due.Before(period.Start) {
				continue
			}
			monthly := core.MonthlyPayment(tx.Amount, months)
			view.Items = append(view.Items, InstallmentDue{
				SourceID:        tx.ID,
				Description:     tx.Description,
				PaymentDate:     due,
				MonthlyPayment:  monthly,
				RemainingMonths: remaining,
				AccountID:       tx.AccountID,
			})
			view.Total = view.Total.Add(monthly)
			break
		}
	}

	sort.SliceStable(view.Items, func(i, j int) bool {
		a, b := view.Items[i], view.Items[j]
		if !a.PaymentDate.Equal(b.PaymentDate) {
			return a.PaymentDate.Before(b.PaymentDate)
		}
		return a.SourceID < b.SourceID
	})
	return view
}

// ActiveInstallments lists the plans that still have payments left at now,
// oldest purchase first.
func ActiveInstallments(txs []core.Transaction, now time.Time) []core.Installment {
	out := []core.Installment{}
	for _, tx := range txs {
		if !tx.IsInstallment() {
			continue
		}
		remaining := RemainingMonths(tx, now)
		if remaining <= 0 {
			continue
		}
		out = append(out, core.Installment{
			SourceTransactionID: tx.ID,
			Description:         tx.Description,
			TotalAmount:         tx.Amount,
			MonthlyPayment:      core.MonthlyPayment(tx.Amount, tx.Months()),
			StartDate:           tx.Date.Time,
			TotalMonths:         tx.Months(),
			RemainingMonths:     remaining,
			AccountID:           tx.AccountID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].SourceTransactionID < out[j].SourceTransactionID
	})
	return out
}

// Package core provides money parsing and the entry-time installment fee.
//
// Amounts are decimal.Decimal throughout so fee and per-month splits stay exact.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	// Fee rates applied to non interest-free installment plans.
	shortPlanFeeRate = decimal.RequireFromString("0.025")
	longPlanFeeRate  = decimal.RequireFromString("0.035")
)

// ShortPlanMaxMonths is the longest plan that still uses the lower fee rate.
const ShortPlanMaxMonths = 5

// ParseAmount converts a decimal string to a non-negative amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Sum adds up amounts. An empty list sums to zero.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// FeeRate returns the fee rate for a plan of the given length.
func FeeRate(months int) decimal.Decimal {
	if months <= ShortPlanMaxMonths {
		return shortPlanFeeRate
	}
	return longPlanFeeRate
}

// InstallmentFee computes the fee charged once when an installment purchase is
// entered, and the amount stored on the transaction (principal + fee).
// Single-month purchases are not plans and carry no fee.
func InstallmentFee(principal decimal.Decimal, months int, interestFree bool) (fee, stored decimal.Decimal) {
	if interestFree || months <= 1 {
		return decimal.Zero, principal
	}
	fee = principal.Mul(FeeRate(months))
	return fee, principal.Add(fee)
}

// MonthlyPayment splits a stored amount evenly across the plan.
func MonthlyPayment(stored decimal.Decimal, months int) decimal.Decimal {
	if months <= 1 {
		return stored
	}
	return stored.Div(decimal.NewFromInt(int64(months)))
}

// NewInstallmentPurchase builds a validated transaction for a purchase split
// across months, folding the fee into Amount.
func NewInstallmentPurchase(tx Transaction, principal decimal.Decimal, months int, interestFree bool) (Transaction, error) {
	if months < 1 {
		return Transaction{}, ErrInvalidInstallmentMonths
	}
	if principal.IsNegative() {
		return Transaction{}, ErrNegativeAmount
	}
	_, stored := InstallmentFee(principal, months, interestFree)
	tx.Amount = stored
	tx.InstallmentMonths = &months
	tx.IsInterestFree = &interestFree
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

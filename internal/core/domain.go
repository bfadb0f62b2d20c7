package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income   TransactionType = "INCOME"
	Expense  TransactionType = "EXPENSE"
	Transfer TransactionType = "TRANSFER"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is a ledger record as supplied by the ledger service.
	// It is never mutated once read.
	Transaction struct {
		ID                string          `json:"id"`
		Date              Date            `json:"date"`
		Description       string          `json:"description"`
		Amount            decimal.Decimal `json:"amount"`
		Type              TransactionType `json:"type"`
		Category          string          `json:"category"`
		AccountID         string          `json:"accountId"`
		InstallmentMonths *int            `json:"installmentMonths,omitempty"`
		IsInterestFree    *bool           `json:"isInterestFree,omitempty"`
	}

	// Installment is the derived view of a multi-month purchase that still has
	// payments left.
	Installment struct {
		SourceTransactionID string          `json:"sourceTransactionId"`
		Description         string          `json:"description"`
		TotalAmount         decimal.Decimal `json:"totalAmount"`
		MonthlyPayment      decimal.Decimal `json:"monthlyPayment"`
		StartDate           time.Time       `json:"startDate"`
		TotalMonths         int             `json:"totalMonths"`
		RemainingMonths     int             `json:"remainingMonths"`
		AccountID           string          `json:"accountId"`
	}
)

var (
	ErrInvalidDate              = errors.New("invalid date")
	ErrEmptyID                  = errors.New("empty transaction id")
	ErrNegativeAmount           = errors.New("amount must not be negative")
	ErrInvalidType              = errors.New("invalid transaction type")
	ErrInvalidInstallmentMonths = errors.New("installment months must be at least 1")
	ErrDescriptionTooLong       = errors.New("description too long (max 200 characters)")
)

// MaxDescriptionLength bounds Transaction.Description, in bytes.
const MaxDescriptionLength = 200

// Accepted layouts for transaction dates, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts either a calendar date (2006-01-02) or a datetime.
// Calendar dates are interpreted as midnight UTC. Datetimes keep their wall
// clock and are moved onto the UTC calendar, so "2025-03-01T20:00:00-05:00"
// stays on March 1.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: CalendarTime(t)}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// String renders calendar dates without a time component.
func (d Date) String() string {
	if d.Hour() == 0 && d.Minute() == 0 && d.Second() == 0 && d.Nanosecond() == 0 {
		return d.Format("2006-01-02")
	}
	return d.Format(time.RFC3339Nano)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

// ParseTransactionType is case-insensitive.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Months returns the installment plan length, treating an unset value as 1.
func (t Transaction) Months() int {
	if t.InstallmentMonths == nil {
		return 1
	}
	return *t.InstallmentMonths
}

// InterestFree reports whether the purchase was flagged as interest free.
func (t Transaction) InterestFree() bool {
	return t.IsInterestFree != nil && *t.IsInterestFree
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	if t.InstallmentMonths != nil {
		months := *t.InstallmentMonths
		t.InstallmentMonths = &months
	}
	if t.IsInterestFree != nil {
		free := *t.IsInterestFree
		t.IsInterestFree = &free
	}
	return t
}

// IsInstallment is true for purchases split across more than one month.
func (t Transaction) IsInstallment() bool {
	return t.Months() > 1
}

// Validate is the entry check every ledger adapter runs before handing a
// transaction to the detectors.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !t.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if t.InstallmentMonths != nil && *t.InstallmentMonths < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidInstallmentMonths, *t.InstallmentMonths)
	}
	if len(t.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: %d characters", ErrDescriptionTooLong, len(t.Description))
	}
	return nil
}

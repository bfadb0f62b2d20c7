// Package http serves the insight engine over a JSON API.
//
// This file implements utilities for parsing and validating HTTP request data.
// Query parameters select the reporting period and tuning knobs; request
// bodies may be JSON or form encoded.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledgerinsight/internal/core"
	"ledgerinsight/internal/insight"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ErrBadRequest marks client input errors.
var ErrBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// QueryParams holds everything an insight endpoint reads from the query string.
type QueryParams struct {
	Period insight.PeriodRequest
	// Now replays the request at a fixed instant. Zero means the engine clock.
	Now time.Time
	// Factor overrides the outlier factor when positive.
	Factor float64
}

// ParseQueryParams validates mode, year, month, week_start, now and factor.
// Absent parameters keep their zero value so the engine defaults apply.
func ParseQueryParams(query url.Values) (QueryParams, error) {
	var params QueryParams

	if v := strings.TrimSpace(query.Get("mode")); v != "" {
		mode, err := insight.ParsePeriodMode(v)
		if err != nil {
			return params, badRequest("mode must be 'month' or 'week'")
		}
		params.Period.Mode = mode
	}
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return params, badRequest("invalid year %q", v)
		}
		params.Period.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return params, badRequest("invalid month %q: must be between 1 and 12", v)
		}
		params.Period.Month = time.Month(m)
	}
	if v := strings.TrimSpace(query.Get("week_start")); v != "" {
		ws, err := insight.ParseWeekStart(v)
		if err != nil {
			return params, badRequest("week_start must be 'mon' or 'sun'")
		}
		params.Period.WeekStart = ws
	}
	if v := strings.TrimSpace(query.Get("now")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return params, badRequest("invalid now %q", v)
		}
		params.Now = d.Time
	}
	if v := strings.TrimSpace(query.Get("factor")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return params, badRequest("invalid factor %q: must be a positive number", v)
		}
		params.Factor = f
	}
	return params, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseTransaction builds a validated ledger entry from the request body.
// For multi-month expenses "amount" is the principal and the entry fee is
// folded into the stored amount.
func ParseTransaction(p *RequestBodyParser) (core.Transaction, error) {
	if err := p.Parse(); err != nil {
		return core.Transaction{}, badRequest("malformed body: %v", err)
	}

	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return core.Transaction{}, badRequest("invalid date")
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, badRequest("invalid amount %q", p.Get("amount"))
	}
	txType := core.Expense
	if v := p.Get("type"); v != "" {
		if txType, err = core.ParseTransactionType(v); err != nil {
			return core.Transaction{}, badRequest("type must be INCOME, EXPENSE or TRANSFER")
		}
	}

	id := p.Get("id")
	if id == "" {
		id = uuid.NewString()
	}
	tx := core.Transaction{
		ID:          id,
		Date:        date,
		Description: p.Get("description"),
		Amount:      amount,
		Type:        txType,
		Category:    p.Get("category"),
		AccountID:   p.Get("accountId"),
	}

	months := 1
	if v := p.Get("installmentMonths"); v != "" {
		if months, err = strconv.Atoi(v); err != nil || months < 1 {
			return core.Transaction{}, badRequest("installmentMonths must be a positive integer")
		}
	}
	interestFree := false
	if v := p.Get("isInterestFree"); v != "" {
		if interestFree, err = strconv.ParseBool(v); err != nil {
			return core.Transaction{}, badRequest("isInterestFree must be a boolean")
		}
	}

	if months > 1 {
		tx, err = core.NewInstallmentPurchase(tx, amount, months, interestFree)
	} else {
		err = tx.Validate()
	}
	if err != nil {
		return core.Transaction{}, badRequest("%v", err)
	}
	return tx, nil
}

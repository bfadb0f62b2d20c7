package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"ledgerinsight/internal/core"
	"ledgerinsight/internal/insight"
)

func TestParseQueryParams(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    QueryParams
		wantErr bool
	}{
		{
			name:  "empty query keeps defaults",
			query: url.Values{},
			want:  QueryParams{},
		},
		{
			name:  "month selection",
			query: url.Values{"mode": {"Month"}, "year": {"2024"}, "month": {"6"}},
			want:  QueryParams{Period: insight.PeriodRequest{Mode: insight.MonthMode, Year: 2024, Month: time.June}},
		},
		{
			name:  "week with sunday start",
			query: url.Values{"mode": {"week"}, "week_start": {"sunday"}},
			want:  QueryParams{Period: insight.PeriodRequest{Mode: insight.WeekMode, WeekStart: insight.Sunday}},
		},
		{
			name:  "replay instant and factor",
			query: url.Values{"now": {"2025-02-10"}, "factor": {"2.5"}},
			want:  QueryParams{Now: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), Factor: 2.5},
		},
		{name: "bad mode", query: url.Values{"mode": {"year"}}, wantErr: true},
		{name: "month out of range", query: url.Values{"month": {"13"}}, wantErr: true},
		{name: "month not a number", query: url.Values{"month": {"abc"}}, wantErr: true},
		{name: "bad year", query: url.Values{"year": {"0"}}, wantErr: true},
		{name: "bad week start", query: url.Values{"week_start": {"wed"}}, wantErr: true},
		{name: "bad now", query: url.Values{"now": {"yesterday"}}, wantErr: true},
		{name: "zero factor", query: url.Values{"factor": {"0"}}, wantErr: true},
		{name: "negative factor", query: url.Values{"factor": {"-2"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQueryParams(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQueryParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrBadRequest) {
					t.Errorf("error %v should wrap ErrBadRequest", err)
				}
				return
			}
			if got.Period != tt.want.Period || got.Factor != tt.want.Factor || !got.Now.Equal(tt.want.Now) {
				t.Errorf("ParseQueryParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_JSONAndForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"description":" Netflix\u0007 ","amount":17.5,"isInterestFree":true}`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !p.IsJSON() {
		t.Fatal("expected JSON body")
	}
	if got := p.Get("description"); got != "Netflix" {
		t.Errorf("description = %q", got)
	}
	if got := p.Get("amount"); got != "17.5" {
		t.Errorf("amount = %q", got)
	}
	if got := p.Get("isInterestFree"); got != "true" {
		t.Errorf("isInterestFree = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("description=Rent&amount=800"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p = NewRequestBodyParser(req)
	if err := p.Parse(); err != nil || p.IsJSON() {
		t.Fatalf("unexpected parse result json=%v err=%v", p.IsJSON(), err)
	}
	if p.Get("description") != "Rent" || p.Get("amount") != "800" || p.Get("missing") != "" {
		t.Errorf("unexpected form values")
	}
}

func parseBody(t *testing.T, body string) (core.Transaction, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(body))
	return ParseTransaction(NewRequestBodyParser(req))
}

func TestParseTransaction(t *testing.T) {
	t.Run("installment purchase folds the fee", func(t *testing.T) {
		tx, err := parseBody(t, `{"id":"tv","date":"2025-01-31","description":"TV","amount":"50000","category":"Shopping","installmentMonths":6}`)
		if err != nil {
			t.Fatalf("ParseTransaction() error = %v", err)
		}
		if tx.Amount.StringFixed(2) != "51750.00" || tx.Months() != 6 || tx.InterestFree() {
			t.Fatalf("unexpected transaction %+v", tx)
		}
		if tx.Type != core.Expense {
			t.Fatalf("type should default to EXPENSE, got %s", tx.Type)
		}
	})

	t.Run("interest free plan keeps the principal", func(t *testing.T) {
		tx, err := parseBody(t, "date=2025-01-31&amount=3000&installmentMonths=3&isInterestFree=true")
		if err != nil {
			t.Fatalf("ParseTransaction() error = %v", err)
		}
		if tx.Amount.String() != "3000" || !tx.InterestFree() || tx.ID == "" {
			t.Fatalf("unexpected transaction %+v", tx)
		}
	})

	t.Run("single payment has no plan", func(t *testing.T) {
		tx, err := parseBody(t, `{"date":"2025-02-05","amount":"17","type":"expense","description":"Netflix"}`)
		if err != nil {
			t.Fatalf("ParseTransaction() error = %v", err)
		}
		if tx.InstallmentMonths != nil || tx.Amount.String() != "17" {
			t.Fatalf("unexpected transaction %+v", tx)
		}
	})

	for name, body := range map[string]string{
		"malformed json":     `{"date":`,
		"missing date":       `{"amount":"1"}`,
		"negative amount":    `{"date":"2025-01-01","amount":"-5"}`,
		"bad type":           `{"date":"2025-01-01","amount":"5","type":"gift"}`,
		"zero months":        `{"date":"2025-01-01","amount":"5","installmentMonths":0}`,
		"bad interest flag":  `{"date":"2025-01-01","amount":"5","installmentMonths":3,"isInterestFree":"maybe"}`,
		"description length": `{"date":"2025-01-01","amount":"5","description":"` + strings.Repeat("x", 201) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parseBody(t, body); !errors.Is(err, ErrBadRequest) {
				t.Fatalf("expected bad request, got %v", err)
			}
		})
	}
}

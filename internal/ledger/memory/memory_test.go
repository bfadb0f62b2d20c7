package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerinsight/internal/core"
	"ledgerinsight/internal/ledger"
)

var _ ledger.ReadWriter = (*Store)(nil)

func TestMemoryStoreAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Append(ctx, core.Transaction{
		Date:        core.NewDate(2025, 2, 5),
		Description: "Netflix",
		Amount:      decimal.NewFromInt(17),
		Type:        core.Expense,
		Category:    "Subscriptions",
	})
	if err != nil {
		t.Fatalf("unexpected append error: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a generated uuid, got %q", id)
	}

	if _, err := s.Append(ctx, core.Transaction{ID: id, Date: core.NewDate(2025, 2, 6), Amount: decimal.NewFromInt(1), Type: core.Expense}); !errors.Is(err, ledger.ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if _, err := s.Append(ctx, core.Transaction{ID: "neg", Date: core.NewDate(2025, 2, 6), Amount: decimal.NewFromInt(-1), Type: core.Expense}); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected negative amount error, got %v", err)
	}

	txs, err := s.Transactions(ctx)
	if err != nil || len(txs) != 1 || txs[0].ID != id {
		t.Fatalf("unexpected list: %v err=%v", txs, err)
	}
	txs[0].Description = "mutated"
	again, _ := s.Transactions(ctx)
	if again[0].Description != "Netflix" {
		t.Fatalf("Transactions must return a copy")
	}
}

func TestMemoryStoreInstallmentFieldsAreNotShared(t *testing.T) {
	ctx := context.Background()
	months, free := 3, true
	s := New()
	if _, err := s.Append(ctx, core.Transaction{
		ID:                "tv",
		Date:              core.NewDate(2025, 1, 31),
		Amount:            decimal.NewFromInt(3000),
		Type:              core.Expense,
		InstallmentMonths: &months,
		IsInterestFree:    &free,
	}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// The caller keeps its pointers after Append.
	months, free = 12, false

	txs, _ := s.Transactions(ctx)
	if txs[0].Months() != 3 || !txs[0].InterestFree() {
		t.Fatalf("store changed through the appended pointers: months=%d free=%v", txs[0].Months(), txs[0].InterestFree())
	}

	*txs[0].InstallmentMonths = 24
	*txs[0].IsInterestFree = false
	again, _ := s.Transactions(ctx)
	if again[0].Months() != 3 || !again[0].InterestFree() {
		t.Fatalf("store changed through the listed pointers: months=%d free=%v", again[0].Months(), again[0].InterestFree())
	}
}

func TestNewFromFile(t *testing.T) {
	s, err := NewFromFile("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if txs, _ := s.Transactions(context.Background()); len(txs) != 0 {
		t.Fatalf("expected empty store, got %d", len(txs))
	}

	dir := t.TempDir()
	mustWrite := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	good := mustWrite("seed.json", `[
  {"id":"tv","date":"2025-01-31","description":"TV","amount":"3000","type":"EXPENSE","category":"Shopping","accountId":"card","installmentMonths":3,"isInterestFree":true},
  {"id":"n1","date":"2025-01-05T10:00:00","description":"Netflix","amount":17,"type":"EXPENSE","category":"Subscriptions","accountId":"card"}
]`)
	s, err = NewFromFile(good)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	txs, _ := s.Transactions(context.Background())
	if len(txs) != 2 || txs[0].Months() != 3 || txs[1].Type != core.Expense {
		t.Fatalf("unexpected seed contents: %+v", txs)
	}

	bad := mustWrite("bad.json", `[{"id":"","date":"2025-01-05","amount":"1","type":"EXPENSE"}]`)
	if _, err := NewFromFile(bad); err == nil || !strings.Contains(err.Error(), "seed transaction 0") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := NewFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerinsight/internal/core"
	"ledgerinsight/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("Ledger schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ledger.Writer
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}

	if err := r.queries.CreateTransaction(ctx, toRow(tx)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%w: %q", ledger.ErrDuplicateID, tx.ID)
		}
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"description", tx.Description,
		"amount", tx.Amount.String(),
		"date", tx.Date.String())

	return tx.ID, nil
}

// Transactions implements ledger.Reader
func (r *SQLiteRepository) Transactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := fromRow(row)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", row.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func toRow(tx core.Transaction) TransactionRow {
	row := TransactionRow{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Description: tx.Description,
		Amount:      tx.Amount.String(),
		Type:        string(tx.Type),
		Category:    tx.Category,
		AccountID:   tx.AccountID,
	}
	if tx.InstallmentMonths != nil {
		row.InstallmentMonths = sql.NullInt64{Int64: int64(*tx.InstallmentMonths), Valid: true}
	}
	if tx.IsInterestFree != nil {
		row.IsInterestFree = sql.NullBool{Bool: *tx.IsInterestFree, Valid: true}
	}
	return row
}

func fromRow(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, row.Amount)
	}
	tx := core.Transaction{
		ID:          row.ID,
		Date:        date,
		Description: row.Description,
		Amount:      amount,
		Type:        core.TransactionType(row.Type),
		Category:    row.Category,
		AccountID:   row.AccountID,
	}
	if row.InstallmentMonths.Valid {
		months := int(row.InstallmentMonths.Int64)
		tx.InstallmentMonths = &months
	}
	if row.IsInterestFree.Valid {
		free := row.IsInterestFree.Bool
		tx.IsInterestFree = &free
	}
	return tx, tx.Validate()
}

package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// TransactionRow mirrors the transactions table.
type TransactionRow struct {
	ID                string
	Date              string
	Description       string
	Amount            string
	Type              string
	Category          string
	AccountID         string
	InstallmentMonths sql.NullInt64
	IsInterestFree    sql.NullBool
}

const createTransaction = `
INSERT INTO transactions (id, date, description, amount, type, category, account_id, installment_months, is_interest_free)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, createTransaction,
		arg.ID,
		arg.Date,
		arg.Description,
		arg.Amount,
		arg.Type,
		arg.Category,
		arg.AccountID,
		arg.InstallmentMonths,
		arg.IsInterestFree,
	)
	return err
}

const listTransactions = `
SELECT id, date, description, amount, type, category, account_id, installment_months, is_interest_free
FROM transactions
ORDER BY date, id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Description,
			&i.Amount,
			&i.Type,
			&i.Category,
			&i.AccountID,
			&i.InstallmentMonths,
			&i.IsInterestFree,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countTransactions = `SELECT COUNT(*) FROM transactions`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}

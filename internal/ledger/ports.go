package ledger

import (
	"context"
	"errors"

	"ledgerinsight/internal/core"
)

// Ports for ledger adapters.
type (
	// Reader returns the full transaction snapshot. Callers must not assume
	// any ordering.
	Reader interface {
		Transactions(ctx context.Context) ([]core.Transaction, error)
	}

	// Writer appends a validated transaction and returns its id.
	Writer interface {
		Append(ctx context.Context, tx core.Transaction) (id string, err error)
	}

	ReadWriter interface {
		Reader
		Writer
	}
)

// ErrDuplicateID is returned by Append when the id is already stored.
var ErrDuplicateID = errors.New("duplicate transaction id")

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"ledgerinsight/internal/core"
	"ledgerinsight/internal/ledger"
)

type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
}

func New(txs ...core.Transaction) *Store {
	return &Store{items: cloneAll(txs)}
}

// NewFromFile seeds the store from a JSON array of transactions. An empty
// path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var txs []core.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("seed transaction %d (%s): %w", i, tx.ID, err)
		}
	}
	return New(txs...), nil
}

// Append stores the transaction, assigning a uuid when it has no id.
func (s *Store) Append(_ context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.ID == tx.ID {
			return "", fmt.Errorf("%w: %q", ledger.ErrDuplicateID, tx.ID)
		}
	}
	s.items = append(s.items, tx.Clone())
	return tx.ID, nil
}

// Transactions returns a deep copy of the stored transactions in insertion
// order. Writing through the installment pointers does not touch the store.
func (s *Store) Transactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items), nil
}

func cloneAll(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.Clone()
	}
	return out
}

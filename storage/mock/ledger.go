package mock

import (
	"context"
	"sync"

	"github.com/poiesic/triplex/storage"
)

// Ledger is an in-memory test double for storage.Ledger.
type Ledger struct {
	mu     sync.Mutex
	hashes map[string]string
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates an empty mock ledger.
func NewLedger() *Ledger {
	return &Ledger{
		hashes: make(map[string]string),
	}
}

// RecordHash stores the committed content hash for an item.
func (m *Ledger) RecordHash(ctx context.Context, itemID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[itemID] = hash
	return nil
}

// LastHash returns the recorded hash, or "" if never ingested.
func (m *Ledger) LastHash(ctx context.Context, itemID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hashes[itemID], nil
}

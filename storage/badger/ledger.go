package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/triplex/storage"
)

// Ledger implements storage.Ledger for BadgerDB. It records the content
// hash of each item's last fully committed ingestion.
type Ledger struct {
	backend *Backend
}

var _ storage.Ledger = (*Ledger)(nil)

// NewLedger creates a new Ledger.
func NewLedger(backend *Backend) *Ledger {
	return &Ledger{
		backend: backend,
	}
}

// RecordHash stores the committed content hash for an item.
func (r *Ledger) RecordHash(ctx context.Context, itemID, contentHash string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeLedgerKey(itemID), []byte(contentHash)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LastHash returns the content hash recorded for an item's last successful
// ingestion. Returns "", nil if the item has never been ingested.
func (r *Ledger) LastHash(ctx context.Context, itemID string) (string, error) {
	var hash string
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeLedgerKey(itemID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			hash = string(val)
			return nil
		})
	}, false)

	return hash, err
}

package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// defaultMaxBatchSize matches the batch limit of common document stores.
const defaultMaxBatchSize = 500

// DocumentStore implements storage.DocumentStore for BadgerDB.
type DocumentStore struct {
	backend      *Backend
	maxBatchSize int
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates a new DocumentStore.
// maxBatchSize <= 0 selects the default limit.
func NewDocumentStore(backend *Backend, maxBatchSize int) *DocumentStore {
	if maxBatchSize <= 0 {
		maxBatchSize = defaultMaxBatchSize
	}
	return &DocumentStore{
		backend:      backend,
		maxBatchSize: maxBatchSize,
	}
}

// MaxBatchSize returns the largest batch BatchWrite accepts.
func (d *DocumentStore) MaxBatchSize() int {
	return d.maxBatchSize
}

// BatchWrite writes section documents keyed by (item_id, section_name).
func (d *DocumentStore) BatchWrite(ctx context.Context, docs []*core.SectionDocument) error {
	if len(docs) > d.maxBatchSize {
		return fmt.Errorf("%w: %d > %d", storage.ErrBatchTooLarge, len(docs), d.maxBatchSize)
	}

	return d.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			value, err := storage.MarshalSectionDocument(doc)
			if err != nil {
				return err
			}
			if err := tx.Set(makeSectionDocKey(doc.Key()), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteCollection removes every section document belonging to the item.
func (d *DocumentStore) DeleteCollection(ctx context.Context, itemID string) error {
	return d.backend.deletePrefix(makeSectionItemPrefix(itemID))
}

// CountByItem returns how many section documents the item has.
func (d *DocumentStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	return d.backend.countPrefix(makeSectionItemPrefix(itemID))
}

// GetSection retrieves one section document by item ID and section name.
// Returns storage.ErrNotFound if it doesn't exist.
func (d *DocumentStore) GetSection(ctx context.Context, itemID, sectionName string) (*core.SectionDocument, error) {
	key := (&core.SectionDocument{ItemID: itemID, SectionName: sectionName}).Key()

	var doc *core.SectionDocument
	err := d.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSectionDocKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			doc, unmarshalErr = storage.UnmarshalSectionDocument(val)
			return unmarshalErr
		})
	}, false)
	return doc, err
}

// Ping delegates to the backend.
func (d *DocumentStore) Ping(ctx context.Context) error {
	return d.backend.Ping(ctx)
}

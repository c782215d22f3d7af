package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// SearchIndex implements storage.SearchIndex for BadgerDB.
type SearchIndex struct {
	backend *Backend
}

var _ storage.SearchIndex = (*SearchIndex)(nil)

// NewSearchIndex creates a new SearchIndex.
func NewSearchIndex(backend *Backend) *SearchIndex {
	return &SearchIndex{backend: backend}
}

// WriteDocument writes a search document and returns its document ID.
// The ID is derived from the item ID, so rewrites are idempotent.
func (s *SearchIndex) WriteDocument(ctx context.Context, doc *core.SearchDocument) (string, error) {
	docID := doc.ID
	if docID == "" {
		docID = fmt.Sprintf("desc_%s", doc.ItemID)
	}
	doc.ID = docID

	value, err := storage.MarshalSearchDocument(doc)
	if err != nil {
		return "", err
	}

	err = s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSearchDocKey(docID), value); err != nil {
			return err
		}
		// Item index so presence can be probed without knowing the doc ID.
		if err := tx.Set(makeSearchItemKey(doc.ItemID), []byte(docID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return "", err
	}

	return docID, nil
}

// DeleteDocument removes a document by ID.
func (s *SearchIndex) DeleteDocument(ctx context.Context, docID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSearchDocKey(docID)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var doc *core.SearchDocument
		err = item.Value(func(val []byte) error {
			var unmarshalErr error
			doc, unmarshalErr = storage.UnmarshalSearchDocument(val)
			return unmarshalErr
		})
		if err != nil {
			return err
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeSearchItemKey(doc.ItemID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a search document by ID.
// Returns storage.ErrNotFound if the document doesn't exist.
func (s *SearchIndex) GetDocument(ctx context.Context, docID string) (*core.SearchDocument, error) {
	var doc *core.SearchDocument
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSearchDocKey(docID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			doc, unmarshalErr = storage.UnmarshalSearchDocument(val)
			return unmarshalErr
		})
	}, false)
	return doc, err
}

// HasDocument reports whether any document exists for the item.
func (s *SearchIndex) HasDocument(ctx context.Context, itemID string) (bool, error) {
	found := false
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeSearchItemKey(itemID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return nil
	}, false)
	return found, err
}

// Ping delegates to the backend.
func (s *SearchIndex) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

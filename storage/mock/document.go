package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// DocumentStore is an in-memory test double for storage.DocumentStore.
type DocumentStore struct {
	// BatchWriteFunc overrides BatchWrite if set. The batch-size check
	// still runs first so the limit invariant holds under injection.
	BatchWriteFunc func(ctx context.Context, docs []*core.SectionDocument) error

	// DeleteCollectionFunc overrides DeleteCollection if set.
	DeleteCollectionFunc func(ctx context.Context, itemID string) error

	// PingFunc overrides Ping if set.
	PingFunc func(ctx context.Context) error

	maxBatchSize int

	mu      sync.Mutex
	docs    map[string]*core.SectionDocument
	batches int
}

var _ storage.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty mock document store.
// maxBatchSize <= 0 selects a small default so chunking paths are easy to
// exercise in tests.
func NewDocumentStore(maxBatchSize int) *DocumentStore {
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	return &DocumentStore{
		maxBatchSize: maxBatchSize,
		docs:         make(map[string]*core.SectionDocument),
	}
}

// MaxBatchSize returns the largest batch BatchWrite accepts.
func (m *DocumentStore) MaxBatchSize() int {
	return m.maxBatchSize
}

// BatchWrite writes section documents keyed by (item_id, section_name).
func (m *DocumentStore) BatchWrite(ctx context.Context, docs []*core.SectionDocument) error {
	if len(docs) > m.maxBatchSize {
		return fmt.Errorf("%w: %d > %d", storage.ErrBatchTooLarge, len(docs), m.maxBatchSize)
	}

	if m.BatchWriteFunc != nil {
		return m.BatchWriteFunc(ctx, docs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.docs[doc.Key()] = doc
	}
	m.batches++
	return nil
}

// DeleteCollection removes every section document belonging to the item.
func (m *DocumentStore) DeleteCollection(ctx context.Context, itemID string) error {
	if m.DeleteCollectionFunc != nil {
		return m.DeleteCollectionFunc(ctx, itemID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, doc := range m.docs {
		if doc.ItemID == itemID {
			delete(m.docs, key)
		}
	}
	return nil
}

// CountByItem returns how many section documents the item has.
func (m *DocumentStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, doc := range m.docs {
		if doc.ItemID == itemID {
			count++
		}
	}
	return count, nil
}

// Ping reports the store reachable unless overridden.
func (m *DocumentStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Section returns a stored section document, or nil.
func (m *DocumentStore) Section(itemID, sectionName string) *core.SectionDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[itemID+"/"+sectionName]
}

// Len returns the number of stored section documents.
func (m *DocumentStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// BatchCount returns how many batches reached the default implementation.
func (m *DocumentStore) BatchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

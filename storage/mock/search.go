package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// SearchIndex is an in-memory test double for storage.SearchIndex.
type SearchIndex struct {
	// WriteDocumentFunc overrides WriteDocument if set.
	WriteDocumentFunc func(ctx context.Context, doc *core.SearchDocument) (string, error)

	// DeleteDocumentFunc overrides DeleteDocument if set.
	DeleteDocumentFunc func(ctx context.Context, docID string) error

	// PingFunc overrides Ping if set.
	PingFunc func(ctx context.Context) error

	mu      sync.Mutex
	docs    map[string]*core.SearchDocument
	byItem  map[string]string
	writes  int
	deletes int
}

var _ storage.SearchIndex = (*SearchIndex)(nil)

// NewSearchIndex creates an empty mock search index.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{
		docs:   make(map[string]*core.SearchDocument),
		byItem: make(map[string]string),
	}
}

// WriteDocument stores the document and returns its ID, deriving one from
// the item ID when unset, matching the real backend.
func (m *SearchIndex) WriteDocument(ctx context.Context, doc *core.SearchDocument) (string, error) {
	if m.WriteDocumentFunc != nil {
		return m.WriteDocumentFunc(ctx, doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docID := doc.ID
	if docID == "" {
		docID = fmt.Sprintf("desc_%s", doc.ItemID)
	}
	doc.ID = docID

	m.docs[docID] = doc
	m.byItem[doc.ItemID] = docID
	m.writes++
	return docID, nil
}

// DeleteDocument removes a document by ID.
func (m *SearchIndex) DeleteDocument(ctx context.Context, docID string) error {
	if m.DeleteDocumentFunc != nil {
		return m.DeleteDocumentFunc(ctx, docID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[docID]
	if !ok {
		return storage.ErrNotFound
	}
	delete(m.docs, docID)
	delete(m.byItem, doc.ItemID)
	m.deletes++
	return nil
}

// HasDocument reports whether any document exists for the item.
func (m *SearchIndex) HasDocument(ctx context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byItem[itemID]
	return ok, nil
}

// Ping reports the index reachable unless overridden.
func (m *SearchIndex) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Document returns the stored document for an item, or nil.
func (m *SearchIndex) Document(itemID string) *core.SearchDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	docID, ok := m.byItem[itemID]
	if !ok {
		return nil
	}
	return m.docs[docID]
}

// Len returns the number of stored documents.
func (m *SearchIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// WriteCount returns how many writes reached the default implementation.
func (m *SearchIndex) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// DeleteCount returns how many deletes reached the default implementation.
func (m *SearchIndex) DeleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

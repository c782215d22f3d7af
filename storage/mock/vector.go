package mock

import (
	"context"
	"sync"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// VectorIndex is an in-memory test double for storage.VectorIndex.
type VectorIndex struct {
	// UpsertFunc overrides Upsert if set.
	UpsertFunc func(ctx context.Context, records []*core.VectorRecord) error

	// RemoveFunc overrides Remove if set.
	RemoveFunc func(ctx context.Context, ids []string) error

	// PingFunc overrides Ping if set.
	PingFunc func(ctx context.Context) error

	mu      sync.Mutex
	records map[string]*core.VectorRecord
	upserts int
	removes int
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates an empty mock vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		records: make(map[string]*core.VectorRecord),
	}
}

// Upsert inserts or replaces vector records.
func (m *VectorIndex) Upsert(ctx context.Context, records []*core.VectorRecord) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, records)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range records {
		m.records[record.ID] = record
	}
	m.upserts++
	return nil
}

// Remove deletes vector records by ID. Absent IDs are skipped.
func (m *VectorIndex) Remove(ctx context.Context, ids []string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.records, id)
	}
	m.removes++
	return nil
}

// CountByItem returns how many vector records carry the item ID.
func (m *VectorIndex) CountByItem(ctx context.Context, itemID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, record := range m.records {
		if record.ItemID == itemID {
			count++
		}
	}
	return count, nil
}

// Ping reports the index reachable unless overridden.
func (m *VectorIndex) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Record returns a stored record by ID, or nil.
func (m *VectorIndex) Record(id string) *core.VectorRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

// Len returns the number of stored records.
func (m *VectorIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

package mock

import (
	"context"
	"sync"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// BlobStore is an in-memory test double for storage.BlobStore.
type BlobStore struct {
	// PutFunc overrides Put if set.
	PutFunc func(ctx context.Context, path string, data []byte) (*core.BlobRef, error)

	// DeleteFunc overrides Delete if set.
	DeleteFunc func(ctx context.Context, path string) error

	// PingFunc overrides Ping if set.
	PingFunc func(ctx context.Context) error

	mu    sync.Mutex
	blobs map[string][]byte
}

var _ storage.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates an empty mock blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		blobs: make(map[string][]byte),
	}
}

// Put stores data under path, replacing any existing blob.
func (m *BlobStore) Put(ctx context.Context, path string, data []byte) (*core.BlobRef, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, path, data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = data
	return &core.BlobRef{Path: path, Size: len(data)}, nil
}

// Delete removes the blob at path. Absent blobs are not an error.
func (m *BlobStore) Delete(ctx context.Context, path string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	return nil
}

// Exists reports whether a blob is stored at path.
func (m *BlobStore) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[path]
	return ok, nil
}

// Ping reports the store reachable unless overridden.
func (m *BlobStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Len returns the number of stored blobs.
func (m *BlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// Paths returns the paths of every stored blob.
func (m *BlobStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.blobs))
	for path := range m.blobs {
		paths = append(paths, path)
	}
	return paths
}

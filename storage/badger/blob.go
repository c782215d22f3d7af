package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// BlobStore implements storage.BlobStore for BadgerDB.
type BlobStore struct {
	backend *Backend
}

var _ storage.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates a new BlobStore.
func NewBlobStore(backend *Backend) *BlobStore {
	return &BlobStore{backend: backend}
}

// Put stores data under path, replacing any existing blob.
func (b *BlobStore) Put(ctx context.Context, path string, data []byte) (*core.BlobRef, error) {
	err := b.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeBlobKey(path), data); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return &core.BlobRef{Path: path, Size: len(data)}, nil
}

// Delete removes the blob at path. Absent blobs are not an error.
func (b *BlobStore) Delete(ctx context.Context, path string) error {
	return b.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeBlobKey(path)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Exists reports whether a blob is stored at path.
func (b *BlobStore) Exists(ctx context.Context, path string) (bool, error) {
	found := false
	err := b.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeBlobKey(path))
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

// Get retrieves a blob's bytes. Returns storage.ErrNotFound if absent.
func (b *BlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeBlobKey(path))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	}, false)
	return data, err
}

// Ping delegates to the backend.
func (b *BlobStore) Ping(ctx context.Context) error {
	return b.backend.Ping(ctx)
}

package storage

import (
	"context"

	"github.com/poiesic/triplex/core"
)

// SearchIndex is the full-text/semantic search backend. One summary
// document is written per item. Writes are idempotent by document ID.
// Implementations must be thread-safe and support concurrent access.
type SearchIndex interface {
	// WriteDocument writes a search document and returns its document ID,
	// which is sufficient to later delete exactly what was written.
	WriteDocument(ctx context.Context, doc *core.SearchDocument) (string, error)

	// DeleteDocument removes a document by ID.
	// Returns ErrNotFound if the document does not exist.
	DeleteDocument(ctx context.Context, docID string) error

	// HasDocument reports whether any document exists for the item.
	// Used by crash recovery to probe unknown-outcome commits.
	HasDocument(ctx context.Context, itemID string) (bool, error)

	// Ping verifies the backend is reachable and writable.
	Ping(ctx context.Context) error
}

// VectorIndex is the vector similarity backend. Records carry item_id as a
// queryable attribute for scoped deletion. Upserts are idempotent by
// record ID.
type VectorIndex interface {
	// Upsert inserts or replaces vector records.
	Upsert(ctx context.Context, records []*core.VectorRecord) error

	// Remove deletes vector records by ID. Absent IDs are not an error.
	Remove(ctx context.Context, ids []string) error

	// CountByItem returns how many vector records carry the item ID.
	CountByItem(ctx context.Context, itemID string) (int, error)

	// Ping verifies the backend is reachable and writable.
	Ping(ctx context.Context) error
}

// DocumentStore is the section document backend. Writes are batched and
// bounded; callers must chunk to MaxBatchSize.
type DocumentStore interface {
	// MaxBatchSize returns the largest batch BatchWrite accepts.
	MaxBatchSize() int

	// BatchWrite writes section documents keyed by (item_id, section_name).
	// Returns ErrBatchTooLarge when the batch exceeds MaxBatchSize.
	BatchWrite(ctx context.Context, docs []*core.SectionDocument) error

	// DeleteCollection removes every section document belonging to the item.
	// Deleting an absent collection is not an error.
	DeleteCollection(ctx context.Context, itemID string) error

	// CountByItem returns how many section documents the item has.
	CountByItem(ctx context.Context, itemID string) (int, error)

	// Ping verifies the backend is reachable and writable.
	Ping(ctx context.Context) error
}

// BlobStore holds binary assets (uploaded images) addressed by path.
type BlobStore interface {
	// Put stores data under path, replacing any existing blob.
	Put(ctx context.Context, path string, data []byte) (*core.BlobRef, error)

	// Delete removes the blob at path.
	// Deleting an absent blob is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a blob is stored at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Ping verifies the backend is reachable and writable.
	Ping(ctx context.Context) error
}

// CheckpointStore durably persists transaction checkpoints keyed by item
// ID. It is read at supervisor startup to drive crash recovery.
type CheckpointStore interface {
	// Save persists a checkpoint, replacing any previous one for the item.
	// Updates the checkpoint's UpdatedAt and increments Seq.
	Save(ctx context.Context, checkpoint *core.Checkpoint) error

	// Load retrieves the checkpoint for an item.
	// Returns nil, nil if no checkpoint exists.
	Load(ctx context.Context, itemID string) (*core.Checkpoint, error)

	// Delete removes the checkpoint for an item.
	// Deleting an absent checkpoint is not an error.
	Delete(ctx context.Context, itemID string) error

	// List returns every stored checkpoint.
	List(ctx context.Context) ([]*core.Checkpoint, error)
}

// Ledger remembers the content hash of each successfully ingested item so
// idempotent re-runs can skip unchanged content.
type Ledger interface {
	// RecordHash stores the hash an item was last successfully ingested at.
	RecordHash(ctx context.Context, itemID, hash string) error

	// LastHash returns the recorded hash, or "" if the item was never
	// successfully ingested.
	LastHash(ctx context.Context, itemID string) (string, error)
}

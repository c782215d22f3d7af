package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// VectorIndex implements storage.VectorIndex for BadgerDB.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend) *VectorIndex {
	return &VectorIndex{backend: backend}
}

// Upsert inserts or replaces vector records. Each record is also indexed
// under its item ID so the whole item can be removed with a prefix scan.
func (v *VectorIndex) Upsert(ctx context.Context, records []*core.VectorRecord) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			value, err := storage.MarshalVectorRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(record.ID), value); err != nil {
				return err
			}
			if err := tx.Set(makeVectorItemKey(record.ItemID, record.ID), []byte(record.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Remove deletes vector records by ID. Absent IDs are skipped.
func (v *VectorIndex) Remove(ctx context.Context, ids []string) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(makeVectorKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					continue
				}
				return err
			}

			var record *core.VectorRecord
			err = item.Value(func(val []byte) error {
				var unmarshalErr error
				record, unmarshalErr = storage.UnmarshalVectorRecord(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}

			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorItemKey(record.ItemID, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// CountByItem returns how many vector records carry the item ID.
func (v *VectorIndex) CountByItem(ctx context.Context, itemID string) (int, error) {
	return v.backend.countPrefix(makeVectorItemPrefix(itemID))
}

// IDsByItem returns the record IDs indexed under an item.
func (v *VectorIndex) IDsByItem(ctx context.Context, itemID string) ([]string, error) {
	var ids []string
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorItemPrefix(itemID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return ids, err
}

// SearchResult is a vector match with its similarity score.
type SearchResult struct {
	Record *core.VectorRecord
	Score  float32
}

// FindSimilar finds vector records similar to the given vector.
// Returns records with similarity >= minSimilarity, up to limit results,
// ordered by similarity score (highest first). Cosine similarity is
// computed as a dot product assuming normalized vectors.
func (v *VectorIndex) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*SearchResult, error) {
	var results []*SearchResult

	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.VectorRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalVectorRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || len(record.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, record.Vector)
			if similarity >= minSimilarity {
				results = append(results, &SearchResult{
					Record: record,
					Score:  similarity,
				})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// Ping delegates to the backend.
func (v *VectorIndex) Ping(ctx context.Context) error {
	return v.backend.Ping(ctx)
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

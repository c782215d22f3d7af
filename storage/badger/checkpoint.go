// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// CheckpointStore implements storage.CheckpointStore for BadgerDB.
type CheckpointStore struct {
	backend *Backend
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(backend *Backend) *CheckpointStore {
	return &CheckpointStore{
		backend: backend,
	}
}

// Save persists a checkpoint for an item's transaction.
func (r *CheckpointStore) Save(ctx context.Context, checkpoint *core.Checkpoint) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		checkpoint.UpdatedAt = time.Now().UTC()
		checkpoint.Seq++
		key := makeCheckpointKey(checkpoint.ItemID)
		value, err := storage.MarshalCheckpoint(checkpoint)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Load retrieves the checkpoint for an item.
// Returns nil, nil if no checkpoint exists.
func (r *CheckpointStore) Load(ctx context.Context, itemID string) (*core.Checkpoint, error) {
	var checkpoint *core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCheckpointKey(itemID)
		item, err := tx.Get(key)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			checkpoint, unmarshalErr = storage.UnmarshalCheckpoint(val)
			return unmarshalErr
		})
	}, false)

	return checkpoint, err
}

// Delete removes the checkpoint for an item. Absent checkpoints are not an error.
func (r *CheckpointStore) Delete(ctx context.Context, itemID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCheckpointKey(itemID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// List returns every stored checkpoint.
func (r *CheckpointStore) List(ctx context.Context) ([]*core.Checkpoint, error) {
	var checkpoints []*core.Checkpoint
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(checkpointPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				checkpoint, unmarshalErr := storage.UnmarshalCheckpoint(val)
				if unmarshalErr != nil {
					return unmarshalErr
				}
				checkpoints = append(checkpoints, checkpoint)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	return checkpoints, err
}

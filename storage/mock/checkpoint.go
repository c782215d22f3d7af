package mock

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/storage"
)

// CheckpointStore is an in-memory test double for storage.CheckpointStore.
// Saved checkpoints are deep-copied through serialization-free cloning so
// later mutation of the caller's struct cannot rewrite history.
type CheckpointStore struct {
	// SaveFunc overrides Save if set.
	SaveFunc func(ctx context.Context, checkpoint *core.Checkpoint) error

	mu          sync.Mutex
	checkpoints map[string]*core.Checkpoint
	saves       int
}

var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// NewCheckpointStore creates an empty mock checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		checkpoints: make(map[string]*core.Checkpoint),
	}
}

// Save persists a checkpoint, bumping UpdatedAt and Seq like the real store.
func (m *CheckpointStore) Save(ctx context.Context, checkpoint *core.Checkpoint) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, checkpoint)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	checkpoint.UpdatedAt = time.Now().UTC()
	checkpoint.Seq++
	m.checkpoints[checkpoint.ItemID] = cloneCheckpoint(checkpoint)
	m.saves++
	return nil
}

// Load retrieves the checkpoint for an item. Returns nil, nil if absent.
func (m *CheckpointStore) Load(ctx context.Context, itemID string) (*core.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	checkpoint, ok := m.checkpoints[itemID]
	if !ok {
		return nil, nil
	}
	return cloneCheckpoint(checkpoint), nil
}

// Delete removes the checkpoint for an item. Absent is not an error.
func (m *CheckpointStore) Delete(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checkpoints, itemID)
	return nil
}

// List returns every stored checkpoint.
func (m *CheckpointStore) List(ctx context.Context) ([]*core.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	checkpoints := make([]*core.Checkpoint, 0, len(m.checkpoints))
	for _, checkpoint := range m.checkpoints {
		checkpoints = append(checkpoints, cloneCheckpoint(checkpoint))
	}
	return checkpoints, nil
}

// SaveCount returns how many saves reached the default implementation.
func (m *CheckpointStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneCheckpoint(checkpoint *core.Checkpoint) *core.Checkpoint {
	clone := *checkpoint
	clone.Streams = make(map[string]*core.StreamCheckpoint, len(checkpoint.Streams))
	for name, sc := range checkpoint.Streams {
		scClone := *sc
		if sc.Ref != nil {
			refClone := *sc.Ref
			refClone.BlobPaths = append([]string(nil), sc.Ref.BlobPaths...)
			refClone.VectorIDs = append([]string(nil), sc.Ref.VectorIDs...)
			refClone.SectionKeys = append([]string(nil), sc.Ref.SectionKeys...)
			scClone.Ref = &refClone
		}
		clone.Streams[name] = &scClone
	}
	return &clone
}

package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/triplex/core"
)

// stagePrepared runs every stream's Prepare for item and saves a matching
// checkpoint in the given state, simulating a crash at that point.
func (h *harness) stagePrepared(t *testing.T, item *core.Item, state core.TxState) (*core.Checkpoint, map[string]*Payload) {
	t.Helper()

	dir, err := h.area.Allocate(item.ID)
	require.NoError(t, err)

	cp := &core.Checkpoint{
		ItemID:      item.ID,
		ContentHash: item.ContentHash,
		State:       state,
		StagingDir:  dir,
		Streams:     make(map[string]*core.StreamCheckpoint, len(CommitOrder)),
		StartedAt:   time.Now().UTC(),
	}

	payloads := make(map[string]*Payload, len(CommitOrder))
	for _, proc := range []StreamProcessor{h.semantic, h.visual, h.content} {
		payload, err := proc.Prepare(t.Context(), item, dir)
		require.NoError(t, err)
		payloads[proc.Name()] = payload
		cp.Streams[proc.Name()] = &core.StreamCheckpoint{Phase: core.StreamPrepared}
	}

	require.NoError(t, h.checkpoints.Save(t.Context(), cp))
	return cp, payloads
}

func TestResumePreparedCommitsForward(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	cp, _ := h.stagePrepared(t, item, core.TxPrepared)

	require.NoError(t, h.coordinator.Resume(t.Context(), cp))

	h.requireFullTrace(t, item.ID, 2, 4)
	assert.Equal(t, 2, h.blobs.Len())

	loaded, err := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	stale, err := h.area.Stale()
	require.NoError(t, err)
	assert.Empty(t, stale)

	hash, err := h.ledger.LastHash(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ContentHash, hash)
}

func TestResumePartialCommitRollsBack(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	// Crash mid-commit: the search document was written and checkpointed,
	// the remaining streams were not.
	cp, payloads := h.stagePrepared(t, item, core.TxCommitting)
	ref, err := h.semantic.Commit(t.Context(), payloads[StreamSemantic])
	require.NoError(t, err)
	cp.Streams[StreamSemantic].Phase = core.StreamCommitted
	cp.Streams[StreamSemantic].Ref = ref
	require.NoError(t, h.checkpoints.Save(t.Context(), cp))
	require.Equal(t, 1, h.search.Len())

	require.NoError(t, h.coordinator.Resume(t.Context(), cp))

	// Never resumed forward: everything is undone, blobs included.
	h.requireNoTrace(t, item.ID)
	loaded, err := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	hash, err := h.ledger.LastHash(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, hash)
}

func TestResumePreparedWithMissingPayloadRollsBack(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	// PREPARED on the checkpoint, but the content payload never made it
	// to disk: staging is incomplete, so forward commit is off the table.
	dir, err := h.area.Allocate(item.ID)
	require.NoError(t, err)
	cp := &core.Checkpoint{
		ItemID:      item.ID,
		ContentHash: item.ContentHash,
		State:       core.TxPrepared,
		StagingDir:  dir,
		Streams: map[string]*core.StreamCheckpoint{
			StreamSemantic: {Phase: core.StreamPrepared},
			StreamVisual:   {Phase: core.StreamPrepared},
			StreamContent:  {Phase: core.StreamPending},
		},
		StartedAt: time.Now().UTC(),
	}
	_, err = h.semantic.Prepare(t.Context(), item, dir)
	require.NoError(t, err)
	_, err = h.visual.Prepare(t.Context(), item, dir)
	require.NoError(t, err)
	require.NoError(t, h.checkpoints.Save(t.Context(), cp))
	require.Equal(t, 2, h.blobs.Len(), "visual prepare uploads blobs")

	require.NoError(t, h.coordinator.Resume(t.Context(), cp))

	h.requireNoTrace(t, item.ID)
	loaded, err := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestResumeTerminalStateCleansUp(t *testing.T) {
	h := newHarness(t)
	item := patternItem()

	// Crash between the terminal checkpoint save and cleanup.
	dir, err := h.area.Allocate(item.ID)
	require.NoError(t, err)
	cp := &core.Checkpoint{
		ItemID:     item.ID,
		State:      core.TxCommitted,
		StagingDir: dir,
		Streams:    map[string]*core.StreamCheckpoint{},
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, h.checkpoints.Save(t.Context(), cp))

	require.NoError(t, h.coordinator.Resume(t.Context(), cp))

	loaded, err := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
	stale, err := h.area.Stale()
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRecoveryRunResolvesCheckpointsAndOrphans(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()

	// Item A crashed after a full prepare: recovery commits it forward.
	itemA := patternItem()
	h.stagePrepared(t, itemA, core.TxPrepared)

	// Item B crashed mid-prepare: recovery rolls it back.
	itemB := &core.Item{
		ID:    "kb-2042",
		Title: "Interrupted Item",
		Body:  "<h2>Draft</h2><p>Half-finished content from an interrupted run.</p>",
	}
	itemB.ContentHash = core.ContentHash(itemB.Body, itemB.Metadata)
	dirB, err := h.area.Allocate(itemB.ID)
	require.NoError(t, err)
	_, err = h.semantic.Prepare(t.Context(), itemB, dirB)
	require.NoError(t, err)
	require.NoError(t, h.checkpoints.Save(t.Context(), &core.Checkpoint{
		ItemID:      itemB.ID,
		ContentHash: itemB.ContentHash,
		State:       core.TxPreparing,
		StagingDir:  dirB,
		Streams: map[string]*core.StreamCheckpoint{
			StreamSemantic: {Phase: core.StreamPrepared},
			StreamVisual:   {Phase: core.StreamPending},
			StreamContent:  {Phase: core.StreamPending},
		},
		StartedAt: time.Now().UTC(),
	}))

	// Item C crashed before its first checkpoint write: orphan staging.
	_, err = h.area.Allocate("kb-2043")
	require.NoError(t, err)

	recovery := NewRecovery(h.coordinator, h.checkpoints, h.area)
	report, err := recovery.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Resolved)
	assert.Equal(t, 0, report.Unclean)
	assert.Equal(t, 1, report.Orphans)

	// Item A is fully present, item B fully absent.
	h.requireFullTrace(t, itemA.ID, 2, 4)
	hasB, err := h.search.HasDocument(t.Context(), itemB.ID)
	require.NoError(t, err)
	assert.False(t, hasB)

	remaining, err := h.checkpoints.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, remaining)
	stale, err := h.area.Stale()
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRecoveryRunCountsUncleanRollbacks(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	cp, payloads := h.stagePrepared(t, item, core.TxCommitting)
	ref, err := h.semantic.Commit(t.Context(), payloads[StreamSemantic])
	require.NoError(t, err)
	cp.Streams[StreamSemantic].Phase = core.StreamCommitted
	cp.Streams[StreamSemantic].Ref = ref
	require.NoError(t, h.checkpoints.Save(t.Context(), cp))

	h.search.DeleteDocumentFunc = func(ctx context.Context, docID string) error {
		return errors.New("search index down")
	}

	recovery := NewRecovery(h.coordinator, h.checkpoints, h.area)
	report, err := recovery.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Resolved)
	assert.Equal(t, 1, report.Unclean)

	// Unclean items keep their checkpoint and staging for manual cleanup.
	loaded, err := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, core.TxRolledBack, loaded.State)
	stale, err := h.area.Stale()
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, stale)
}

package ingest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/triplex/core"
	stormock "github.com/poiesic/triplex/storage/mock"
)

func TestExecuteCommitsAllStreams(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	err := h.coordinator.Execute(t.Context(), item)
	require.NoError(t, err)

	h.requireFullTrace(t, item.ID, 2, 4)

	doc := h.search.Document(item.ID)
	require.NotNil(t, doc)
	assert.Equal(t, item.Title, doc.Title)
	assert.Equal(t, "storage-team", doc.Metadata["owner"])
	assert.GreaterOrEqual(t, len(doc.Summary), h.config.MinSummaryLength)

	// Vector records carry the item ID as a filterable attribute.
	rec := h.vectors.Record("img_kb-2041_0")
	require.NotNil(t, rec)
	assert.Equal(t, item.ID, rec.ItemID)
	assert.Equal(t, "kb-2041/img_0", rec.BlobPath)
	assert.NotEmpty(t, rec.Description)

	assert.Equal(t, 2, h.blobs.Len())
	for _, path := range []string{"kb-2041/img_0", "kb-2041/img_1"} {
		exists, err := h.blobs.Exists(t.Context(), path)
		require.NoError(t, err)
		assert.True(t, exists, "blob %s must exist", path)
	}

	// Sections keep their heading names.
	sec := h.documents.Section(item.ID, "Problem")
	require.NotNil(t, sec)
	assert.Contains(t, sec.Text, "Replication lag")

	// A committed transaction leaves no checkpoint and no staging.
	cp, err := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Nil(t, cp)
	stale, err := h.area.Stale()
	require.NoError(t, err)
	assert.Empty(t, stale)

	hash, err := h.ledger.LastHash(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ContentHash, hash)
}

func TestExecuteItemWithoutImages(t *testing.T) {
	h := newHarness(t)

	item := &core.Item{
		ID:    "plain-1",
		Title: "Plain Text",
		Body:  "<h2>Overview</h2><p>A body with headings and no images at all.</p>",
	}
	item.ContentHash = core.ContentHash(item.Body, item.Metadata)

	require.NoError(t, h.coordinator.Execute(t.Context(), item))

	assert.NotNil(t, h.search.Document(item.ID))
	assert.Equal(t, 0, h.vectors.Len())
	assert.Equal(t, 0, h.blobs.Len())
	count, err := h.documents.CountByItem(t.Context(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExecuteRejectsMissingBody(t *testing.T) {
	h := newHarness(t)

	item := &core.Item{ID: "empty-1", Title: "No Body"}
	err := h.coordinator.Execute(t.Context(), item)
	require.Error(t, err)

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "prepare", txErr.Stage)
	h.requireNoTrace(t, item.ID)
}

// TestExecuteAtomicity forces a persistent failure at each distinct
// point of the protocol and asserts the same outcome every time: an item
// is represented in all backends or in none.
func TestExecuteAtomicity(t *testing.T) {
	boom := errors.New("backend unavailable")

	tests := []struct {
		name  string
		farce func(h *harness)
		stage string
	}{
		{
			name: "summarize fails during prepare",
			farce: func(h *harness) {
				h.summarizer.SummarizeTextFunc = func(ctx context.Context, title, text string) (string, error) {
					return "", boom
				}
			},
			stage: "prepare",
		},
		{
			name: "image description fails during prepare",
			farce: func(h *harness) {
				h.describer.DescribeImageFunc = func(ctx context.Context, image []byte, contextText string) (string, error) {
					return "", boom
				}
			},
			stage: "prepare",
		},
		{
			name: "asset download fails during prepare",
			farce: func(h *harness) {
				h.client.FetchAssetFunc = func(ctx context.Context, ref string) ([]byte, error) {
					return nil, boom
				}
			},
			stage: "prepare",
		},
		{
			name: "search write fails during commit",
			farce: func(h *harness) {
				h.search.WriteDocumentFunc = func(ctx context.Context, doc *core.SearchDocument) (string, error) {
					return "", boom
				}
			},
			stage: "commit",
		},
		{
			name: "vector upsert fails during commit",
			farce: func(h *harness) {
				h.vectors.UpsertFunc = func(ctx context.Context, records []*core.VectorRecord) error {
					return boom
				}
			},
			stage: "commit",
		},
		{
			name: "section batch write fails during commit",
			farce: func(h *harness) {
				h.documents.BatchWriteFunc = func(ctx context.Context, docs []*core.SectionDocument) error {
					return boom
				}
			},
			stage: "commit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.seedPatternAssets()
			tt.farce(h)

			item := patternItem()
			err := h.coordinator.Execute(t.Context(), item)
			require.Error(t, err)

			var txErr *TransactionError
			require.ErrorAs(t, err, &txErr)
			assert.Equal(t, tt.stage, txErr.Stage)
			assert.True(t, txErr.RollbackClean)
			require.ErrorIs(t, err, boom)

			h.requireNoTrace(t, item.ID)

			// Clean rollback releases the checkpoint and staging.
			cp, err := h.checkpoints.Load(t.Context(), item.ID)
			require.NoError(t, err)
			assert.Nil(t, cp)
			stale, err := h.area.Stale()
			require.NoError(t, err)
			assert.Empty(t, stale)

			hash, err := h.ledger.LastHash(t.Context(), item.ID)
			require.NoError(t, err)
			assert.Empty(t, hash, "failed items must never reach the ledger")
		})
	}
}

// TestExecuteEmbedFailureDeletesUploadedBlobs covers the mid-item failure:
// the first image is fully uploaded before the second image's embedding
// fails, and rollback must find and delete the uploaded blob.
func TestExecuteEmbedFailureDeletesUploadedBlobs(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()

	h.describer.DescribeImageFunc = func(ctx context.Context, image []byte, contextText string) (string, error) {
		if image[0] == 0xB2 {
			return "flow diagram of standby promotion", nil
		}
		return "architecture diagram of the replication pair", nil
	}
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "flow diagram") {
			return nil, errors.New("embedding service overloaded")
		}
		return []float32{0.1, 0.2, 0.3}, nil
	}

	var puts, deletes atomic.Int32
	inner := stormock.NewBlobStore()
	h.blobs.PutFunc = func(ctx context.Context, path string, data []byte) (*core.BlobRef, error) {
		puts.Add(1)
		return inner.Put(ctx, path, data)
	}
	h.blobs.DeleteFunc = func(ctx context.Context, path string) error {
		deletes.Add(1)
		return inner.Delete(ctx, path)
	}

	item := patternItem()
	err := h.coordinator.Execute(t.Context(), item)
	require.Error(t, err)

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "prepare", txErr.Stage)
	assert.True(t, txErr.RollbackClean)
	var prepErr *PreparationError
	require.ErrorAs(t, err, &prepErr)
	assert.Equal(t, StreamVisual, prepErr.Stream)
	assert.Equal(t, "embed", prepErr.Step)

	// Both blobs reached the store during prepare; rollback removed both.
	assert.Equal(t, int32(2), puts.Load())
	assert.GreaterOrEqual(t, deletes.Load(), int32(2))
	assert.Equal(t, 0, inner.Len(), "no uploaded blob may survive the rollback")

	assert.Equal(t, 0, h.vectors.Len())
	assert.Equal(t, 0, h.search.Len())
	assert.Equal(t, 0, h.documents.Len())
}

// TestExecuteUncleanRollback forces the compensating delete itself to
// fail: the transaction must surface RollbackClean=false and keep its
// checkpoint and staging for manual cleanup.
func TestExecuteUncleanRollback(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()

	boom := errors.New("document store down")
	h.documents.BatchWriteFunc = func(ctx context.Context, docs []*core.SectionDocument) error {
		return boom
	}
	h.search.DeleteDocumentFunc = func(ctx context.Context, docID string) error {
		return errors.New("search index down")
	}

	item := patternItem()
	err := h.coordinator.Execute(t.Context(), item)
	require.Error(t, err)

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, "commit", txErr.Stage)
	assert.False(t, txErr.RollbackClean)

	// The search document could not be deleted, so the checkpoint stays
	// behind with the failing stream's state recorded.
	cp, cerr := h.checkpoints.Load(t.Context(), item.ID)
	require.NoError(t, cerr)
	require.NotNil(t, cp)
	assert.Equal(t, core.TxRolledBack, cp.State)
	assert.NotEmpty(t, cp.Streams[StreamSemantic].Error)

	stale, serr := h.area.Stale()
	require.NoError(t, serr)
	assert.Equal(t, []string{item.ID}, stale)

	// The streams that could roll back did.
	assert.Equal(t, 0, h.vectors.Len())
	assert.Equal(t, 0, h.blobs.Len())
	assert.Equal(t, 0, h.documents.Len())
}

func TestExecuteCancelledContextStillRollsBack(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()

	// Cancel mid-commit: the search write succeeds, then the cancellation
	// surfaces from the vector upsert.
	ctx, cancel := context.WithCancel(t.Context())
	h.vectors.UpsertFunc = func(upsertCtx context.Context, records []*core.VectorRecord) error {
		cancel()
		return upsertCtx.Err()
	}

	item := patternItem()
	err := h.coordinator.Execute(ctx, item)
	require.Error(t, err)

	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.True(t, txErr.RollbackClean, "rollback must complete despite cancellation")
	h.requireNoTrace(t, item.ID)
}

func TestRollbackAgainstUnknownCommitOutcome(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	// Commit the semantic stream for real, then roll back from a
	// checkpoint that only knows the stream was attempted: the document
	// ID must be re-derived and the document deleted.
	dir, err := h.area.Allocate(item.ID)
	require.NoError(t, err)
	payload, err := h.semantic.Prepare(t.Context(), item, dir)
	require.NoError(t, err)
	_, err = h.semantic.Commit(t.Context(), payload)
	require.NoError(t, err)
	require.Equal(t, 1, h.search.Len())

	require.NoError(t, h.semantic.Rollback(t.Context(), payload, nil))
	assert.Equal(t, 0, h.search.Len())

	// A second rollback of the same payload is a no-op, not an error.
	require.NoError(t, h.semantic.Rollback(t.Context(), payload, nil))
}

func TestVisualRollbackIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()
	item := patternItem()

	dir, err := h.area.Allocate(item.ID)
	require.NoError(t, err)
	payload, err := h.visual.Prepare(t.Context(), item, dir)
	require.NoError(t, err)
	ref, err := h.visual.Commit(t.Context(), payload)
	require.NoError(t, err)
	require.Equal(t, 2, h.vectors.Len())
	require.Equal(t, 2, h.blobs.Len())

	require.NoError(t, h.visual.Rollback(t.Context(), payload, ref))
	assert.Equal(t, 0, h.vectors.Len())
	assert.Equal(t, 0, h.blobs.Len())

	require.NoError(t, h.visual.Rollback(t.Context(), payload, ref))
	assert.Equal(t, 0, h.vectors.Len())
	assert.Equal(t, 0, h.blobs.Len())
}

func TestNewCoordinatorValidation(t *testing.T) {
	h := newHarness(t)

	_, err := NewCoordinator(nil, nil, h.checkpoints, h.ledger)
	assert.ErrorIs(t, err, ErrStagingRequired)

	_, err = NewCoordinator(nil, h.area, nil, h.ledger)
	assert.ErrorIs(t, err, ErrCheckpointStoreRequired)

	_, err = NewCoordinator([]StreamProcessor{h.semantic}, h.area, h.checkpoints, h.ledger)
	require.ErrorIs(t, err, ErrStreamsRequired)
	assert.Contains(t, err.Error(), StreamVisual)
}

func TestCommitOrderIsFixed(t *testing.T) {
	require.Equal(t, []string{StreamSemantic, StreamVisual, StreamContent}, CommitOrder)
}

func TestExecuteCheckpointsBetweenPhases(t *testing.T) {
	h := newHarness(t)
	h.seedPatternAssets()

	var states []core.TxState
	h.checkpoints.SaveFunc = func(ctx context.Context, cp *core.Checkpoint) error {
		states = append(states, cp.State)
		return nil
	}

	item := patternItem()
	require.NoError(t, h.coordinator.Execute(t.Context(), item))

	// PREPARING, PREPARED, COMMITTING, one save per stream commit, COMMITTED.
	require.Equal(t, []core.TxState{
		core.TxPreparing,
		core.TxPrepared,
		core.TxCommitting,
		core.TxCommitting,
		core.TxCommitting,
		core.TxCommitting,
		core.TxCommitted,
	}, states)
}

func TestContentHashChangesWithMetadata(t *testing.T) {
	body := "<p>same body</p>"
	a := core.ContentHash(body, map[string]string{"status": "draft"})
	b := core.ContentHash(body, map[string]string{"status": "approved"})
	c := core.ContentHash(body, map[string]string{"status": "draft"})

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
	assert.Len(t, a, 32)
}

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/triplex/core"
	stormock "github.com/poiesic/triplex/storage/mock"
)

func (h *harness) newSupervisor(t *testing.T, opts ...SupervisorOption) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(h.client, h.coordinator, h.ledger, h.backends(), h.config, opts...)
	require.NoError(t, err)
	return s
}

// seedCatalog registers n image-free items on the mock client.
func (h *harness) seedCatalog(n int) []core.Item {
	catalog := make([]core.Item, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("item-%03d", i)
		catalog = append(catalog, core.Item{ID: id, Title: fmt.Sprintf("Item %03d", i)})
		h.client.Bodies[id] = fmt.Sprintf(
			"<h2>Overview</h2><p>Body of item %03d with enough text for a summary.</p>", i)
	}
	h.client.Catalog = catalog
	return catalog
}

func TestSupervisorRunAndIdempotentRerun(t *testing.T) {
	h := newHarness(t)
	h.seedCatalog(4)

	s := h.newSupervisor(t)
	summary, err := s.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 4, h.search.Len())

	// Unchanged items are skipped on the second run via the hash ledger.
	writes := h.search.WriteCount()
	summary, err = s.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, writes, h.search.WriteCount(), "skipped items must not touch backends")
}

func TestSupervisorReingestsChangedItems(t *testing.T) {
	h := newHarness(t)
	h.seedCatalog(2)

	s := h.newSupervisor(t)
	_, err := s.Run(t.Context())
	require.NoError(t, err)

	h.client.Bodies["item-001"] = "<h2>Overview</h2><p>Revised body with materially different content.</p>"
	summary, err := s.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Skipped)

	sec := h.documents.Section("item-001", "Overview")
	require.NotNil(t, sec)
	assert.Contains(t, sec.Text, "Revised body")
}

func TestSupervisorPreflightAbortsRun(t *testing.T) {
	h := newHarness(t)
	h.seedCatalog(2)
	h.blobs.PingFunc = func(ctx context.Context) error {
		return errors.New("connection refused")
	}

	s := h.newSupervisor(t)
	_, err := s.Run(t.Context())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "blob store", cfgErr.Check)
	assert.Equal(t, 0, h.search.Len(), "no item may be touched after a failed pre-flight")
}

func TestSupervisorCatalogFetchFailure(t *testing.T) {
	h := newHarness(t)
	h.client.FetchCatalogFunc = func(ctx context.Context) ([]core.Item, error) {
		return nil, errors.New("source unreachable")
	}

	s := h.newSupervisor(t)
	_, err := s.Run(t.Context())
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "catalog fetch", cfgErr.Check)
}

func TestSupervisorFailureIsolation(t *testing.T) {
	h := newHarness(t)
	catalog := h.seedCatalog(3)
	// item-001's body is gone from the source: fetch fails, siblings run.
	delete(h.client.Bodies, "item-001")

	s := h.newSupervisor(t)
	summary, err := s.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "item-001", summary.Failures[0].ItemID)
	assert.Equal(t, "fetch", summary.Failures[0].Stage)
	assert.True(t, summary.Failures[0].RollbackClean)

	for _, item := range catalog {
		has, herr := h.search.HasDocument(t.Context(), item.ID)
		require.NoError(t, herr)
		assert.Equal(t, item.ID != "item-001", has)
	}
}

func TestSupervisorRollbackFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.seedCatalog(1)
	boom := errors.New("document store down")
	h.documents.BatchWriteFunc = func(ctx context.Context, docs []*core.SectionDocument) error {
		return boom
	}
	h.search.DeleteDocumentFunc = func(ctx context.Context, docID string) error {
		return errors.New("search index down")
	}

	s := h.newSupervisor(t)
	summary, err := s.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "commit", summary.Failures[0].Stage)
	assert.False(t, summary.Failures[0].RollbackClean)
}

func TestSupervisorBoundsConcurrency(t *testing.T) {
	h := newHarness(t)
	h.seedCatalog(6)
	h.config.Concurrency = 2

	var gauge stormock.Gauge
	h.summarizer.SummarizeTextFunc = func(ctx context.Context, title, text string) (string, error) {
		gauge.Enter()
		defer gauge.Exit()
		time.Sleep(5 * time.Millisecond)
		return fmt.Sprintf("Summary of %s, long enough to pass validation.", title), nil
	}

	s := h.newSupervisor(t)
	summary, err := s.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Succeeded)
	assert.LessOrEqual(t, gauge.Max(), 2, "worker pool must bound in-flight items")
	assert.GreaterOrEqual(t, gauge.Max(), 1)
}

func TestSupervisorProgressOutput(t *testing.T) {
	h := newHarness(t)
	h.seedCatalog(2)

	var buf bytes.Buffer
	s := h.newSupervisor(t, WithProgress(&buf))
	_, err := s.Run(t.Context())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "2/2 items")
	assert.Contains(t, out, "100.0%")
}

func TestNewSupervisorValidation(t *testing.T) {
	h := newHarness(t)

	_, err := NewSupervisor(nil, h.coordinator, h.ledger, h.backends(), h.config)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = NewSupervisor(h.client, nil, h.ledger, h.backends(), h.config)
	assert.ErrorIs(t, err, ErrStreamsRequired)
}

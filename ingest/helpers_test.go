package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/triplex/ai/mock"
	"github.com/poiesic/triplex/core"
	srcmock "github.com/poiesic/triplex/source/mock"
	"github.com/poiesic/triplex/staging"
	stormock "github.com/poiesic/triplex/storage/mock"
)

// harness wires all three processors, the coordinator and every backend
// double against a temp staging area.
type harness struct {
	search      *stormock.SearchIndex
	vectors     *stormock.VectorIndex
	documents   *stormock.DocumentStore
	blobs       *stormock.BlobStore
	checkpoints *stormock.CheckpointStore
	ledger      *stormock.Ledger
	client      *srcmock.MockClient
	summarizer  *aimock.MockSummarizer
	describer   *aimock.MockDescriber
	embedder    *aimock.MockEmbedder
	area        *staging.Area
	config      *Config
	coordinator *Coordinator
	semantic    *SemanticProcessor
	visual      *VisualProcessor
	content     *ContentProcessor
}

func testConfig() *Config {
	return &Config{
		MaxAttempts:      2,
		BaseDelay:        time.Millisecond,
		Concurrency:      5,
		MaxImages:        8,
		MinImageBytes:    16,
		MinTextLength:    10,
		MinSummaryLength: 10,
		MinSectionLength: 5,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	area, err := staging.NewArea(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		search:      stormock.NewSearchIndex(),
		vectors:     stormock.NewVectorIndex(),
		documents:   stormock.NewDocumentStore(0),
		blobs:       stormock.NewBlobStore(),
		checkpoints: stormock.NewCheckpointStore(),
		ledger:      stormock.NewLedger(),
		client:      srcmock.NewMockClient(),
		summarizer:  aimock.NewMockSummarizer(),
		describer:   aimock.NewMockDescriber(),
		embedder:    aimock.NewMockEmbedder(),
		area:        area,
		config:      testConfig(),
	}

	h.semantic = NewSemanticProcessor(h.summarizer, h.search, h.area, h.config)
	h.visual = NewVisualProcessor(h.client, h.describer, h.embedder, h.vectors, h.blobs, h.area, h.config)
	h.content = NewContentProcessor(h.documents, h.area, h.config)

	h.coordinator, err = NewCoordinator(
		[]StreamProcessor{h.semantic, h.visual, h.content},
		h.area, h.checkpoints, h.ledger,
	)
	require.NoError(t, err)

	return h
}

func (h *harness) backends() Backends {
	return Backends{
		Search:    h.search,
		Vectors:   h.vectors,
		Documents: h.documents,
		Blobs:     h.blobs,
	}
}

// requireNoTrace asserts the atomicity invariant: nothing of the item is
// visible in any backend.
func (h *harness) requireNoTrace(t *testing.T, itemID string) {
	t.Helper()
	require.Equal(t, 0, h.search.Len(), "search index must hold no documents")
	require.Equal(t, 0, h.vectors.Len(), "vector index must hold no records")
	require.Equal(t, 0, h.documents.Len(), "document store must hold no sections")
	require.Equal(t, 0, h.blobs.Len(), "blob store must hold no blobs")
}

// requireFullTrace asserts the item is fully represented.
func (h *harness) requireFullTrace(t *testing.T, itemID string, vectors, sections int) {
	t.Helper()
	require.NotNil(t, h.search.Document(itemID))
	count, err := h.vectors.CountByItem(t.Context(), itemID)
	require.NoError(t, err)
	require.Equal(t, vectors, count)
	count, err = h.documents.CountByItem(t.Context(), itemID)
	require.NoError(t, err)
	require.Equal(t, sections, count)
}

// imageBytes builds an asset payload above the minimum-size threshold.
func imageBytes(seed byte) []byte {
	return bytes.Repeat([]byte{seed}, 64)
}

// patternItem returns the canonical test item: 4 headed sections, 2 images.
func patternItem() *core.Item {
	body := `
<h2>Problem</h2><p>Replication lag corrupts reads during failover events.</p>
<img src="diagrams/arch.png">
<h2>Solution</h2><p>A write-ahead ledger is replayed on the standby node.</p>
<img src="diagrams/flow.png">
<h2>Trade-offs</h2><p>Extra write amplification in exchange for clean cutover.</p>
<h2>Operations</h2><p>Standby promotion is scripted and runs in seconds.</p>`

	item := &core.Item{
		ID:    "kb-2041",
		Title: "Write-Ahead Replication",
		Metadata: map[string]string{
			"owner":  "storage-team",
			"status": "approved",
		},
		Body: body,
	}
	item.ContentHash = core.ContentHash(item.Body, item.Metadata)
	return item
}

// seedPatternAssets registers the pattern item's fixtures on the client.
func (h *harness) seedPatternAssets() {
	h.client.Assets["diagrams/arch.png"] = imageBytes(0xA1)
	h.client.Assets["diagrams/flow.png"] = imageBytes(0xB2)
}

// manySectionsItem builds an item whose body splits into n headed sections.
func manySectionsItem(n int) *core.Item {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "<h2>Section %04d</h2><p>Section body number %d with enough text to keep.</p>", i, i)
	}
	item := &core.Item{
		ID:    "BULK-001",
		Title: "Bulk Sections",
		Body:  sb.String(),
	}
	item.ContentHash = core.ContentHash(item.Body, item.Metadata)
	return item
}

package ingest

import (
	"fmt"

	"github.com/poiesic/triplex/core"
)

// Payload is the staged output of one stream's prepare phase. It is a
// tagged union: Stream names the variant and exactly one of the variant
// fields is set. Payloads are fully reconstructable from the staging area
// alone so a crashed process can resume or roll back from disk.
type Payload struct {
	Stream   string           `json:"stream"`
	ItemID   string           `json:"item_id"`
	Semantic *SemanticPayload `json:"semantic,omitempty"`
	Visual   *VisualPayload   `json:"visual,omitempty"`
	Content  *ContentPayload  `json:"content,omitempty"`
}

// SemanticPayload carries the search document the semantic stream staged.
type SemanticPayload struct {
	Document *core.SearchDocument `json:"document"`
}

// VisualPayload carries the staged images and their vector records. Upload
// is a prepare-side side effect, so Uploaded is tracked per image and the
// payload is re-persisted after every upload: rollback can always find
// what reached the blob store, even when prepare itself failed mid-item.
type VisualPayload struct {
	Images []*StagedImage `json:"images"`
}

// StagedImage is one image the visual stream processed.
type StagedImage struct {
	SourceRef string             `json:"source_ref"`
	AssetPath string             `json:"asset_path"`
	BlobPath  string             `json:"blob_path"`
	Uploaded  bool               `json:"uploaded"`
	Record    *core.VectorRecord `json:"record,omitempty"`
}

// ContentPayload carries the section documents the content stream staged.
type ContentPayload struct {
	Sections []*core.SectionDocument `json:"sections"`
}

// Validate checks the tagged-union shape: a known stream tag, a non-empty
// item ID, and exactly the matching variant populated. Called at the
// staging boundary on every load.
func (p *Payload) Validate() error {
	if p.ItemID == "" {
		return fmt.Errorf("%w: missing item ID", ErrPayloadMismatch)
	}

	var want, got int
	for _, set := range []bool{p.Semantic != nil, p.Visual != nil, p.Content != nil} {
		if set {
			got++
		}
	}
	want = 1

	switch p.Stream {
	case StreamSemantic:
		if p.Semantic == nil || got != want {
			return fmt.Errorf("%w: stream %q", ErrPayloadMismatch, p.Stream)
		}
	case StreamVisual:
		if p.Visual == nil || got != want {
			return fmt.Errorf("%w: stream %q", ErrPayloadMismatch, p.Stream)
		}
	case StreamContent:
		if p.Content == nil || got != want {
			return fmt.Errorf("%w: stream %q", ErrPayloadMismatch, p.Stream)
		}
	default:
		return fmt.Errorf("%w: unknown stream %q", ErrPayloadMismatch, p.Stream)
	}
	return nil
}

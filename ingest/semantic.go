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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/triplex/ai"
	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/markup"
	"github.com/poiesic/triplex/retry"
	"github.com/poiesic/triplex/staging"
	"github.com/poiesic/triplex/storage"
)

// SemanticProcessor is the semantic stream: it extracts plain text from the
// item body, derives a dense summary, and writes one search document per
// item.
type SemanticProcessor struct {
	summarizer ai.Summarizer
	search     storage.SearchIndex
	area       *staging.Area
	config     *Config
	logger     *slog.Logger
}

var _ StreamProcessor = (*SemanticProcessor)(nil)

// NewSemanticProcessor creates the semantic stream processor.
func NewSemanticProcessor(summarizer ai.Summarizer, search storage.SearchIndex, area *staging.Area, config *Config) *SemanticProcessor {
	return &SemanticProcessor{
		summarizer: summarizer,
		search:     search,
		area:       area,
		config:     config.withDefaults(),
		logger:     slog.Default().With("component", "ingest", "stream", StreamSemantic),
	}
}

// Name returns the stream's canonical name.
func (p *SemanticProcessor) Name() string { return StreamSemantic }

// Prepare extracts and validates the item text, generates the summary and
// stages the resulting search document.
func (p *SemanticProcessor) Prepare(ctx context.Context, item *core.Item, stagingDir string) (*Payload, error) {
	text := markup.ExtractText(item.Body)
	if len(text) < p.config.MinTextLength {
		return nil, &PreparationError{
			Stream: StreamSemantic,
			Step:   "extract",
			Err:    fmt.Errorf("extracted text too short (%d < %d chars)", len(text), p.config.MinTextLength),
		}
	}

	var summary string
	err := retry.Do(ctx, func() error {
		var serr error
		summary, serr = p.summarizer.SummarizeText(ctx, item.Title, text)
		return serr
	}, p.config.MaxAttempts, p.config.BaseDelay)
	if err != nil {
		return nil, &PreparationError{Stream: StreamSemantic, Step: "summarize", Err: err}
	}

	if len(summary) < p.config.MinSummaryLength {
		return nil, &PreparationError{
			Stream: StreamSemantic,
			Step:   "summarize",
			Err:    fmt.Errorf("summary too short (%d < %d chars)", len(summary), p.config.MinSummaryLength),
		}
	}

	payload := &Payload{
		Stream: StreamSemantic,
		ItemID: item.ID,
		Semantic: &SemanticPayload{
			Document: &core.SearchDocument{
				Title:    item.Title,
				Summary:  summary,
				Metadata: item.Metadata,
				ItemID:   item.ID,
			},
		},
	}
	if err := p.area.Persist(stagingDir, StreamSemantic, payload); err != nil {
		return nil, &PreparationError{Stream: StreamSemantic, Step: "stage", Err: err}
	}

	p.logger.Debug("prepared search document", "item", item.ID, "summary_chars", len(summary))
	return payload, nil
}

// Commit writes the staged search document to the search index.
func (p *SemanticProcessor) Commit(ctx context.Context, payload *Payload) (*core.BackendRef, error) {
	var docID string
	err := retry.Do(ctx, func() error {
		var werr error
		docID, werr = p.search.WriteDocument(ctx, payload.Semantic.Document)
		return werr
	}, p.config.MaxAttempts, p.config.BaseDelay)
	if err != nil {
		return nil, &CommitError{Stream: StreamSemantic, Err: err}
	}

	p.logger.Info("committed search document", "item", payload.ItemID, "doc", docID)
	return &core.BackendRef{DocID: docID}, nil
}

// Rollback deletes the search document. When commit never ran the document
// ID is derived the same way WriteDocument derives it, so an
// unknown-outcome commit is still cleaned up; an absent document is fine.
func (p *SemanticProcessor) Rollback(ctx context.Context, payload *Payload, ref *core.BackendRef) error {
	docID := ""
	if ref != nil {
		docID = ref.DocID
	}
	if docID == "" {
		docID = fmt.Sprintf("desc_%s", payload.ItemID)
	}

	err := retry.Do(ctx, func() error {
		derr := p.search.DeleteDocument(ctx, docID)
		if errors.Is(derr, storage.ErrNotFound) {
			return nil
		}
		return derr
	}, p.config.MaxAttempts, p.config.BaseDelay)
	if err != nil {
		return &RollbackError{Stream: StreamSemantic, ItemID: payload.ItemID, Err: err}
	}

	p.logger.Info("rolled back search document", "item", payload.ItemID, "doc", docID)
	return nil
}

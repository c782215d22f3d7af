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
	"log/slog"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/markup"
	"github.com/poiesic/triplex/retry"
	"github.com/poiesic/triplex/staging"
	"github.com/poiesic/triplex/storage"
)

// ContentProcessor is the content stream: it splits the item body into
// named sections by heading hierarchy and writes each surviving section as
// an individually addressable document keyed by (item, section).
type ContentProcessor struct {
	documents storage.DocumentStore
	area      *staging.Area
	config    *Config
	logger    *slog.Logger
}

var _ StreamProcessor = (*ContentProcessor)(nil)

// NewContentProcessor creates the content stream processor.
func NewContentProcessor(documents storage.DocumentStore, area *staging.Area, config *Config) *ContentProcessor {
	return &ContentProcessor{
		documents: documents,
		area:      area,
		config:    config.withDefaults(),
		logger:    slog.Default().With("component", "ingest", "stream", StreamContent),
	}
}

// Name returns the stream's canonical name.
func (p *ContentProcessor) Name() string { return StreamContent }

// Prepare splits the body into sections and stages the section documents.
// A body with no headings yields a single whole-document section.
func (p *ContentProcessor) Prepare(ctx context.Context, item *core.Item, stagingDir string) (*Payload, error) {
	sections := markup.SplitSections(item.Body, p.config.MinSectionLength)

	payload := &Payload{
		Stream:  StreamContent,
		ItemID:  item.ID,
		Content: &ContentPayload{},
	}
	for _, section := range sections {
		payload.Content.Sections = append(payload.Content.Sections, &core.SectionDocument{
			ItemID:      item.ID,
			SectionName: section.Name,
			Text:        section.Text,
		})
	}

	if err := p.area.Persist(stagingDir, StreamContent, payload); err != nil {
		return nil, &PreparationError{Stream: StreamContent, Step: "stage", Err: err}
	}

	p.logger.Debug("prepared sections", "item", item.ID, "sections", len(sections))
	return payload, nil
}

// Commit writes the staged sections, chunked to the backend's batch limit.
// All batches succeed or the stream as a whole fails and is rolled back.
func (p *ContentProcessor) Commit(ctx context.Context, payload *Payload) (*core.BackendRef, error) {
	sections := payload.Content.Sections
	limit := p.documents.MaxBatchSize()

	ref := &core.BackendRef{}
	for start := 0; start < len(sections); start += limit {
		end := start + limit
		if end > len(sections) {
			end = len(sections)
		}
		batch := sections[start:end]

		err := retry.Do(ctx, func() error {
			return p.documents.BatchWrite(ctx, batch)
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			return nil, &CommitError{Stream: StreamContent, Err: err}
		}

		for _, doc := range batch {
			ref.SectionKeys = append(ref.SectionKeys, doc.Key())
		}
		ref.Batches++
	}

	p.logger.Info("committed sections", "item", payload.ItemID, "sections", len(sections), "batches", ref.Batches)
	return ref, nil
}

// Rollback removes the item's whole section collection. Collection-scoped
// deletion makes this idempotent and covers partially written batches.
func (p *ContentProcessor) Rollback(ctx context.Context, payload *Payload, ref *core.BackendRef) error {
	err := retry.Do(ctx, func() error {
		return p.documents.DeleteCollection(ctx, payload.ItemID)
	}, p.config.MaxAttempts, p.config.BaseDelay)
	if err != nil {
		return &RollbackError{Stream: StreamContent, ItemID: payload.ItemID, Err: err}
	}

	p.logger.Info("rolled back sections", "item", payload.ItemID)
	return nil
}

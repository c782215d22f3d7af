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
	"fmt"
	"log/slog"

	"github.com/poiesic/triplex/ai"
	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/markup"
	"github.com/poiesic/triplex/retry"
	"github.com/poiesic/triplex/source"
	"github.com/poiesic/triplex/staging"
	"github.com/poiesic/triplex/storage"
)

// VisualProcessor is the visual stream: it downloads the item's embedded
// images, uploads each to blob storage, derives a text description and a
// vector embedding per image, and indexes the embeddings with the item ID
// as a filterable attribute.
//
// Blob uploads happen during prepare. They are the one side effect prepare
// cannot stage locally, so every upload is recorded in the payload before
// and after it runs; rollback deletes whatever reached the blob store even
// when prepare itself failed mid-item.
type VisualProcessor struct {
	client    source.Client
	describer ai.Describer
	embedder  ai.Embedder
	vectors   storage.VectorIndex
	blobs     storage.BlobStore
	area      *staging.Area
	config    *Config
	logger    *slog.Logger
}

var _ StreamProcessor = (*VisualProcessor)(nil)

// NewVisualProcessor creates the visual stream processor.
func NewVisualProcessor(
	client source.Client,
	describer ai.Describer,
	embedder ai.Embedder,
	vectors storage.VectorIndex,
	blobs storage.BlobStore,
	area *staging.Area,
	config *Config,
) *VisualProcessor {
	return &VisualProcessor{
		client:    client,
		describer: describer,
		embedder:  embedder,
		vectors:   vectors,
		blobs:     blobs,
		area:      area,
		config:    config.withDefaults(),
		logger:    slog.Default().With("component", "ingest", "stream", StreamVisual),
	}
}

// Name returns the stream's canonical name.
func (p *VisualProcessor) Name() string { return StreamVisual }

// Prepare downloads, stages and uploads the item's images and derives one
// vector record per image. An item with no usable images is a valid, empty
// result; a persistent description or embedding failure for a downloaded
// image fails the stream.
func (p *VisualProcessor) Prepare(ctx context.Context, item *core.Item, stagingDir string) (*Payload, error) {
	refs := markup.ImageRefs(item.Body, p.config.MaxImages)

	payload := &Payload{
		Stream: StreamVisual,
		ItemID: item.ID,
		Visual: &VisualPayload{},
	}
	if len(refs) == 0 {
		if err := p.area.Persist(stagingDir, StreamVisual, payload); err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "stage", Err: err}
		}
		p.logger.Debug("no images found", "item", item.ID)
		return payload, nil
	}

	for idx, ref := range refs {
		var data []byte
		err := retry.Do(ctx, func() error {
			var derr error
			data, derr = p.client.FetchAsset(ctx, ref)
			return derr
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "download", Err: fmt.Errorf("asset %s: %w", ref, err)}
		}

		if len(data) < p.config.MinImageBytes {
			p.logger.Debug("skipping small image", "item", item.ID, "ref", ref, "bytes", len(data))
			continue
		}

		name := fmt.Sprintf("img_%d", idx)
		assetPath, err := p.area.WriteAsset(stagingDir, name, data)
		if err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "stage", Err: err}
		}

		staged := &StagedImage{
			SourceRef: ref,
			AssetPath: assetPath,
			BlobPath:  fmt.Sprintf("%s/%s", item.ID, name),
		}
		payload.Visual.Images = append(payload.Visual.Images, staged)

		// Record the upload intent before it runs, so an upload with an
		// unknown outcome is still visible to rollback.
		if err := p.area.Persist(stagingDir, StreamVisual, payload); err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "stage", Err: err}
		}

		err = retry.Do(ctx, func() error {
			_, perr := p.blobs.Put(ctx, staged.BlobPath, data)
			return perr
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "upload", Err: fmt.Errorf("blob %s: %w", staged.BlobPath, err)}
		}
		staged.Uploaded = true
		if err := p.area.Persist(stagingDir, StreamVisual, payload); err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "stage", Err: err}
		}

		var description string
		err = retry.Do(ctx, func() error {
			var derr error
			description, derr = p.describer.DescribeImage(ctx, data, item.Title)
			return derr
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "describe", Err: fmt.Errorf("image %s: %w", ref, err)}
		}

		var vector []float32
		err = retry.Do(ctx, func() error {
			var eerr error
			vector, eerr = p.embedder.EmbedText(ctx, description)
			return eerr
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "embed", Err: fmt.Errorf("image %s: %w", ref, err)}
		}

		staged.Record = &core.VectorRecord{
			ID:          fmt.Sprintf("img_%s_%d", item.ID, idx),
			Vector:      vector,
			ItemID:      item.ID,
			BlobPath:    staged.BlobPath,
			Description: description,
		}
		if err := p.area.Persist(stagingDir, StreamVisual, payload); err != nil {
			return nil, &PreparationError{Stream: StreamVisual, Step: "stage", Err: err}
		}

		p.logger.Debug("prepared image", "item", item.ID, "blob", staged.BlobPath)
	}

	p.logger.Debug("prepared visual stream", "item", item.ID, "images", len(payload.Visual.Images))
	return payload, nil
}

// Commit upserts the staged vector records. The blobs were already
// uploaded during prepare.
func (p *VisualProcessor) Commit(ctx context.Context, payload *Payload) (*core.BackendRef, error) {
	ref := &core.BackendRef{}
	var records []*core.VectorRecord
	for _, img := range payload.Visual.Images {
		if img.Uploaded {
			ref.BlobPaths = append(ref.BlobPaths, img.BlobPath)
		}
		if img.Record != nil {
			records = append(records, img.Record)
			ref.VectorIDs = append(ref.VectorIDs, img.Record.ID)
		}
	}

	if len(records) > 0 {
		err := retry.Do(ctx, func() error {
			return p.vectors.Upsert(ctx, records)
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			return nil, &CommitError{Stream: StreamVisual, Err: err}
		}
	}

	p.logger.Info("committed vectors", "item", payload.ItemID, "vectors", len(records), "blobs", len(ref.BlobPaths))
	return ref, nil
}

// Rollback deletes every uploaded blob and removes every indexed vector.
// It works from the union of the staged payload and the backend reference
// so it covers partial prepares, partial commits and unknown outcomes.
// Absent blobs and vector IDs are not errors.
func (p *VisualProcessor) Rollback(ctx context.Context, payload *Payload, ref *core.BackendRef) error {
	blobPaths := make(map[string]bool)
	vectorIDs := make(map[string]bool)
	if payload != nil && payload.Visual != nil {
		for _, img := range payload.Visual.Images {
			blobPaths[img.BlobPath] = true
			if img.Record != nil {
				vectorIDs[img.Record.ID] = true
			}
		}
	}
	if ref != nil {
		for _, path := range ref.BlobPaths {
			blobPaths[path] = true
		}
		for _, id := range ref.VectorIDs {
			vectorIDs[id] = true
		}
	}

	itemID := ""
	if payload != nil {
		itemID = payload.ItemID
	}

	var firstErr error
	ids := make([]string, 0, len(vectorIDs))
	for id := range vectorIDs {
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		err := retry.Do(ctx, func() error {
			return p.vectors.Remove(ctx, ids)
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			firstErr = err
			p.logger.Error("vector removal failed during rollback", "item", itemID, "error", err)
		}
	}

	for path := range blobPaths {
		err := retry.Do(ctx, func() error {
			return p.blobs.Delete(ctx, path)
		}, p.config.MaxAttempts, p.config.BaseDelay)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			p.logger.Error("blob deletion failed during rollback", "item", itemID, "blob", path, "error", err)
		}
	}

	if firstErr != nil {
		return &RollbackError{Stream: StreamVisual, ItemID: itemID, Err: firstErr}
	}

	p.logger.Info("rolled back visual stream", "item", itemID, "blobs", len(blobPaths), "vectors", len(ids))
	return nil
}

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


package triplex

import (
	"log/slog"

	"github.com/poiesic/triplex/ai"
	"github.com/poiesic/triplex/ai/openai"
	"github.com/poiesic/triplex/ingest"
	"github.com/poiesic/triplex/source"
	"github.com/poiesic/triplex/staging"
	"github.com/poiesic/triplex/storage"
	"github.com/poiesic/triplex/storage/badger"
)

// System wires the storage backends, the AI provider and the staging area
// together and hands out the ingestion machinery built on top of them.
type System struct {
	backend     *badger.Backend
	search      storage.SearchIndex
	vectors     storage.VectorIndex
	documents   storage.DocumentStore
	blobs       storage.BlobStore
	checkpoints storage.CheckpointStore
	ledger      storage.Ledger
	provider    ai.AIProvider
	area        *staging.Area
	config      *ingest.Config
	logger      *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig     *ai.Config
	ingestConfig *ingest.Config
}

// WithAIConfig sets the AI service configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		o.aiConfig = config
	}
}

// WithIngestConfig sets the ingestion tuning.
func WithIngestConfig(config *ingest.Config) SystemOption {
	return func(o *systemOptions) {
		o.ingestConfig = config
	}
}

// NewSystem opens the shared storage backend at dbPath, the staging area
// at stagingDir, and the configured AI provider.
func NewSystem(dbPath, stagingDir string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:     ai.DefaultConfig(),
		ingestConfig: ingest.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return nil, err
	}

	area, err := staging.NewArea(stagingDir)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &System{
		backend:     backend,
		search:      badger.NewSearchIndex(backend),
		vectors:     badger.NewVectorIndex(backend),
		documents:   badger.NewDocumentStore(backend, 0),
		blobs:       badger.NewBlobStore(backend),
		checkpoints: badger.NewCheckpointStore(backend),
		ledger:      badger.NewLedger(backend),
		provider:    provider,
		area:        area,
		config:      options.ingestConfig,
		logger:      slog.Default(),
	}, nil
}

// Close releases the AI provider and the storage backend.
func (s *System) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Backends returns the write targets for pre-flight checks and audits.
func (s *System) Backends() ingest.Backends {
	return ingest.Backends{
		Search:    s.search,
		Vectors:   s.vectors,
		Documents: s.documents,
		Blobs:     s.blobs,
	}
}

// CheckpointStore returns the transaction checkpoint store.
func (s *System) CheckpointStore() storage.CheckpointStore {
	return s.checkpoints
}

// Ledger returns the content-hash ledger.
func (s *System) Ledger() storage.Ledger {
	return s.ledger
}

// StagingArea returns the staging area.
func (s *System) StagingArea() *staging.Area {
	return s.area
}

// NewCoordinator builds the transaction coordinator over the system's
// backends, wiring one processor per stream.
func (s *System) NewCoordinator(client source.Client) (*ingest.Coordinator, error) {
	processors := []ingest.StreamProcessor{
		ingest.NewSemanticProcessor(s.provider.Summarizer(), s.search, s.area, s.config),
		ingest.NewVisualProcessor(client, s.provider.Describer(), s.provider.Embedder(), s.vectors, s.blobs, s.area, s.config),
		ingest.NewContentProcessor(s.documents, s.area, s.config),
	}
	return ingest.NewCoordinator(processors, s.area, s.checkpoints, s.ledger)
}

// NewSupervisor builds an ingestion supervisor over the given source.
func (s *System) NewSupervisor(client source.Client, opts ...ingest.SupervisorOption) (*ingest.Supervisor, error) {
	coordinator, err := s.NewCoordinator(client)
	if err != nil {
		return nil, err
	}
	return ingest.NewSupervisor(client, coordinator, s.ledger, s.Backends(), s.config, opts...)
}

// NewRecovery builds a recovery pass over the given source. The source is
// needed because rolling back a visual stream may have to re-derive blob
// locations from staged payloads.
func (s *System) NewRecovery(client source.Client) (*ingest.Recovery, error) {
	coordinator, err := s.NewCoordinator(client)
	if err != nil {
		return nil, err
	}
	return ingest.NewRecovery(coordinator, s.checkpoints, s.area), nil
}

// NewVerifier builds an audit over the system's backends.
func (s *System) NewVerifier() *ingest.Verifier {
	return ingest.NewVerifier(s.Backends(), s.ledger)
}

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
	"io"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/retry"
	"github.com/poiesic/triplex/source"
	"github.com/poiesic/triplex/storage"
)

// Backends bundles the write targets for pre-flight checks.
type Backends struct {
	Search    storage.SearchIndex
	Vectors   storage.VectorIndex
	Documents storage.DocumentStore
	Blobs     storage.BlobStore
}

// ItemFailure describes one item's terminal failure.
type ItemFailure struct {
	ItemID string
	Stage  string // "fetch", "prepare", "commit", "recovery"
	Cause  string
	// RollbackClean is false when the compensating rollback itself failed,
	// leaving backend records that need manual cleanup.
	RollbackClean bool
}

// Summary aggregates per-item outcomes of one ingestion run.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Failures  []ItemFailure

	mu sync.Mutex
}

func (s *Summary) success() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Succeeded++
}

func (s *Summary) skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *Summary) fail(f ItemFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
	s.Failures = append(s.Failures, f)
}

// Supervisor iterates the item catalog and runs each item's transaction
// under a bounded worker pool. One item's terminal failure never aborts
// the rest of the catalog.
type Supervisor struct {
	client      source.Client
	coordinator *Coordinator
	ledger      storage.Ledger
	backends    Backends
	config      *Config
	progress    io.Writer
	logger      *slog.Logger
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithProgress sets where per-item progress is written.
// Default is no progress output.
func WithProgress(w io.Writer) SupervisorOption {
	return func(s *Supervisor) {
		s.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewSupervisor creates a supervisor.
func NewSupervisor(
	client source.Client,
	coordinator *Coordinator,
	ledger storage.Ledger,
	backends Backends,
	config *Config,
	opts ...SupervisorOption,
) (*Supervisor, error) {
	if client == nil {
		return nil, ErrSourceRequired
	}
	if coordinator == nil {
		return nil, ErrStreamsRequired
	}

	s := &Supervisor{
		client:      client,
		coordinator: coordinator,
		ledger:      ledger,
		backends:    backends,
		config:      config.withDefaults(),
		progress:    io.Discard,
		logger:      slog.Default().With("component", "supervisor"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Preflight verifies every backend is reachable and writable. Any failure
// is a ConfigurationError: the run aborts before any item is touched,
// rather than discovering the problem mid-catalog.
func (s *Supervisor) Preflight(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"search index", s.backends.Search.Ping},
		{"vector index", s.backends.Vectors.Ping},
		{"document store", s.backends.Documents.Ping},
		{"blob store", s.backends.Blobs.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			return &ConfigurationError{Check: check.name, Err: err}
		}
	}
	return nil
}

// Run fetches the catalog and ingests it.
func (s *Supervisor) Run(ctx context.Context) (*Summary, error) {
	var catalog []core.Item
	err := retry.Do(ctx, func() error {
		var ferr error
		catalog, ferr = s.client.FetchCatalog(ctx)
		return ferr
	}, s.config.MaxAttempts, s.config.BaseDelay)
	if err != nil {
		return nil, &ConfigurationError{Check: "catalog fetch", Err: err}
	}
	return s.RunCatalog(ctx, catalog)
}

// RunCatalog ingests the given catalog under the configured concurrency
// bound, after pre-flight checks pass. Items whose content hash matches
// their last successful ingestion are skipped.
func (s *Supervisor) RunCatalog(ctx context.Context, catalog []core.Item) (*Summary, error) {
	if err := s.Preflight(ctx); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(s.config.Concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	tracker := NewProgressTracker(s.progress, len(catalog))
	tracker.Start()

	summary := &Summary{}
	var wg sync.WaitGroup
	for i := range catalog {
		item := catalog[i]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer tracker.ItemDone()
			s.ingestOne(ctx, &item, summary)
		})
		if submitErr != nil {
			wg.Done()
			tracker.ItemDone()
			summary.fail(ItemFailure{ItemID: item.ID, Stage: "fetch", Cause: submitErr.Error(), RollbackClean: true})
		}
	}
	wg.Wait()
	tracker.Finish()

	s.logger.Info("run finished",
		"succeeded", summary.Succeeded, "skipped", summary.Skipped, "failed", summary.Failed)
	for _, f := range summary.Failures {
		if !f.RollbackClean {
			s.logger.Error("item needs manual backend cleanup",
				"item", f.ItemID, "stage", f.Stage, "cause", f.Cause)
		}
	}
	return summary, nil
}

// ingestOne fetches the item body, applies the idempotency skip, and runs
// the transaction, recording the outcome on the shared summary.
func (s *Supervisor) ingestOne(ctx context.Context, item *core.Item, summary *Summary) {
	err := retry.Do(ctx, func() error {
		body, ferr := s.client.FetchBody(ctx, item.ID)
		if ferr != nil {
			return ferr
		}
		item.Body = body
		return nil
	}, s.config.MaxAttempts, s.config.BaseDelay)
	if err != nil {
		summary.fail(ItemFailure{ItemID: item.ID, Stage: "fetch", Cause: err.Error(), RollbackClean: true})
		return
	}

	item.ContentHash = core.ContentHash(item.Body, item.Metadata)
	if s.ledger != nil {
		last, lerr := s.ledger.LastHash(ctx, item.ID)
		if lerr != nil {
			s.logger.Warn("ledger lookup failed", "item", item.ID, "error", lerr)
		} else if last != "" && last == item.ContentHash {
			s.logger.Debug("skipping unchanged item", "item", item.ID)
			summary.skip()
			return
		}
	}

	if err := s.coordinator.Execute(ctx, item); err != nil {
		failure := ItemFailure{ItemID: item.ID, Stage: "prepare", Cause: err.Error(), RollbackClean: true}
		var txErr *TransactionError
		if errors.As(err, &txErr) {
			failure.Stage = txErr.Stage
			failure.RollbackClean = txErr.RollbackClean
		}
		summary.fail(failure)
		return
	}
	summary.success()
}

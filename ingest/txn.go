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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/staging"
	"github.com/poiesic/triplex/storage"
)

// Coordinator drives one item's transaction through the two-phase
// protocol: parallel prepares, sequential commits in CommitOrder, and
// reverse-order rollback on any failure. Every phase transition and every
// individual stream commit is checkpointed, so at any point the durable
// state can be completed forward or fully undone.
type Coordinator struct {
	streams     map[string]StreamProcessor
	area        *staging.Area
	checkpoints storage.CheckpointStore
	ledger      storage.Ledger
	logger      *slog.Logger
}

// NewCoordinator creates a coordinator over the given stream processors.
// Processors must cover every stream in CommitOrder.
func NewCoordinator(
	processors []StreamProcessor,
	area *staging.Area,
	checkpoints storage.CheckpointStore,
	ledger storage.Ledger,
) (*Coordinator, error) {
	if area == nil {
		return nil, ErrStagingRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointStoreRequired
	}

	streams := make(map[string]StreamProcessor, len(processors))
	for _, p := range processors {
		streams[p.Name()] = p
	}
	for _, name := range CommitOrder {
		if _, ok := streams[name]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrStreamsRequired, name)
		}
	}

	return &Coordinator{
		streams:     streams,
		area:        area,
		checkpoints: checkpoints,
		ledger:      ledger,
		logger:      slog.Default().With("component", "coordinator"),
	}, nil
}

// Execute runs one item's full transaction. The item must carry its body
// and content hash. A nil return means the item is fully represented in
// all three backends; any error means it is represented in none, unless
// the error is a *TransactionError with RollbackClean=false, which flags
// the item for manual backend cleanup.
func (c *Coordinator) Execute(ctx context.Context, item *core.Item) error {
	if err := core.ValidateItemBody(item); err != nil {
		return &TransactionError{ItemID: item.ID, Stage: "prepare", Err: err, RollbackClean: true}
	}

	dir, err := c.area.Allocate(item.ID)
	if err != nil {
		return &TransactionError{ItemID: item.ID, Stage: "prepare", Err: err, RollbackClean: true}
	}

	cp := &core.Checkpoint{
		ItemID:      item.ID,
		ContentHash: item.ContentHash,
		State:       core.TxNew,
		StagingDir:  dir,
		Streams:     make(map[string]*core.StreamCheckpoint, len(CommitOrder)),
		StartedAt:   time.Now().UTC(),
	}
	for _, name := range CommitOrder {
		cp.Streams[name] = &core.StreamCheckpoint{Phase: core.StreamPending}
	}

	payloads, prepErr := c.prepare(ctx, cp, item)
	if prepErr != nil {
		clean := c.rollback(ctx, cp, payloads)
		return &TransactionError{ItemID: item.ID, Stage: "prepare", Err: prepErr, RollbackClean: clean}
	}

	if commitErr := c.commit(ctx, cp, payloads); commitErr != nil {
		clean := c.rollback(ctx, cp, payloads)
		return &TransactionError{ItemID: item.ID, Stage: "commit", Err: commitErr, RollbackClean: clean}
	}

	return c.complete(ctx, cp)
}

// prepare fans out all three Prepare calls concurrently and waits for
// every one to return before deciding the transition. No stream is ever
// rolled back while still mid-flight.
func (c *Coordinator) prepare(ctx context.Context, cp *core.Checkpoint, item *core.Item) (map[string]*Payload, error) {
	cp.State = core.TxPreparing
	if err := c.checkpoints.Save(ctx, cp); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		payloads = make(map[string]*Payload, len(CommitOrder))
	)

	var g errgroup.Group
	for _, name := range CommitOrder {
		proc := c.streams[name]
		g.Go(func() error {
			payload, err := proc.Prepare(ctx, item, cp.StagingDir)

			mu.Lock()
			defer mu.Unlock()
			sc := cp.Streams[proc.Name()]
			if err != nil {
				sc.Phase = core.StreamFailed
				sc.Error = err.Error()
				return err
			}
			sc.Phase = core.StreamPrepared
			payloads[proc.Name()] = payload
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		cp.State = core.TxPrepareFailed
		if serr := c.checkpoints.Save(ctx, cp); serr != nil {
			c.logger.Error("checkpoint save failed", "item", cp.ItemID, "error", serr)
		}
		return payloads, err
	}

	cp.State = core.TxPrepared
	if err := c.checkpoints.Save(ctx, cp); err != nil {
		return payloads, err
	}
	return payloads, nil
}

// commit runs each stream's Commit sequentially in CommitOrder, saving a
// checkpoint after every successful stream so the backend references that
// now exist are always durable.
func (c *Coordinator) commit(ctx context.Context, cp *core.Checkpoint, payloads map[string]*Payload) error {
	cp.State = core.TxCommitting
	if err := c.checkpoints.Save(ctx, cp); err != nil {
		return err
	}

	for _, name := range CommitOrder {
		sc := cp.Streams[name]
		if sc.Phase == core.StreamCommitted {
			continue
		}

		ref, err := c.streams[name].Commit(ctx, payloads[name])
		if err != nil {
			sc.Phase = core.StreamFailed
			sc.Error = err.Error()
			cp.State = core.TxCommitFailed
			if serr := c.checkpoints.Save(ctx, cp); serr != nil {
				c.logger.Error("checkpoint save failed", "item", cp.ItemID, "error", serr)
			}
			return err
		}

		sc.Phase = core.StreamCommitted
		sc.Ref = ref
		if err := c.checkpoints.Save(ctx, cp); err != nil {
			return err
		}
	}
	return nil
}

// rollback compensates every stream in reverse commit order, using
// whatever is known from in-memory payloads, staged payloads and
// checkpointed backend references. A failure in one stream's rollback is
// logged and recorded but never stops the siblings. Returns whether every
// rollback ran clean.
func (c *Coordinator) rollback(ctx context.Context, cp *core.Checkpoint, payloads map[string]*Payload) bool {
	// Rollback must run to completion even when the caller was cancelled.
	rctx := context.WithoutCancel(ctx)

	cp.State = core.TxRollingBack
	if err := c.checkpoints.Save(rctx, cp); err != nil {
		c.logger.Error("checkpoint save failed", "item", cp.ItemID, "error", err)
	}

	clean := true
	for i := len(CommitOrder) - 1; i >= 0; i-- {
		name := CommitOrder[i]
		sc := cp.Streams[name]

		payload := payloads[name]
		if payload == nil {
			payload = c.loadStagedPayload(cp, name)
		}
		if payload == nil && sc.Ref == nil {
			// Stream never staged anything and never committed.
			sc.Phase = core.StreamRolledBack
			continue
		}
		if payload == nil {
			payload = &Payload{Stream: name, ItemID: cp.ItemID}
		}

		if err := c.streams[name].Rollback(rctx, payload, sc.Ref); err != nil {
			clean = false
			sc.Error = err.Error()
			c.logger.Error("rollback failed, manual cleanup required",
				"item", cp.ItemID, "stream", name, "ref", sc.Ref, "error", err)
			continue
		}
		sc.Phase = core.StreamRolledBack
	}

	cp.State = core.TxRolledBack
	if err := c.checkpoints.Save(rctx, cp); err != nil {
		c.logger.Error("checkpoint save failed", "item", cp.ItemID, "error", err)
	}

	if clean {
		if err := c.area.Clear(cp.StagingDir); err != nil {
			c.logger.Warn("staging cleanup failed", "item", cp.ItemID, "error", err)
		}
		if err := c.checkpoints.Delete(rctx, cp.ItemID); err != nil {
			c.logger.Warn("checkpoint delete failed", "item", cp.ItemID, "error", err)
		}
	}
	// An unclean rollback keeps staging and the checkpoint so an operator
	// has everything needed for manual backend cleanup.
	return clean
}

// complete finishes a fully committed transaction: record the content
// hash, clear staging, drop the checkpoint.
func (c *Coordinator) complete(ctx context.Context, cp *core.Checkpoint) error {
	cp.State = core.TxCommitted
	if err := c.checkpoints.Save(ctx, cp); err != nil {
		return err
	}

	if c.ledger != nil && cp.ContentHash != "" {
		if err := c.ledger.RecordHash(ctx, cp.ItemID, cp.ContentHash); err != nil {
			c.logger.Warn("ledger record failed", "item", cp.ItemID, "error", err)
		}
	}
	if err := c.area.Clear(cp.StagingDir); err != nil {
		c.logger.Warn("staging cleanup failed", "item", cp.ItemID, "error", err)
	}
	if err := c.checkpoints.Delete(ctx, cp.ItemID); err != nil {
		c.logger.Warn("checkpoint delete failed", "item", cp.ItemID, "error", err)
	}

	c.logger.Info("transaction committed", "item", cp.ItemID)
	return nil
}

// Resume drives a checkpoint recovered after a crash to a terminal state.
// A transaction checkpointed at PREPARED has never touched a backend and
// resumes forward into commit; anything else non-terminal is driven to
// rollback, since a partial commit must never be resumed forward without
// re-verifying every prior write.
func (c *Coordinator) Resume(ctx context.Context, cp *core.Checkpoint) error {
	if cp.State.Terminal() {
		// Crash landed between the terminal save and cleanup.
		if err := c.area.Clear(cp.StagingDir); err != nil {
			c.logger.Warn("staging cleanup failed", "item", cp.ItemID, "error", err)
		}
		if err := c.checkpoints.Delete(ctx, cp.ItemID); err != nil {
			return err
		}
		return nil
	}

	payloads := make(map[string]*Payload, len(CommitOrder))
	complete := true
	for _, name := range CommitOrder {
		if payload := c.loadStagedPayload(cp, name); payload != nil {
			payloads[name] = payload
		} else {
			complete = false
		}
	}

	if cp.State == core.TxPrepared && complete {
		c.logger.Info("resuming prepared transaction", "item", cp.ItemID)
		if err := c.commit(ctx, cp, payloads); err != nil {
			clean := c.rollback(ctx, cp, payloads)
			return &TransactionError{ItemID: cp.ItemID, Stage: "commit", Err: err, RollbackClean: clean}
		}
		return c.complete(ctx, cp)
	}

	c.logger.Info("rolling back interrupted transaction", "item", cp.ItemID, "state", string(cp.State))
	stateErr := fmt.Errorf("interrupted in state %s", cp.State)
	if clean := c.rollback(ctx, cp, payloads); !clean {
		return &TransactionError{ItemID: cp.ItemID, Stage: "recovery", Err: stateErr, RollbackClean: false}
	}
	return nil
}

// loadStagedPayload reads one stream's payload back from staging. Absent
// or corrupt payloads resolve to nil; corruption is logged since the
// atomic-persist contract makes it unexpected.
func (c *Coordinator) loadStagedPayload(cp *core.Checkpoint, name string) *Payload {
	var payload Payload
	if err := c.area.Load(cp.StagingDir, name, &payload); err != nil {
		if !errors.Is(err, staging.ErrPayloadNotFound) {
			c.logger.Error("staged payload unreadable", "item", cp.ItemID, "stream", name, "error", err)
		}
		return nil
	}
	if err := payload.Validate(); err != nil {
		c.logger.Error("staged payload invalid", "item", cp.ItemID, "stream", name, "error", err)
		return nil
	}
	return &payload
}

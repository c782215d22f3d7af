package ingest

import (
	"context"
	"log/slog"

	"github.com/poiesic/triplex/staging"
	"github.com/poiesic/triplex/storage"
)

// Recovery drives every checkpoint left by a crashed run to a terminal
// state before new work starts.
type Recovery struct {
	coordinator *Coordinator
	checkpoints storage.CheckpointStore
	area        *staging.Area
	logger      *slog.Logger
}

// RecoveryReport summarizes one recovery pass.
type RecoveryReport struct {
	// Resolved counts checkpoints driven to a clean terminal state,
	// whether by committing forward or by rolling back.
	Resolved int

	// Unclean counts checkpoints whose rollback failed; their staging and
	// checkpoint records are kept for manual cleanup.
	Unclean int

	// Orphans counts staging directories with no checkpoint at all, left
	// by a crash before the first checkpoint write. They never touched a
	// backend and are simply cleared.
	Orphans int
}

// NewRecovery creates a recovery pass over the given coordinator's stores.
func NewRecovery(coordinator *Coordinator, checkpoints storage.CheckpointStore, area *staging.Area) *Recovery {
	return &Recovery{
		coordinator: coordinator,
		checkpoints: checkpoints,
		area:        area,
		logger:      slog.Default().With("component", "recovery"),
	}
}

// Run resolves every stored checkpoint and clears orphaned staging
// directories. Individual failures are reported, not fatal: one stuck
// item never blocks recovery of the rest.
func (r *Recovery) Run(ctx context.Context) (*RecoveryReport, error) {
	checkpoints, err := r.checkpoints.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &RecoveryReport{}
	known := make(map[string]bool, len(checkpoints))
	for _, cp := range checkpoints {
		known[cp.ItemID] = true

		r.logger.Info("recovering transaction", "item", cp.ItemID, "state", string(cp.State), "seq", cp.Seq)
		if err := r.coordinator.Resume(ctx, cp); err != nil {
			r.logger.Error("recovery left item unclean", "item", cp.ItemID, "error", err)
			report.Unclean++
			continue
		}
		report.Resolved++
	}

	ids, err := r.area.Stale()
	if err != nil {
		return report, err
	}
	for _, id := range ids {
		if known[id] {
			continue
		}
		dir, err := r.area.Allocate(id)
		if err != nil {
			continue
		}
		if err := r.area.Clear(dir); err != nil {
			r.logger.Warn("orphan staging cleanup failed", "item", id, "error", err)
			continue
		}
		report.Orphans++
	}

	return report, nil
}

package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceRequired is returned when a source client is not provided.
	ErrSourceRequired = errors.New("source client required")

	// ErrStagingRequired is returned when a staging area is not provided.
	ErrStagingRequired = errors.New("staging area required")

	// ErrCheckpointStoreRequired is returned when a checkpoint store is not provided.
	ErrCheckpointStoreRequired = errors.New("checkpoint store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrStreamsRequired is returned when a coordinator is built without processors.
	ErrStreamsRequired = errors.New("stream processors required")

	// ErrPayloadMismatch is returned when a staged payload's stream tag does
	// not match the variant it carries.
	ErrPayloadMismatch = errors.New("payload stream mismatch")

	// ErrNotResumable is returned when resume is asked to drive a checkpoint
	// that is already terminal.
	ErrNotResumable = errors.New("checkpoint is terminal")
)

// PreparationError is an input or upstream-fetch problem raised by a
// stream's prepare phase. Step names the point of failure.
type PreparationError struct {
	Stream string
	Step   string
	Err    error
}

func (e *PreparationError) Error() string {
	return fmt.Sprintf("prepare %s/%s: %v", e.Stream, e.Step, e.Err)
}

func (e *PreparationError) Unwrap() error { return e.Err }

// CommitError is a backend write problem raised by a stream's commit phase
// after retries are exhausted.
type CommitError struct {
	Stream string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Stream, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// RollbackError is a cleanup-side failure. It is logged and surfaced on the
// transaction outcome but never allowed to block sibling streams' rollback.
type RollbackError struct {
	Stream string
	ItemID string
	Err    error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback %s for item %s: %v", e.Stream, e.ItemID, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// ConfigurationError is a pre-flight failure. It aborts the entire run
// before any item is touched.
type ConfigurationError struct {
	Check string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("preflight %s: %v", e.Check, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransactionError is the coordinator's translation of a failed
// transaction: which phase failed, the underlying cause, and whether the
// compensating rollback ran clean. A transaction whose rollback itself
// failed needs manual backend cleanup and is flagged accordingly.
type TransactionError struct {
	ItemID        string
	Stage         string // "prepare" or "commit"
	Err           error
	RollbackClean bool
}

func (e *TransactionError) Error() string {
	if e.RollbackClean {
		return fmt.Sprintf("item %s failed at %s (rolled back): %v", e.ItemID, e.Stage, e.Err)
	}
	return fmt.Sprintf("item %s failed at %s (ROLLBACK INCOMPLETE, manual cleanup required): %v", e.ItemID, e.Stage, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

package core

import "time"

// TxState is the coordinator's transaction state.
type TxState string

const (
	TxNew           TxState = "new"
	TxPreparing     TxState = "preparing"
	TxPrepared      TxState = "prepared"
	TxCommitting    TxState = "committing"
	TxCommitted     TxState = "committed"
	TxPrepareFailed TxState = "prepare_failed"
	TxCommitFailed  TxState = "commit_failed"
	TxRollingBack   TxState = "rolling_back"
	TxRolledBack    TxState = "rolled_back"
)

// Terminal reports whether the state ends a transaction's lifecycle.
func (s TxState) Terminal() bool {
	return s == TxCommitted || s == TxRolledBack
}

// StreamPhase is the furthest point a single stream reached within a
// transaction.
type StreamPhase string

const (
	StreamPending    StreamPhase = "pending"
	StreamPrepared   StreamPhase = "prepared"
	StreamCommitted  StreamPhase = "committed"
	StreamFailed     StreamPhase = "failed"
	StreamRolledBack StreamPhase = "rolled_back"
)

// BackendRef records exactly what a stream's commit wrote, sufficient to
// later delete it. Fields are stream-specific: the semantic stream fills
// DocID, the visual stream BlobPaths and VectorIDs, the content stream
// SectionKeys and Batches.
type BackendRef struct {
	DocID       string   `json:"doc_id,omitempty"`
	BlobPaths   []string `json:"blob_paths,omitempty"`
	VectorIDs   []string `json:"vector_ids,omitempty"`
	SectionKeys []string `json:"section_keys,omitempty"`
	Batches     int      `json:"batches,omitempty"`
}

// StreamCheckpoint is the per-stream slice of a transaction checkpoint.
type StreamCheckpoint struct {
	Phase StreamPhase `json:"phase"`
	Ref   *BackendRef `json:"ref,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Checkpoint is the durable record of one transaction's progress, written
// before each phase transition and after each individual stream commit.
// At any point in time the checkpoint on disk reflects a state the system
// can either complete forward or fully undo.
type Checkpoint struct {
	ItemID      string                       `json:"item_id"`
	ContentHash string                       `json:"content_hash,omitempty"`
	State       TxState                      `json:"state"`
	StagingDir  string                       `json:"staging_dir,omitempty"`
	Streams     map[string]*StreamCheckpoint `json:"streams,omitempty"`
	Seq         uint64                       `json:"seq"`
	StartedAt   time.Time                    `json:"started_at"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

// StreamsAtLeastPrepared returns the stream names whose phase reached
// prepared or committed, in the given canonical order. These are the
// streams rollback must visit.
func (c *Checkpoint) StreamsAtLeastPrepared(order []string) []string {
	var names []string
	for _, name := range order {
		sc, ok := c.Streams[name]
		if !ok {
			continue
		}
		if sc.Phase == StreamPrepared || sc.Phase == StreamCommitted {
			names = append(names, name)
		}
	}
	return names
}

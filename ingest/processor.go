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

	"github.com/poiesic/triplex/core"
)

// Stream names. CommitOrder is part of the rollback contract: commits run
// in this order and rollback walks it in reverse.
const (
	StreamSemantic = "semantic"
	StreamVisual   = "visual"
	StreamContent  = "content"
)

// CommitOrder is the fixed sequence commits follow.
var CommitOrder = []string{StreamSemantic, StreamVisual, StreamContent}

// StreamProcessor is the uniform contract each ingestion stream implements
// against its backend.
type StreamProcessor interface {
	// Name returns the stream's canonical name.
	Name() string

	// Prepare performs all reversible work needed before committing and
	// persists the result under the staging directory. It must not write
	// this stream's backend record; side effects it cannot avoid (such as
	// blob uploads) must be individually tracked in the staged payload so
	// Rollback can undo them. Safe to retry against the same staging
	// directory.
	Prepare(ctx context.Context, item *core.Item, stagingDir string) (*Payload, error)

	// Commit performs the durable backend write using the staged payload
	// and returns a reference sufficient to later delete exactly what was
	// written.
	Commit(ctx context.Context, payload *Payload) (*core.BackendRef, error)

	// Rollback deletes whatever this stream wrote, whether Commit fully
	// succeeded, partially succeeded, or was never reached. ref may be nil
	// when commit never ran. Idempotent; already-absent records are not an
	// error.
	Rollback(ctx context.Context, payload *Payload, ref *core.BackendRef) error
}

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


package badger

// Stores bundles every backend interface over one shared Backend.
type Stores struct {
	Search      *SearchIndex
	Vectors     *VectorIndex
	Documents   *DocumentStore
	Blobs       *BlobStore
	Checkpoints *CheckpointStore
	Ledger      *Ledger
	Backend     *Backend
}

// NewMemoryStores creates an in-memory backend with every store wired for
// testing. Caller must close the backend when done.
func NewMemoryStores() (*Stores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Search:      NewSearchIndex(backend),
		Vectors:     NewVectorIndex(backend),
		Documents:   NewDocumentStore(backend, 0),
		Blobs:       NewBlobStore(backend),
		Checkpoints: NewCheckpointStore(backend),
		Ledger:      NewLedger(backend),
		Backend:     backend,
	}, nil
}

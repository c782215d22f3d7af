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


package core

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Item is one unit of source content: catalog metadata plus the raw HTML
// body fetched from the content source. Items are immutable once fetched;
// the ingestion machinery never mutates them.
type Item struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Metadata    map[string]string `json:"metadata,omitempty"` // owner, maturity, status, lifecycle-state
	Body        string            `json:"body,omitempty"`
	ContentHash string            `json:"content_hash,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at,omitempty"`
}

// ContentHash computes a deterministic BLAKE2b digest over an item's body
// and metadata. Metadata keys are folded in sorted order so two fetches of
// unchanged content always hash identically. Used by the supervisor to skip
// items already ingested at the same hash.
func ContentHash(body string, metadata map[string]string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(body))

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(metadata[k]))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Section is a named slice of an item's body, split by heading hierarchy.
type Section struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SearchDocument is the semantic stream's backend record: one summary
// document per item written to the search index.
type SearchDocument struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Summary  string            `json:"summary"`
	Metadata map[string]string `json:"metadata,omitempty"`
	ItemID   string            `json:"item_id"`
}

// VectorRecord is the visual stream's backend record: one embedding per
// ingested image. ItemID is carried as a filterable attribute so every
// vector belonging to an item can be located for scoped deletion.
type VectorRecord struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	ItemID      string    `json:"item_id"`
	BlobPath    string    `json:"blob_path"`
	Description string    `json:"description,omitempty"`
}

// SectionDocument is the content stream's backend record, individually
// addressable by (item, section) within the document store.
type SectionDocument struct {
	ItemID      string `json:"item_id"`
	SectionName string `json:"section_name"`
	Text        string `json:"text"`
}

// Key returns the document store key for this section.
func (d *SectionDocument) Key() string {
	return d.ItemID + "/" + d.SectionName
}

// BlobRef identifies a binary asset uploaded to blob storage.
type BlobRef struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

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


// Package ingest implements the ingestion transaction machinery: three
// stream processors running under a prepare/commit/rollback protocol, a
// coordinator that drives one item's transaction through its state machine
// with durable checkpoints, crash recovery over those checkpoints, and a
// supervisor that runs the catalog under bounded concurrency.
//
// One source item fans out into three backend writes with different data
// models: a search document (semantic stream), per-image vectors plus blobs
// (visual stream), and per-section documents (content stream). The
// machinery guarantees that after any run the item is represented in all
// three backends or in none of them.
//
// Prepare runs for the three streams in parallel; commits run sequentially
// in a fixed order (semantic, visual, content) and rollback walks that
// order in reverse. Every external call goes through the retry package.
package ingest

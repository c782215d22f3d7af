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


// Package staging provides per-transaction scratch space on durable local
// storage. Each transaction owns an exclusive subdirectory holding every
// stream's prepared-but-uncommitted payload, so a crashed process can
// reconstruct the payloads from disk alone.
//
// Payload files are written as JSON via write-to-temp-then-rename, so a
// crash mid-write never leaves a corrupt payload readable by a resumed
// process. Payloads stay human-inspectable on purpose: a transaction whose
// rollback failed is flagged for manual backend cleanup, and the staged
// JSON is what an operator works from.
package staging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Area manages the staging root directory.
type Area struct {
	root string
}

// NewArea creates a staging area rooted at dir, creating it if needed.
func NewArea(dir string) (*Area, error) {
	if dir == "" {
		return nil, ErrEmptyRoot
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Area{root: dir}, nil
}

// Root returns the staging root directory.
func (a *Area) Root() string {
	return a.root
}

// Allocate creates (or reuses) the staging directory exclusive to one
// item's transaction and returns its path. Reuse is deliberate: a retried
// prepare must land in the same directory to stay idempotent.
func (a *Area) Allocate(itemID string) (string, error) {
	if itemID == "" {
		return "", ErrEmptyItemID
	}
	dir := filepath.Join(a.root, itemID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Persist atomically writes a stream's payload into the staging directory.
// The value is marshalled as JSON to a temp file and renamed into place.
func (a *Area) Persist(dir, stream string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	final := payloadPath(dir, stream)
	tmp, err := os.CreateTemp(dir, "."+stream+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return nil
}

// Load reads a stream's payload from the staging directory into v.
// Returns ErrPayloadNotFound if the stream never persisted a payload.
func (a *Area) Load(dir, stream string, v any) error {
	data, err := os.ReadFile(payloadPath(dir, stream))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: stream %s in %s", ErrPayloadNotFound, stream, dir)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	return nil
}

// WriteAsset stages raw asset bytes (e.g. a downloaded image) under the
// transaction's assets subdirectory and returns the absolute file path.
func (a *Area) WriteAsset(dir, name string, data []byte) (string, error) {
	assetDir := filepath.Join(dir, "assets")
	if err := os.MkdirAll(assetDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(assetDir, name)
	tmp, err := os.CreateTemp(assetDir, "."+name+"-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}

// Clear removes a transaction's staging directory. It is the only way
// staging is released, and is called once the transaction reaches a
// terminal state. Clearing an already-absent directory is not an error.
func (a *Area) Clear(dir string) error {
	if dir == "" || dir == a.root {
		return ErrInvalidDir
	}
	return os.RemoveAll(dir)
}

// Stale lists item IDs that still own staging directories. After recovery
// has driven every checkpoint to a terminal state, anything left here is an
// orphan from a crash before the first checkpoint write.
func (a *Area) Stale() ([]string, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

func payloadPath(dir, stream string) string {
	return filepath.Join(dir, stream+".json")
}

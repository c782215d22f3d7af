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


// Package file implements source.Client against an exported snapshot on
// the local filesystem. Layout:
//
//	<root>/catalog.json          JSON array of core.Item (metadata only)
//	<root>/bodies/<id>.html      raw markup per item
//	<root>/assets/<ref>          binary assets, addressed by reference path
//
// Snapshots are how the batch job runs without live access to the upstream
// system, and how tests feed the supervisor realistic catalogs.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/source"
)

// Client reads catalog, bodies and assets from a snapshot directory.
type Client struct {
	root string
}

var _ source.Client = (*Client)(nil)

// NewClient creates a snapshot-backed source client rooted at dir.
func NewClient(dir string) (*Client, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	return &Client{root: dir}, nil
}

// FetchCatalog decodes catalog.json into catalog items.
func (c *Client) FetchCatalog(ctx context.Context) ([]core.Item, error) {
	data, err := os.ReadFile(filepath.Join(c.root, "catalog.json"))
	if err != nil {
		return nil, err
	}

	var items []core.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", source.ErrMalformedCatalog, err)
	}

	for i := range items {
		if err := core.ValidateItem(&items[i]); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", source.ErrMalformedCatalog, i, err)
		}
	}
	return items, nil
}

// FetchBody reads bodies/<id>.html.
func (c *Client) FetchBody(ctx context.Context, itemID string) (string, error) {
	data, err := os.ReadFile(filepath.Join(c.root, "bodies", itemID+".html"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", source.ErrItemNotFound, itemID)
		}
		return "", err
	}
	return string(data), nil
}

// FetchAsset reads assets/<ref>. References are cleaned and confined to the
// snapshot's assets directory.
func (c *Client) FetchAsset(ctx context.Context, ref string) ([]byte, error) {
	clean := filepath.Clean("/" + strings.TrimPrefix(ref, "/"))
	path := filepath.Join(c.root, "assets", clean)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", source.ErrAssetNotFound, ref)
		}
		return nil, err
	}
	return data, nil
}

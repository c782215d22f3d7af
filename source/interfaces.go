package source

import (
	"context"

	"github.com/poiesic/triplex/core"
)

// Client is the upstream content-source collaborator. Implementations own
// pagination, auth refresh and transport details; the ingestion machinery
// only consumes this interface and feeds every error into the retry policy.
// Implementations must be thread-safe for concurrent use.
type Client interface {
	// FetchCatalog returns the item catalog (metadata only, no bodies).
	FetchCatalog(ctx context.Context) ([]core.Item, error)

	// FetchBody returns the raw markup body for an item.
	// Returns ErrItemNotFound if the source has no such item.
	FetchBody(ctx context.Context, itemID string) (string, error)

	// FetchAsset downloads a binary asset referenced from an item body
	// (typically an embedded image).
	// Returns ErrAssetNotFound if the reference cannot be resolved.
	FetchAsset(ctx context.Context, ref string) ([]byte, error)
}

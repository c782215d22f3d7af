package source

import "errors"

var (
	// ErrItemNotFound indicates the source has no item with the given ID.
	ErrItemNotFound = errors.New("item not found in source")

	// ErrAssetNotFound indicates an asset reference could not be resolved.
	ErrAssetNotFound = errors.New("asset not found in source")

	// ErrMalformedCatalog indicates the catalog could not be decoded.
	ErrMalformedCatalog = errors.New("malformed catalog")
)

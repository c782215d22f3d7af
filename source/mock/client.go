package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/triplex/core"
	"github.com/poiesic/triplex/source"
)

// MockClient is a test double for source.Client.
// It allows custom behavior injection via function fields.
type MockClient struct {
	// Catalog is returned by FetchCatalog when FetchCatalogFunc is nil.
	Catalog []core.Item

	// Bodies maps item ID to markup, used when FetchBodyFunc is nil.
	Bodies map[string]string

	// Assets maps asset reference to bytes, used when FetchAssetFunc is nil.
	Assets map[string][]byte

	FetchCatalogFunc func(ctx context.Context) ([]core.Item, error)
	FetchBodyFunc    func(ctx context.Context, itemID string) (string, error)
	FetchAssetFunc   func(ctx context.Context, ref string) ([]byte, error)

	mu         sync.Mutex
	assetCalls []string
}

var _ source.Client = (*MockClient)(nil)

// NewMockClient creates a mock source client with empty fixtures.
func NewMockClient() *MockClient {
	return &MockClient{
		Bodies: map[string]string{},
		Assets: map[string][]byte{},
	}
}

func (m *MockClient) FetchCatalog(ctx context.Context) ([]core.Item, error) {
	if m.FetchCatalogFunc != nil {
		return m.FetchCatalogFunc(ctx)
	}
	return m.Catalog, nil
}

func (m *MockClient) FetchBody(ctx context.Context, itemID string) (string, error) {
	if m.FetchBodyFunc != nil {
		return m.FetchBodyFunc(ctx, itemID)
	}
	body, ok := m.Bodies[itemID]
	if !ok {
		return "", fmt.Errorf("%w: %s", source.ErrItemNotFound, itemID)
	}
	return body, nil
}

func (m *MockClient) FetchAsset(ctx context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	m.assetCalls = append(m.assetCalls, ref)
	m.mu.Unlock()

	if m.FetchAssetFunc != nil {
		return m.FetchAssetFunc(ctx, ref)
	}
	data, ok := m.Assets[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", source.ErrAssetNotFound, ref)
	}
	return data, nil
}

// AssetCalls returns the asset references requested so far.
func (m *MockClient) AssetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.assetCalls...)
}

package mock

import (
	"context"
	"fmt"
)

// MockDescriber is a test double for ai.Describer.
// It allows custom behavior injection via function fields.
type MockDescriber struct {
	// DescribeImageFunc is called by DescribeImage if set.
	// If nil, uses default deterministic behavior.
	DescribeImageFunc func(ctx context.Context, image []byte, contextText string) (string, error)

	callCount int
}

// NewMockDescriber creates a mock describer with default deterministic behavior.
func NewMockDescriber() *MockDescriber {
	return &MockDescriber{}
}

// DescribeImage returns a deterministic description derived from the inputs.
func (m *MockDescriber) DescribeImage(ctx context.Context, image []byte, contextText string) (string, error) {
	m.callCount++

	if m.DescribeImageFunc != nil {
		return m.DescribeImageFunc(ctx, image, contextText)
	}

	return fmt.Sprintf("Architecture diagram (%d bytes) from %q showing labeled components and flows.",
		len(image), contextText), nil
}

// CallCount returns the number of times DescribeImage was called.
func (m *MockDescriber) CallCount() int {
	return m.callCount
}

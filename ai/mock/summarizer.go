package mock

import (
	"context"
	"fmt"
)

// MockSummarizer is a test double for ai.Summarizer.
// It allows custom behavior injection via function fields.
type MockSummarizer struct {
	// SummarizeTextFunc is called by SummarizeText if set.
	// If nil, uses default deterministic behavior.
	SummarizeTextFunc func(ctx context.Context, title, text string) (string, error)

	callCount int
}

// NewMockSummarizer creates a mock summarizer with default deterministic behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// SummarizeText returns a deterministic summary derived from the inputs.
func (m *MockSummarizer) SummarizeText(ctx context.Context, title, text string) (string, error) {
	m.callCount++

	if m.SummarizeTextFunc != nil {
		return m.SummarizeTextFunc(ctx, title, text)
	}

	return fmt.Sprintf("Technical abstract of %q covering problem, solution and trade-offs. "+
		"Derived from %d characters of source text.", title, len(text)), nil
}

// CallCount returns the number of times SummarizeText was called.
func (m *MockSummarizer) CallCount() int {
	return m.callCount
}

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


package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/triplex/ai"
)

// maxSummaryInputChars bounds how much document text is sent to the model,
// keeping the request inside typical context windows.
const maxSummaryInputChars = 30000

// Summarizer implements ai.Summarizer using OpenAI-compatible chat APIs.
type Summarizer struct {
	client   llms.Model
	maxWords int
	logger   *slog.Logger
}

// newSummarizer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newSummarizer(config *ai.Config) (*Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		client:   client,
		maxWords: config.MaxSummaryWords,
		logger:   slog.Default().With("component", "openai-summarizer"),
	}, nil
}

// NewSummarizer creates a new summarizer using the provided configuration.
//
// Returns ai.Summarizer interface to enforce abstraction.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	return newSummarizer(config)
}

// SummarizeText produces a dense technical abstract of the given text.
func (s *Summarizer) SummarizeText(ctx context.Context, title, text string) (string, error) {
	if len(text) > maxSummaryInputChars {
		text = text[:maxSummaryInputChars]
	}

	s.logger.Debug("summarizing document", "title", title, "length", len(text))

	response, err := llms.GenerateFromSinglePrompt(ctx, s.client,
		buildSummaryPrompt(s.maxWords, title, text),
		llms.WithTemperature(0.0))
	if err != nil {
		s.logger.Error("failed to generate summary", "title", title, "err", err)
		return "", err
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return "", errors.New("model returned empty summary")
	}

	return summary, nil
}

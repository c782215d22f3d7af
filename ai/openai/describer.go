package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/triplex/ai"
)

// Describer implements ai.Describer using OpenAI-compatible multimodal chat APIs.
type Describer struct {
	client llms.Model
	logger *slog.Logger
}

// newDescriber is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newDescriber(config *ai.Config) (*Describer, error) {
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

	return &Describer{
		client: client,
		logger: slog.Default().With("component", "openai-describer"),
	}, nil
}

// NewDescriber creates a new image describer using the provided configuration.
//
// Returns ai.Describer interface to enforce abstraction.
func NewDescriber(config *ai.Config) (ai.Describer, error) {
	return newDescriber(config)
}

// DescribeImage describes the image bytes using a multimodal chat call.
// The configured ChatModel must accept image parts.
func (d *Describer) DescribeImage(ctx context.Context, image []byte, contextText string) (string, error) {
	if len(image) == 0 {
		return "", errors.New("empty image")
	}

	d.logger.Debug("describing image", "bytes", len(image), "context", contextText)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart(http.DetectContentType(image), image),
				llms.TextPart(buildDescribePrompt(contextText)),
			},
		},
	}

	response, err := d.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		d.logger.Error("failed to describe image", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		return "", errors.New("no choices returned from model")
	}

	description := strings.TrimSpace(response.Choices[0].Content)
	if description == "" {
		return "", errors.New("model returned empty description")
	}

	return description, nil
}

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://models.internal:8000"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithChatModel("gpt-4o-mini"),
		WithMaxSummaryWords(200),
	)

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "http://models.internal:8000/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://models.internal:8000/v1", cfg.ChatHost)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, 200, cfg.MaxSummaryWords)
}

func TestNormalizeAppendsV1(t *testing.T) {
	cfg := NewConfig(
		WithEmbeddingHost("http://localhost:11434/"),
		WithChatHost("http://localhost:9100/v1"),
	)
	cfg.Normalize()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:9100/v1", cfg.ChatHost)
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmbeddingModel = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ChatModel = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxSummaryWords = 10
	assert.Error(t, cfg.Validate())
}

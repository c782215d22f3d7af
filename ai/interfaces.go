package ai

import "context"

// Embedder generates vector embeddings from text for similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer condenses document text into a dense technical abstract.
// It is a black-box text-to-text call with network latency and failure
// modes but no internal design relevance here.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// SummarizeText produces a summary of the given text.
	// The title and metadata give the model catalog context.
	SummarizeText(ctx context.Context, title, text string) (string, error)
}

// Describer produces a natural-language description of an image.
// Like Summarizer it is a black-box call; the description feeds the
// embedding that makes the image findable by text queries.
// Implementations must be thread-safe for concurrent use.
type Describer interface {
	// DescribeImage describes the image bytes. contextText carries the
	// owning document's title so the description stays grounded.
	DescribeImage(ctx context.Context, image []byte, contextText string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder, Summarizer
// and Describer instances, ensuring they share configuration appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Summarizer returns the text summarization service.
	// The returned Summarizer is safe for concurrent use.
	Summarizer() Summarizer

	// Describer returns the image description service.
	// The returned Describer is safe for concurrent use.
	Describer() Describer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

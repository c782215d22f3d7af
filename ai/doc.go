// Package ai defines the AI service interfaces the ingestion streams depend
// on: text embedding, document summarization and image description.
//
// The interfaces are deliberately black boxes. A summarization or
// description call has latency and failure modes, and that is all the
// ingestion machinery is allowed to know about it; provider-specific detail
// stays inside the implementing subpackages (openai, mock).
package ai

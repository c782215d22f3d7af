package ingest

import "time"

// Config holds tuning for the ingestion machinery. Zero values are filled
// from DefaultConfig by the constructors that accept a nil Config.
type Config struct {
	// MaxAttempts is the retry budget for every external call.
	MaxAttempts int

	// BaseDelay is the base backoff delay between retry attempts.
	BaseDelay time.Duration

	// Concurrency bounds how many transactions run at once.
	Concurrency int

	// MaxImages bounds how many embedded images the visual stream
	// processes per item; later images are typically decorative.
	MaxImages int

	// MinImageBytes is the smallest image worth ingesting. Anything
	// below is treated as an icon or tracking pixel and skipped.
	MinImageBytes int

	// MinTextLength is the smallest extracted plain text the semantic
	// stream accepts before rejecting the item as near-empty.
	MinTextLength int

	// MinSummaryLength is the smallest generated summary the semantic
	// stream accepts.
	MinSummaryLength int

	// MinSectionLength is the smallest section the content stream keeps.
	MinSectionLength int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:      3,
		BaseDelay:        1 * time.Second,
		Concurrency:      5,
		MaxImages:        8,
		MinImageBytes:    1024,
		MinTextLength:    80,
		MinSummaryLength: 100,
		MinSectionLength: 40,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	d := DefaultConfig()
	out := *c
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = d.MaxAttempts
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = d.BaseDelay
	}
	if out.Concurrency <= 0 {
		out.Concurrency = d.Concurrency
	}
	if out.MaxImages <= 0 {
		out.MaxImages = d.MaxImages
	}
	if out.MinImageBytes <= 0 {
		out.MinImageBytes = d.MinImageBytes
	}
	if out.MinTextLength <= 0 {
		out.MinTextLength = d.MinTextLength
	}
	if out.MinSummaryLength <= 0 {
		out.MinSummaryLength = d.MinSummaryLength
	}
	if out.MinSectionLength <= 0 {
		out.MinSectionLength = d.MinSectionLength
	}
	return &out
}

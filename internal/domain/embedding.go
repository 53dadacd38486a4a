package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implementations must truncate input to MaxEmbedBytes so document and
// query vectors stay comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// MaxEmbedBytes is the maximum embedding input length in bytes.
// Longer text is truncated, identically on the ingest and query paths.
const MaxEmbedBytes = 8000

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// TruncateForEmbedding bounds text to MaxEmbedBytes without splitting a
// UTF-8 sequence mid-rune.
func TruncateForEmbedding(text string) string {
	if len(text) <= MaxEmbedBytes {
		return text
	}
	cut := MaxEmbedBytes
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}

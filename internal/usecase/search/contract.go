package search

import (
	"context"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/domain/search/filter"
)

// Index is the scoring contract over the in-memory index.
type Index interface {
	Candidates(conds filter.Conditions) []string
	LexicalScores(queryTerms []string, candidates []string) map[string]float64
	VectorScores(queryVec []float32, candidates []string) (map[string]float64, error)
	Numerics(id string) map[string]float64
}

// DocumentReader fetches payloads for the result page.
type DocumentReader interface {
	GetMulti(ctx context.Context, ids []string) ([]domdoc.Document, error)
}

// Embedder vectorizes query text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

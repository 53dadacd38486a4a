package ingest

import (
	"context"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
)

// Repository defines the durable storage contract for ingestion.
type Repository interface {
	Upsert(ctx context.Context, doc *domdoc.Document) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context, fn func(domdoc.Document) error) error
}

// IndexWriter maintains the searchable index entries.
type IndexWriter interface {
	Put(doc *domdoc.Document) error
	Delete(id string) bool
	Len() int
	Dim() int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

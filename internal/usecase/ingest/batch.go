package ingest

import (
	"context"

	dombatch "github.com/campushq/unidex/internal/domain/batch"
)

// MaxBatchSize is the maximum number of items per batch ingest.
const MaxBatchSize = 100

// BatchItem is one raw document in a batch ingest request.
type BatchItem struct {
	ID      string
	Payload map[string]any
}

// BatchUpsert ingests documents one by one with per-item error reporting.
// A failing item never blocks the rest of the batch; each item embeds and
// commits independently under its own id lock.
func (s *Service) BatchUpsert(ctx context.Context, items []BatchItem) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	for i, item := range items {
		doc, err := s.Upsert(ctx, item.ID, item.Payload)
		if err != nil {
			results[i] = dombatch.NewError(item.ID, err)
			continue
		}
		results[i] = dombatch.NewOK(doc.ID())
	}

	return results
}

package document

import (
	"context"

	domdoc "github.com/campushq/unidex/internal/domain/document"
)

// Repository defines the read-side storage contract for documents.
type Repository interface {
	Get(ctx context.Context, id string) (domdoc.Document, error)
	GetMulti(ctx context.Context, ids []string) ([]domdoc.Document, error)
}

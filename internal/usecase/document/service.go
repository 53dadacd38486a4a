package document

import (
	"context"
	"fmt"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/retry"
)

// MaxBatchGet bounds a single batch_get request.
const MaxBatchGet = 100

// Service handles exact-key document retrieval.
type Service struct {
	repo   Repository
	policy retry.Policy
}

// New creates a document read service.
func New(repo Repository) *Service {
	return &Service{repo: repo, policy: retry.DefaultPolicy()}
}

// WithRetryPolicy overrides the transient-failure retry policy.
func (s *Service) WithRetryPolicy(p retry.Policy) *Service {
	s.policy = p
	return s
}

// Get retrieves a document by id. ErrNotFound when absent.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if id == "" {
		return domdoc.Document{}, fmt.Errorf("document id is required: %w", domain.ErrInvalidQuery)
	}

	var doc domdoc.Document
	err := s.policy.Do(ctx, func() error {
		var getErr error
		doc, getErr = s.repo.Get(ctx, id)
		return getErr
	})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// BatchGet retrieves the documents that exist among ids, silently
// omitting missing ones. Callers batch-fetching do not generally know
// which ids still exist; a miss is a normal outcome, not an error.
func (s *Service) BatchGet(ctx context.Context, ids []string) ([]domdoc.Document, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("ids are required: %w", domain.ErrInvalidQuery)
	}
	if len(ids) > MaxBatchGet {
		return nil, fmt.Errorf("too many ids (max %d): %w", MaxBatchGet, domain.ErrInvalidQuery)
	}

	var docs []domdoc.Document
	err := s.policy.Do(ctx, func() error {
		var getErr error
		docs, getErr = s.repo.GetMulti(ctx, ids)
		return getErr
	})
	if err != nil {
		return nil, fmt.Errorf("batch get documents: %w", err)
	}
	return docs, nil
}

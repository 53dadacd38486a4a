// Package ingest is the index writer: it validates raw documents, derives
// their searchable fields, obtains embeddings, and commits document and
// index entry together.
package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/domain/schema"
	"github.com/campushq/unidex/internal/metrics"
	"github.com/campushq/unidex/internal/retry"
)

// lockStripes is the number of per-id mutex stripes serializing writers.
const lockStripes = 64

// Service handles document ingestion and deletion.
type Service struct {
	docs    Repository
	idx     IndexWriter
	embed   Embedder
	schema  schema.Schema
	policy  retry.Policy
	logger  *zap.Logger
	now     func() time.Time
	idLocks [lockStripes]sync.Mutex
}

// New creates an ingest service.
func New(docs Repository, idx IndexWriter, embed Embedder, s schema.Schema, logger *zap.Logger) *Service {
	return &Service{
		docs:   docs,
		idx:    idx,
		embed:  embed,
		schema: s,
		policy: retry.DefaultPolicy(),
		logger: logger,
		now:    time.Now,
	}
}

// WithRetryPolicy overrides the transient-failure retry policy.
func (s *Service) WithRetryPolicy(p retry.Policy) *Service {
	s.policy = p
	return s
}

// WithClock overrides the indexed_at clock (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Upsert validates id+payload, derives searchable fields, embeds the
// text, and commits the document and its index entry. Nothing is written
// when validation, embedding, or the store write fails: ingestion never
// partially commits. Re-ingesting an existing id is a full replace.
func (s *Service) Upsert(ctx context.Context, id string, payload map[string]any) (domdoc.Document, error) {
	doc, err := domdoc.New(id, payload, s.schema)
	if err != nil {
		return domdoc.Document{}, err
	}

	var emb domain.EmbeddingResult
	err = s.policy.Do(ctx, func() error {
		var embedErr error
		emb, embedErr = s.embed.Embed(ctx, doc.Text())
		return embedErr
	})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("vectorize document %s: %w", doc.ID(), err)
	}

	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	// A wrong-dimension embedding is fatal; it must be caught before the
	// store write so a failed ingest leaves no state behind.
	if got, want := len(emb.Embedding), s.idx.Dim(); got != want {
		return domdoc.Document{}, fmt.Errorf("vectorize document %s: got %d dimensions, want %d: %w",
			doc.ID(), got, want, domain.ErrVectorDimMismatch)
	}

	doc.SetVector(emb.Embedding)
	doc.SetIndexedAt(s.now().UTC().Truncate(time.Millisecond))

	unlock := s.lockID(doc.ID())
	defer unlock()

	err = s.policy.Do(ctx, func() error {
		return s.docs.Upsert(ctx, &doc)
	})
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("store document %s: %w", doc.ID(), err)
	}

	if err := s.idx.Put(&doc); err != nil {
		// The store write already succeeded; the index will converge on
		// the next rebuild, but this request must report the mismatch.
		return domdoc.Document{}, fmt.Errorf("index document %s: %w", doc.ID(), err)
	}
	metrics.IndexDocuments.Set(float64(s.idx.Len()))

	return doc, nil
}

// Delete removes a document and its index entry. ErrNotFound for a
// missing id, on every call.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("document id is required: %w", domain.ErrInvalidDocument)
	}

	unlock := s.lockID(id)
	defer unlock()

	err := s.policy.Do(ctx, func() error {
		return s.docs.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	s.idx.Delete(id)
	metrics.IndexDocuments.Set(float64(s.idx.Len()))
	return nil
}

// Rebuild hydrates the index from the document store. Entries whose
// vectors no longer match the configured dimension are skipped with a
// warning; their payloads are intact and a re-ingest restores them.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	count := 0
	err := s.docs.All(ctx, func(doc domdoc.Document) error {
		if err := s.idx.Put(&doc); err != nil {
			s.logger.Warn("skipping document during index rebuild",
				zap.String("id", doc.ID()), zap.Error(err))
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("rebuild index: %w", err)
	}
	metrics.IndexDocuments.Set(float64(s.idx.Len()))
	return count, nil
}

// lockID serializes writers of one id; different ids map to different
// stripes and proceed independently.
func (s *Service) lockID(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &s.idLocks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/unidex/internal/domain"
	dombatch "github.com/campushq/unidex/internal/domain/batch"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/domain/schema"
	"github.com/campushq/unidex/internal/retry"
)

// --- Mocks ---

type mockRepo struct {
	mu      sync.Mutex
	docs    map[string]domdoc.Document
	upserts int
	err     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{docs: make(map[string]domdoc.Document)}
}

func (m *mockRepo) Upsert(_ context.Context, doc *domdoc.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.upserts++
	m.docs[doc.ID()] = *doc
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(m.docs, id)
	return nil
}

func (m *mockRepo) All(_ context.Context, fn func(domdoc.Document) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

type mockIndex struct {
	mu      sync.Mutex
	entries map[string][]float32
	dim     int
}

func newMockIndex(dim int) *mockIndex {
	return &mockIndex{entries: make(map[string][]float32), dim: dim}
}

func (m *mockIndex) Put(doc *domdoc.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(doc.Vector()) != m.dim {
		return fmt.Errorf("got %d dimensions, want %d: %w",
			len(doc.Vector()), m.dim, domain.ErrVectorDimMismatch)
	}
	m.entries[doc.ID()] = doc.Vector()
	return nil
}

func (m *mockIndex) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	return ok
}

func (m *mockIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *mockIndex) Dim() int { return m.dim }

type mockEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 5}, nil
}

// --- Helpers ---

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	state, err := schema.NewAttribute("state", schema.Tag)
	if err != nil {
		t.Fatalf("new attribute: %v", err)
	}
	s, err := schema.New([]string{"name", "description"}, []schema.Attribute{state}, "name")
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func newService(t *testing.T, repo Repository, idx IndexWriter, embed Embedder) *Service {
	t.Helper()
	return New(repo, idx, embed, testSchema(t), zap.NewNop()).WithRetryPolicy(fastPolicy())
}

// --- Tests ---

func TestUpsert_StoresAndIndexes(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	payload := map[string]any{"name": "MIT", "description": "research university", "state": "MA"}
	doc, err := svc.Upsert(context.Background(), "", payload)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if doc.ID() != "mit" {
		t.Errorf("expected derived id mit, got %q", doc.ID())
	}
	if doc.IndexedAt().IsZero() {
		t.Error("expected indexed_at to be stamped")
	}
	if _, ok := repo.docs["mit"]; !ok {
		t.Error("expected document in store")
	}
	if _, ok := idx.entries["mit"]; !ok {
		t.Error("expected document in index")
	}
}

func TestUpsert_Idempotent(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := newService(t, repo, idx, embed).WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	payload := map[string]any{"name": "MIT", "description": "research university"}
	first, err := svc.Upsert(context.Background(), "", payload)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	second, err := svc.Upsert(context.Background(), "", payload)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if first.ID() != second.ID() {
		t.Errorf("ids differ: %q vs %q", first.ID(), second.ID())
	}
	if first.Text() != second.Text() {
		t.Errorf("derived text differs: %q vs %q", first.Text(), second.Text())
	}
	if !second.IndexedAt().After(first.IndexedAt()) {
		t.Error("expected indexed_at to advance on re-ingest")
	}
	if len(repo.docs) != 1 || idx.Len() != 1 {
		t.Errorf("re-ingest must not duplicate: store=%d index=%d", len(repo.docs), idx.Len())
	}
}

func TestUpsert_InvalidDocument(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	_, err := svc.Upsert(context.Background(), "", map[string]any{})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
	if embed.calls != 0 {
		t.Error("invalid document must not reach the embedder")
	}
}

func TestUpsert_NoPartialCommitOnEmbedFailure(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{err: fmt.Errorf("down: %w", domain.ErrEmbeddingUnavailable)}
	svc := newService(t, repo, idx, embed)

	_, err := svc.Upsert(context.Background(), "", map[string]any{"name": "MIT"})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if len(repo.docs) != 0 || idx.Len() != 0 {
		t.Error("failed embed must leave no state behind")
	}
	if embed.calls != 2 {
		t.Errorf("retryable failure must be retried, got %d attempts", embed.calls)
	}
}

func TestUpsert_NoIndexEntryOnStoreFailure(t *testing.T) {
	repo := newMockRepo()
	repo.err = fmt.Errorf("conn refused: %w", domain.ErrStoreUnavailable)
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	_, err := svc.Upsert(context.Background(), "", map[string]any{"name": "MIT"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if idx.Len() != 0 {
		t.Error("store failure must not index the document")
	}
}

func TestUpsert_DimensionMismatchIsFatal(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0}} // wrong dimension
	svc := newService(t, repo, idx, embed)

	_, err := svc.Upsert(context.Background(), "", map[string]any{"name": "MIT"})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
	// Fatal failures leave no state behind: neither the store nor the
	// index may carry the document.
	if len(repo.docs) != 0 {
		t.Errorf("dimension mismatch must not commit to the store, found %d stored documents", len(repo.docs))
	}
	if idx.Len() != 0 {
		t.Errorf("dimension mismatch must not index the document, found %d entries", idx.Len())
	}
}

func TestUpsert_DimensionMismatchDoesNotReplaceExisting(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	if _, err := svc.Upsert(context.Background(), "", map[string]any{"name": "MIT", "description": "old"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// The embedder starts returning wrong-dimension vectors; a re-ingest
	// must fail without touching the stored document.
	embed.mu.Lock()
	embed.vec = []float32{1, 0}
	embed.mu.Unlock()

	_, err := svc.Upsert(context.Background(), "", map[string]any{"name": "MIT", "description": "new"})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}

	stored, ok := repo.docs["mit"]
	if !ok {
		t.Fatal("existing document must survive the failed re-ingest")
	}
	if stored.Payload()["description"] != "old" {
		t.Errorf("failed re-ingest must not replace the stored payload, got %v", stored.Payload())
	}
	if idx.Len() != 1 {
		t.Errorf("expected the original index entry to remain, got %d", idx.Len())
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	if _, err := svc.Upsert(context.Background(), "", map[string]any{"name": "MIT"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := svc.Delete(context.Background(), "mit"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.docs) != 0 || idx.Len() != 0 {
		t.Error("expected document fully removed")
	}

	// Deleting again reports NotFound, consistently.
	err := svc.Delete(context.Background(), "mit")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_EmptyID(t *testing.T) {
	svc := newService(t, newMockRepo(), newMockIndex(3), &mockEmbedder{vec: []float32{1, 0, 0}})

	err := svc.Delete(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestBatchUpsert_PerItemErrors(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	items := []BatchItem{
		{Payload: map[string]any{"name": "MIT", "description": "research"}},
		{Payload: map[string]any{}}, // invalid: empty payload
		{Payload: map[string]any{"name": "Caltech", "description": "science"}},
	}
	results := svc.BatchUpsert(context.Background(), items)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status() != dombatch.StatusOK || results[2].Status() != dombatch.StatusOK {
		t.Errorf("valid items must succeed: %v, %v", results[0].Status(), results[2].Status())
	}
	if results[1].Status() != dombatch.StatusError {
		t.Error("invalid item must fail")
	}
	if !errors.Is(results[1].Err(), domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", results[1].Err())
	}
	if len(repo.docs) != 2 {
		t.Errorf("valid items must commit independently, got %d stored", len(repo.docs))
	}
}

func TestRebuild(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	for _, name := range []string{"MIT", "Caltech"} {
		if _, err := svc.Upsert(context.Background(), "", map[string]any{"name": name}); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}

	// A stale entry with the wrong dimension is skipped, not fatal.
	stale := domdoc.Reconstruct("stale", map[string]any{"name": "stale"}, "stale",
		nil, nil, []float32{1, 0}, time.Now())
	repo.docs["stale"] = stale

	fresh := newMockIndex(3)
	svc2 := New(repo, fresh, embed, testSchema(t), zap.NewNop())

	count, err := svc2.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rebuilt entries, got %d", count)
	}
	if fresh.Len() != 2 {
		t.Errorf("expected 2 index entries, got %d", fresh.Len())
	}
}

func TestUpsert_ConcurrentSameID(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndex(3)
	embed := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := newService(t, repo, idx, embed)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Upsert(context.Background(), "mit", map[string]any{"name": "MIT"})
		}()
	}
	wg.Wait()

	if len(repo.docs) != 1 || idx.Len() != 1 {
		t.Errorf("concurrent upserts of one id must converge to one entry: store=%d index=%d",
			len(repo.docs), idx.Len())
	}
}

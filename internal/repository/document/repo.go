package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

const docKeyPrefix = domain.KeyPrefix + "doc:"

// hydrateBatchSize bounds HGetAllMulti pipeline size during startup scans.
const hydrateBatchSize = 200

// Repo is the Redis-backed document store: the durable source of truth
// the index is derived from.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes a document as a single hash write. HSET of all fields is
// one command, so a concurrent reader sees either the old record or the
// new one, never a mix.
func (r *Repo) Upsert(ctx context.Context, doc *domdoc.Document) error {
	fields, err := buildHashFields(doc)
	if err != nil {
		return err
	}

	key := docKey(doc.ID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	key := docKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrNotFound
	}
	return parseHashFields(id, m)
}

// GetMulti returns the documents that exist among ids, in input order.
// Missing ids are silently omitted (best-effort batch retrieval).
func (r *Repo) GetMulti(ctx context.Context, ids []string) ([]domdoc.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w: %w", domain.ErrStoreUnavailable, err)
	}

	docs := make([]domdoc.Document, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		doc, err := parseHashFields(ids[i], m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Delete removes a document. Returns ErrNotFound when it does not exist,
// on every call: a caller deleting a missing id twice gets the same answer
// both times.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("exists %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// All streams every stored document through fn, in scan order. Used to
// rebuild the in-memory index on startup.
func (r *Repo) All(ctx context.Context, fn func(domdoc.Document) error) error {
	keys, err := r.store.Scan(ctx, docKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("scan documents: %w: %w", domain.ErrStoreUnavailable, err)
	}

	for start := 0; start < len(keys); start += hydrateBatchSize {
		end := start + hydrateBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		maps, err := r.store.HGetAllMulti(ctx, batch)
		if err != nil {
			return fmt.Errorf("hgetall multi: %w: %w", domain.ErrStoreUnavailable, err)
		}

		for i, m := range maps {
			if len(m) == 0 {
				continue
			}
			doc, err := parseHashFields(extractDocID(batch[i]), m)
			if err != nil {
				return err
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
	}
	return nil
}

func docKey(id string) string {
	return docKeyPrefix + id
}

func extractDocID(key string) string {
	return strings.TrimPrefix(key, docKeyPrefix)
}

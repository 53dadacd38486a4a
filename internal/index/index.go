// Package index holds the in-memory searchable index: tokenized text,
// embedding vectors, and filter attributes per document. It is a cache of
// fields derived from stored payloads and is rebuilt from the document
// store on startup; the store remains the only source of truth.
package index

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/domain/search/filter"
)

// entry is an immutable per-document index record. Entries are replaced
// wholesale on re-ingest, so a reader holding one never observes fields
// from two different ingests.
type entry struct {
	id        string
	terms     map[string]int
	termCount int
	vector    []float32
	norm      float64
	tags      map[string]string
	numerics  map[string]float64
	indexedAt time.Time
}

// Index is the shared in-memory index. All mutation goes through Put and
// Delete, each scoped to a single id.
type Index struct {
	dim int

	mu      sync.RWMutex
	entries map[string]*entry
	df      map[string]int
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{
		dim:     dim,
		entries: make(map[string]*entry),
		df:      make(map[string]int),
	}
}

// Put inserts or replaces the index entry for a document. The vector must
// match the index dimension; this is the last line of defense against a
// misconfigured embedder.
func (ix *Index) Put(doc *domdoc.Document) error {
	if len(doc.Vector()) != ix.dim {
		return fmt.Errorf("got %d dimensions, want %d: %w", len(doc.Vector()), ix.dim, domain.ErrVectorDimMismatch)
	}

	terms := Tokenize(doc.Text())
	e := &entry{
		id:        doc.ID(),
		terms:     termFrequencies(terms),
		termCount: len(terms),
		vector:    doc.Vector(),
		norm:      vectorNorm(doc.Vector()),
		tags:      doc.Tags(),
		numerics:  doc.Numerics(),
		indexedAt: doc.IndexedAt(),
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.entries[doc.ID()]; ok {
		ix.dropTerms(old)
	}
	for t := range e.terms {
		ix.df[t]++
	}
	ix.entries[doc.ID()] = e
	return nil
}

// Delete removes a document's index entry. Reports whether it existed.
func (ix *Index) Delete(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	old, ok := ix.entries[id]
	if !ok {
		return false
	}
	ix.dropTerms(old)
	delete(ix.entries, id)
	return true
}

// dropTerms decrements document frequencies for a removed entry.
// Caller holds the write lock.
func (ix *Index) dropTerms(e *entry) {
	for t := range e.terms {
		if ix.df[t] <= 1 {
			delete(ix.df, t)
		} else {
			ix.df[t]--
		}
	}
}

// Dim returns the vector dimension the index accepts.
func (ix *Index) Dim() int { return ix.dim }

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Has reports whether a document is indexed.
func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.entries[id]
	return ok
}

// Candidates returns the ids of documents surviving the filter
// conjunction: the candidate pool for scoring.
func (ix *Index) Candidates(conds filter.Conditions) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := make([]string, 0, len(ix.entries))
	for id, e := range ix.entries {
		if e.matches(conds) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e *entry) matches(conds filter.Conditions) bool {
	for _, c := range conds {
		if c.IsMatch() {
			v, ok := e.tags[c.Key()]
			if !c.MatchesTag(v, ok) {
				return false
			}
			continue
		}
		v, ok := e.numerics[c.Key()]
		if !c.MatchesNumeric(v, ok) {
			return false
		}
	}
	return true
}

// Numerics returns the numeric attributes of a document (attribute sorts).
func (ix *Index) Numerics(id string) map[string]float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if e, ok := ix.entries[id]; ok {
		return e.numerics
	}
	return nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

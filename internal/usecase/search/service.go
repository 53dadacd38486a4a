package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/campushq/unidex/internal/domain"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/domain/search/mode"
	"github.com/campushq/unidex/internal/domain/search/request"
	"github.com/campushq/unidex/internal/domain/search/result"
	"github.com/campushq/unidex/internal/index"
	"github.com/campushq/unidex/internal/logger"
	"github.com/campushq/unidex/internal/metrics"
	"github.com/campushq/unidex/internal/retry"
)

// Service executes validated search requests against the in-memory index
// and hydrates hits from the document store.
type Service struct {
	idx    Index
	docs   DocumentReader
	embed  Embedder
	alpha  float64
	policy retry.Policy
}

// New creates a search service. alpha is the lexical weight for hybrid
// fusion; values outside [0, 1] fall back to DefaultAlpha.
func New(idx Index, docs DocumentReader, embed Embedder, alpha float64) *Service {
	if alpha < 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Service{
		idx:    idx,
		docs:   docs,
		embed:  embed,
		alpha:  alpha,
		policy: retry.DefaultPolicy(),
	}
}

// WithRetryPolicy overrides the retry policy for transient failures.
func (s *Service) WithRetryPolicy(p retry.Policy) *Service {
	s.policy = p
	return s
}

type scored struct {
	id      string
	score   float64
	lexical float64
	vector  float64
}

// Search runs the request and returns the page of results plus the total
// number of matches after exclusions, before pagination. Results carry
// the fused score and both per-scorer components.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Result, int, error) {
	results, total, err := s.search(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(string(req.Mode()), status).Inc()

	return results, total, err
}

func (s *Service) search(ctx context.Context, req *request.Request) ([]result.Result, int, error) {
	candidates := s.idx.Candidates(req.Filters())
	if len(candidates) == 0 {
		return []result.Result{}, 0, nil
	}

	lexical, vector, err := s.score(ctx, req, candidates)
	if err != nil {
		return nil, 0, err
	}

	fused, err := s.fuse(req.Mode(), lexical, vector)
	if err != nil {
		return nil, 0, err
	}

	hits := make([]scored, 0, len(fused))
	for id, score := range fused {
		if req.IsExcluded(id) {
			continue
		}
		hits = append(hits, scored{
			id:      id,
			score:   score,
			lexical: lexical[id],
			vector:  vector[id],
		})
	}
	total := len(hits)

	s.order(hits, req.SortBy())

	if len(hits) > req.Limit() {
		hits = hits[:req.Limit()]
	}

	results, err := s.hydrate(ctx, hits)
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

// score runs the lexical and vector paths over the candidate pool. In
// hybrid mode the two run concurrently; a failure on either path fails
// the search.
func (s *Service) score(
	ctx context.Context, req *request.Request, candidates []string,
) (lexical, vector map[string]float64, err error) {
	g, gctx := errgroup.WithContext(ctx)

	if req.Mode().NeedsLexical() {
		g.Go(func() error {
			terms := index.Tokenize(req.Query())
			if len(terms) == 0 {
				lexical = map[string]float64{}
				return nil
			}
			lexical = s.idx.LexicalScores(terms, candidates)
			return nil
		})
	}

	if req.Mode().NeedsVector() {
		g.Go(func() error {
			vec, embedErr := s.embedQuery(gctx, req.Query())
			if embedErr != nil {
				return embedErr
			}
			scores, scoreErr := s.idx.VectorScores(vec, candidates)
			if scoreErr != nil {
				return scoreErr
			}
			vector = scores
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if lexical == nil {
		lexical = map[string]float64{}
	}
	if vector == nil {
		vector = map[string]float64{}
	}
	return lexical, vector, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var vec []float32
	err := s.policy.Do(ctx, func() error {
		res, embedErr := s.embed.Embed(ctx, query)
		if embedErr != nil {
			return embedErr
		}
		domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
		vec = res.Embedding
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// fuse maps the per-scorer pools to the final score map for the mode.
// Single-scorer modes pass raw scores through unchanged so absolute
// TF-IDF and cosine values remain visible to callers.
func (s *Service) fuse(m mode.Mode, lexical, vector map[string]float64) (map[string]float64, error) {
	switch m {
	case mode.Lexical:
		return lexical, nil
	case mode.Semantic:
		return vector, nil
	default:
		return Fuse(lexical, vector, s.alpha)
	}
}

// order sorts hits in place. Relevance sorts by fused score descending;
// an attribute sort orders by that numeric descending with documents
// missing the attribute last. Ties always break by id ascending so
// pagination is stable across identical requests.
func (s *Service) order(hits []scored, sortBy string) {
	if sortBy == request.SortRelevance {
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].score != hits[j].score {
				return hits[i].score > hits[j].score
			}
			return hits[i].id < hits[j].id
		})
		return
	}

	keys := make(map[string]float64, len(hits))
	present := make(map[string]bool, len(hits))
	for _, h := range hits {
		nums := s.idx.Numerics(h.id)
		v, ok := nums[sortBy]
		keys[h.id] = v
		present[h.id] = ok
	}
	sort.Slice(hits, func(i, j int) bool {
		pi, pj := present[hits[i].id], present[hits[j].id]
		if pi != pj {
			return pi
		}
		if keys[hits[i].id] != keys[hits[j].id] {
			return keys[hits[i].id] > keys[hits[j].id]
		}
		return hits[i].id < hits[j].id
	})
}

// hydrate fetches payloads for the final page, preserving rank order.
// A document deleted between scoring and hydration is dropped rather
// than failing the whole page.
func (s *Service) hydrate(ctx context.Context, hits []scored) ([]result.Result, error) {
	if len(hits) == 0 {
		return []result.Result{}, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}

	var docs []domdoc.Document
	err := s.policy.Do(ctx, func() error {
		var fetchErr error
		docs, fetchErr = s.docs.GetMulti(ctx, ids)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	fetched := make(map[string]domdoc.Document, len(docs))
	for _, d := range docs {
		fetched[d.ID()] = d
	}

	results := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		doc, ok := fetched[h.id]
		if !ok {
			continue
		}
		results = append(results, result.New(
			h.id, h.score, h.lexical, h.vector,
			doc.Payload(), doc.Numerics(),
		))
	}
	return results, nil
}

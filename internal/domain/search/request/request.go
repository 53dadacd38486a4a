package request

import (
	"fmt"

	"github.com/campushq/unidex/internal/domain"
	"github.com/campushq/unidex/internal/domain/schema"
	"github.com/campushq/unidex/internal/domain/search/filter"
	"github.com/campushq/unidex/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
	MaxExcludeIDs  = 256

	// SortRelevance orders by fused score descending, ties by id ascending.
	SortRelevance = "relevance"
)

// Request is a validated search plan. Construction is the Query Planner:
// anything that passes New is executable against the index.
type Request struct {
	query      string
	searchMode mode.Mode
	filters    filter.Conditions
	excludeIDs map[string]struct{}
	limit      int
	sortBy     string
}

// New validates and normalizes search parameters against the profile
// schema. Defaults: mode=hybrid, limit=10. Limit clamps to MaxLimit
// rather than erroring. An empty query is never a valid search; a filter
// over an undeclared attribute fails closed.
func New(
	query string,
	m mode.Mode,
	filters filter.Conditions,
	excludeIDs []string,
	limit int,
	sortBy string,
	s schema.Schema,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidQuery)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidQuery)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("unknown search type %q: %w", m, domain.ErrInvalidQuery)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if len(excludeIDs) > MaxExcludeIDs {
		return Request{}, fmt.Errorf("too many exclude_ids (max %d): %w", MaxExcludeIDs, domain.ErrInvalidQuery)
	}

	if err := validateFilters(filters, s); err != nil {
		return Request{}, err
	}

	if sortBy == "" {
		sortBy = SortRelevance
	}
	if sortBy != SortRelevance {
		t, ok := s.AttrTypeOf(sortBy)
		if !ok {
			return Request{}, fmt.Errorf("unknown sort_by %q: %w", sortBy, domain.ErrInvalidQuery)
		}
		if t != schema.Numeric {
			return Request{}, fmt.Errorf("sort_by %q is not a numeric attribute: %w", sortBy, domain.ErrInvalidQuery)
		}
	}

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		if id != "" {
			excluded[id] = struct{}{}
		}
	}

	return Request{
		query:      query,
		searchMode: m,
		filters:    filters,
		excludeIDs: excluded,
		limit:      limit,
		sortBy:     sortBy,
	}, nil
}

// validateFilters checks every condition against the declared attributes.
// Unknown keys and type mismatches fail closed: a silently dropped filter
// would return documents the caller asked to exclude.
func validateFilters(filters filter.Conditions, s schema.Schema) error {
	for _, c := range filters {
		t, ok := s.AttrTypeOf(c.Key())
		if !ok {
			return fmt.Errorf("unknown filter attribute %q: %w", c.Key(), domain.ErrInvalidFilter)
		}
		if c.IsMatch() && t != schema.Tag {
			return fmt.Errorf("match filter on numeric attribute %q: %w", c.Key(), domain.ErrInvalidFilter)
		}
		if c.IsRange() && t != schema.Numeric {
			return fmt.Errorf("range filter on tag attribute %q: %w", c.Key(), domain.ErrInvalidFilter)
		}
	}
	return nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Mode returns the search strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// Filters returns the filter conjunction.
func (r *Request) Filters() filter.Conditions { return r.filters }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// SortBy returns the result ordering key.
func (r *Request) SortBy() string { return r.sortBy }

// IsExcluded reports whether an id was listed in exclude_ids.
func (r *Request) IsExcluded(id string) bool {
	_, ok := r.excludeIDs[id]
	return ok
}

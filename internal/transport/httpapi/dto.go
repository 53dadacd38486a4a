package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/campushq/unidex/internal/domain"
	dombatch "github.com/campushq/unidex/internal/domain/batch"
	domdoc "github.com/campushq/unidex/internal/domain/document"
	"github.com/campushq/unidex/internal/domain/search/filter"
	"github.com/campushq/unidex/internal/domain/search/result"
)

// errorCode is the machine-readable error discriminator in responses.
type errorCode string

const (
	codeBadRequest           errorCode = "bad_request"
	codeUnauthorized         errorCode = "unauthorized"
	codeInvalidDocument      errorCode = "invalid_document"
	codeInvalidQuery         errorCode = "invalid_query"
	codeInvalidFilter        errorCode = "invalid_filter"
	codeNotFound             errorCode = "not_found"
	codeVectorDimMismatch    errorCode = "vector_dim_mismatch"
	codeEmbeddingUnavailable errorCode = "embedding_unavailable"
	codeStoreUnavailable     errorCode = "store_unavailable"
	codeFusionError          errorCode = "fusion_error"
	codeInternalError        errorCode = "internal_error"
)

type errorResponse struct {
	Success bool      `json:"success"`
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type searchRequest struct {
	Query      string         `json:"query"`
	SearchType string         `json:"search_type"`
	Filters    map[string]any `json:"filters"`
	ExcludeIDs []string       `json:"exclude_ids"`
	Limit      int            `json:"limit"`
	SortBy     string         `json:"sort_by"`
}

type searchResultItem struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Lexical float64        `json:"lexical_score"`
	Vector  float64        `json:"vector_score"`
	Payload map[string]any `json:"payload"`
}

type searchResponse struct {
	Success bool               `json:"success"`
	Total   int                `json:"total"`
	Limit   int                `json:"limit"`
	Results []searchResultItem `json:"results"`
}

type ingestDocument struct {
	ID      string         `json:"id,omitempty"`
	Payload map[string]any `json:"payload"`
}

type ingestRequest struct {
	Document ingestDocument `json:"document"`
}

type ingestResponse struct {
	Success   bool   `json:"success"`
	ID        string `json:"id"`
	IndexedAt string `json:"indexed_at"`
}

type batchIngestRequest struct {
	Documents []ingestDocument `json:"documents"`
}

type batchResultItem struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Error  *errorItem `json:"error,omitempty"`
}

type errorItem struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

type batchIngestResponse struct {
	Success   bool              `json:"success"`
	Items     []batchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

type documentWire struct {
	ID        string         `json:"id"`
	Payload   map[string]any `json:"payload"`
	IndexedAt string         `json:"indexed_at,omitempty"`
}

type documentResponse struct {
	Success  bool         `json:"success"`
	Document documentWire `json:"document"`
}

type batchGetRequest struct {
	IDs []string `json:"ids"`
}

type batchGetResponse struct {
	Success   bool           `json:"success"`
	Documents []documentWire `json:"documents"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

type deleteResponse struct {
	Success bool `json:"success"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Documents int               `json:"documents"`
}

// filtersFromWire parses the flat filter object: a string value is an
// exact tag match, a number is numeric equality, and an object with
// gt/gte/lt/lte boundaries is a numeric range.
func filtersFromWire(raw map[string]any) (filter.Conditions, error) {
	if len(raw) == 0 {
		return filter.Conditions{}, nil
	}

	conds := make([]filter.Condition, 0, len(raw))
	for key, val := range raw {
		cond, err := conditionFromWire(key, val)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return filter.NewConditions(conds)
}

func conditionFromWire(key string, val any) (filter.Condition, error) {
	switch v := val.(type) {
	case string:
		return filter.NewMatch(key, v)
	case float64:
		eq := v
		r, err := filter.NewRangeExpr(nil, &eq, nil, &eq)
		if err != nil {
			return filter.Condition{}, err
		}
		return filter.NewRange(key, r)
	case map[string]any:
		return rangeConditionFromWire(key, v)
	default:
		return filter.Condition{}, fmt.Errorf(
			"filter %q has unsupported value type %T: %w", key, val, domain.ErrInvalidFilter)
	}
}

func rangeConditionFromWire(key string, raw map[string]any) (filter.Condition, error) {
	bounds := make(map[string]*float64, 4)
	for name, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return filter.Condition{}, fmt.Errorf(
				"range filter %q boundary %q must be a number: %w", key, name, domain.ErrInvalidFilter)
		}
		switch name {
		case "gt", "gte", "lt", "lte":
			val := f
			bounds[name] = &val
		default:
			return filter.Condition{}, fmt.Errorf(
				"range filter %q has unknown boundary %q: %w", key, name, domain.ErrInvalidFilter)
		}
	}

	r, err := filter.NewRangeExpr(bounds["gt"], bounds["gte"], bounds["lt"], bounds["lte"])
	if err != nil {
		return filter.Condition{}, err
	}
	return filter.NewRange(key, r)
}

func documentToWire(doc *domdoc.Document) documentWire {
	wire := documentWire{
		ID:      doc.ID(),
		Payload: doc.Payload(),
	}
	if !doc.IndexedAt().IsZero() {
		wire.IndexedAt = doc.IndexedAt().UTC().Format(time.RFC3339Nano)
	}
	return wire
}

func searchResultToWire(r *result.Result) searchResultItem {
	return searchResultItem{
		ID:      r.ID(),
		Score:   r.Score(),
		Lexical: r.Lexical(),
		Vector:  r.Vector(),
		Payload: r.Payload(),
	}
}

func batchResultToWire(r dombatch.Result) batchResultItem {
	item := batchResultItem{
		ID:     r.ID(),
		Status: string(r.Status()),
	}
	if r.Err() != nil {
		item.Error = &errorItem{
			Code:    batchErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func batchErrorCode(err error) errorCode {
	switch {
	case errors.Is(err, domain.ErrInvalidDocument):
		return codeInvalidDocument
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return codeVectorDimMismatch
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return codeEmbeddingUnavailable
	case errors.Is(err, domain.ErrStoreUnavailable):
		return codeStoreUnavailable
	default:
		return codeInternalError
	}
}

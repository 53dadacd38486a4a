package domain

import "errors"

var (
	// ErrInvalidDocument signals a document that fails ingest validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidFilter signals a filter over an undeclared attribute.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrNotFound signals a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals an embedding of the wrong dimension.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrEmbeddingUnavailable signals a transient embedding provider failure (retryable).
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrStoreUnavailable signals a transient document store failure (retryable).
	ErrStoreUnavailable = errors.New("document store unavailable")

	// ErrFusionInvariant signals a score-fusion invariant violation.
	// It should never surface to callers and is reported as an internal error.
	ErrFusionInvariant = errors.New("score fusion invariant violated")
)

// IsRetryable reports whether the error is a transient dependency failure
// that the caller may retry with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEmbeddingUnavailable) || errors.Is(err, ErrStoreUnavailable)
}

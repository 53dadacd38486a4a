package index

import (
	"fmt"
	"math"

	"github.com/campushq/unidex/internal/domain"
)

// VectorScores scores every filter-surviving candidate by cosine
// similarity to the query vector, in [-1, 1]. There is no zero-cutoff:
// semantic similarity is continuous and weak matches still carry signal
// in fusion.
func (ix *Index) VectorScores(queryVec []float32, candidates []string) (map[string]float64, error) {
	if len(queryVec) != ix.dim {
		return nil, fmt.Errorf("query vector has %d dimensions, want %d: %w",
			len(queryVec), ix.dim, domain.ErrVectorDimMismatch)
	}

	qnorm := vectorNorm(queryVec)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	scores := make(map[string]float64, len(candidates))
	if qnorm == 0 {
		return scores, nil
	}

	for _, id := range candidates {
		e, ok := ix.entries[id]
		if !ok || e.norm == 0 {
			continue
		}

		var dot float64
		for i, q := range queryVec {
			dot += float64(q) * float64(e.vector[i])
		}

		cos := dot / (qnorm * e.norm)
		// Clamp float drift so downstream normalization sees [-1, 1].
		scores[id] = math.Max(-1, math.Min(1, cos))
	}

	return scores, nil
}

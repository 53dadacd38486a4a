package search

import (
	"fmt"
	"math"

	"github.com/campushq/unidex/internal/domain"
)

// DefaultAlpha is the default lexical weight in hybrid fusion.
const DefaultAlpha = 0.5

// Fuse merges lexical and vector score maps into one fused map:
// each side is min-max normalized to [0, 1] within its own candidate
// pool (score distributions shift per query, so a global constant would
// skew the blend), then combined as alpha*lexical + (1-alpha)*vector.
//
// The fused pool is the union of both inputs: a document present on only
// one side scores 0 on the other, so a purely semantic match survives
// hybrid mode. Pure function over its inputs; no I/O.
func Fuse(lexical, vector map[string]float64, alpha float64) (map[string]float64, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha %v outside [0, 1]: %w", alpha, domain.ErrFusionInvariant)
	}

	lexNorm, err := minMaxNormalize(lexical)
	if err != nil {
		return nil, err
	}
	vecNorm, err := minMaxNormalize(vector)
	if err != nil {
		return nil, err
	}

	fused := make(map[string]float64, len(lexNorm)+len(vecNorm))
	for id, s := range lexNorm {
		fused[id] = alpha * s
	}
	for id, s := range vecNorm {
		fused[id] += (1 - alpha) * s
	}

	return fused, nil
}

// minMaxNormalize rescales scores to [0, 1] over the given pool. A pool
// whose scores are all equal normalizes to 1.0: every member is the best
// available on that axis.
func minMaxNormalize(scores map[string]float64) (map[string]float64, error) {
	if len(scores) == 0 {
		return map[string]float64{}, nil
	}

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for id, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("score for %q is %v: %w", id, s, domain.ErrFusionInvariant)
		}
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	norm := make(map[string]float64, len(scores))
	if hi == lo {
		for id := range scores {
			norm[id] = 1.0
		}
		return norm, nil
	}

	for id, s := range scores {
		norm[id] = (s - lo) / (hi - lo)
	}
	return norm, nil
}

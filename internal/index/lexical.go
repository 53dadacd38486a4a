package index

import "math"

// LexicalScores scores filter-surviving candidates against the query
// terms with a TF-IDF relevance function. Documents sharing no terms with
// the query are excluded entirely rather than returned with score 0: they
// carry no lexical signal and would only inflate the fusion pool.
func (ix *Index) LexicalScores(queryTerms []string, candidates []string) map[string]float64 {
	scores := make(map[string]float64)
	if len(queryTerms) == 0 {
		return scores
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	n := float64(len(ix.entries))

	for _, id := range candidates {
		e, ok := ix.entries[id]
		if !ok || e.termCount == 0 {
			continue
		}

		var score float64
		for _, term := range queryTerms {
			tf := e.terms[term]
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + n/float64(1+ix.df[term]))
			score += float64(tf) / float64(e.termCount) * idf
		}

		if score > 0 {
			scores[id] = score
		}
	}

	return scores
}

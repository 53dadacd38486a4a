package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Hybrid fuses lexical and semantic scores.
	Hybrid Mode = "hybrid"
	// Semantic ranks by embedding cosine similarity only.
	Semantic Mode = "semantic"
	// Lexical ranks by term relevance only.
	Lexical Mode = "lexical"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Lexical
}

// NeedsLexical reports whether the mode runs the lexical scorer.
func (m Mode) NeedsLexical() bool { return m == Lexical || m == Hybrid }

// NeedsVector reports whether the mode runs the vector scorer.
func (m Mode) NeedsVector() bool { return m == Semantic || m == Hybrid }

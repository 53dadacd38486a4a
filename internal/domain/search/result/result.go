package result

// Result is a single search hit.
type Result struct {
	id       string
	score    float64
	lexical  float64
	vector   float64
	payload  map[string]any
	numerics map[string]float64
}

// New creates a search result. lexical and vector carry the per-scorer
// components for observability; score is the final sort key input.
func New(
	id string, score, lexical, vector float64,
	payload map[string]any, numerics map[string]float64,
) Result {
	return Result{
		id: id, score: score, lexical: lexical, vector: vector,
		payload: payload, numerics: numerics,
	}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the fused relevance score.
func (r *Result) Score() float64 { return r.score }

// Lexical returns the lexical score component.
func (r *Result) Lexical() float64 { return r.lexical }

// Vector returns the vector score component.
func (r *Result) Vector() float64 { return r.vector }

// Payload returns the full profile record.
func (r *Result) Payload() map[string]any { return r.payload }

// Numerics returns the document's numeric attributes (attribute sorts).
func (r *Result) Numerics() map[string]float64 { return r.numerics }

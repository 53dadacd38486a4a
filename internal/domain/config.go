package domain

// KeyPrefix namespaces every Redis key written by the engine.
const KeyPrefix = "unidex:"

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the default embedding configuration.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-3-small",
		Dimensions:     768,
		DistanceMetric: "cosine",
	}
}

package document

import (
	"fmt"
	"regexp"
	"time"

	"github.com/campushq/unidex/internal/domain"
	"github.com/campushq/unidex/internal/domain/schema"
)

var idRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// MaxIDLength bounds document ids.
const MaxIDLength = 256

// Document is the unit of storage and retrieval (immutable value object).
// The searchable text, filter attributes, and embedding are derived from
// the payload at ingest time; the payload is the only source of truth.
type Document struct {
	id        string
	payload   map[string]any
	text      string
	tags      map[string]string
	numerics  map[string]float64
	vector    []float32
	indexedAt time.Time
}

// New validates a raw id+payload pair and derives the searchable text and
// filter attributes per the profile schema. When id is empty it is derived
// deterministically from the payload's natural key. The embedding vector
// is attached later by the ingest path.
func New(id string, payload map[string]any, s schema.Schema) (Document, error) {
	if len(payload) == 0 {
		return Document{}, fmt.Errorf("payload is required: %w", domain.ErrInvalidDocument)
	}

	if id == "" {
		derived, err := s.DeriveID(payload)
		if err != nil {
			return Document{}, err
		}
		id = derived
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("document id too long (max %d): %w", MaxIDLength, domain.ErrInvalidDocument)
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document id %q must be lowercase alphanumeric with underscores and hyphens: %w",
			id, domain.ErrInvalidDocument)
	}

	text := s.DeriveText(payload)
	if text == "" {
		return Document{}, fmt.Errorf("payload has no searchable text fields: %w", domain.ErrInvalidDocument)
	}

	tags, numerics, err := s.DeriveAttributes(payload)
	if err != nil {
		return Document{}, err
	}

	return Document{
		id:       id,
		payload:  payload,
		text:     text,
		tags:     tags,
		numerics: numerics,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id string, payload map[string]any, text string,
	tags map[string]string, numerics map[string]float64,
	vector []float32, indexedAt time.Time,
) Document {
	return Document{
		id: id, payload: payload, text: text,
		tags: tags, numerics: numerics,
		vector: vector, indexedAt: indexedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Payload returns the full profile record.
func (d *Document) Payload() map[string]any { return d.payload }

// Text returns the derived searchable text.
func (d *Document) Text() string { return d.text }

// Tags returns the derived categorical filter attributes.
func (d *Document) Tags() map[string]string { return d.tags }

// Numerics returns the derived numeric filter attributes.
func (d *Document) Numerics() map[string]float64 { return d.numerics }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// IndexedAt returns the time of the last successful ingest.
func (d *Document) IndexedAt() time.Time { return d.indexedAt }

// SetVector attaches the embedding vector (ingest path only).
func (d *Document) SetVector(v []float32) { d.vector = v }

// SetIndexedAt stamps the ingest time (ingest path only).
func (d *Document) SetIndexedAt(t time.Time) { d.indexedAt = t }

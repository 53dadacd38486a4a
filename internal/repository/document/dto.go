package document

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	domdoc "github.com/campushq/unidex/internal/domain/document"
)

// Reserved hash field names. The payload is stored as one JSON blob so
// the stored record and its derived fields always travel together.
const (
	fieldPayload   = "__payload"
	fieldText      = "__text"
	fieldVector    = "__vector"
	fieldTags      = "__tags"
	fieldNumerics  = "__numerics"
	fieldIndexedAt = "__indexed_at"
)

// buildHashFields converts a domain Document into a flat map[string]string
// for a single HSET: one atomic write per document.
func buildHashFields(doc *domdoc.Document) (map[string]string, error) {
	payload, err := json.Marshal(doc.Payload())
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	tags, err := json.Marshal(doc.Tags())
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	numerics, err := json.Marshal(doc.Numerics())
	if err != nil {
		return nil, fmt.Errorf("marshal numerics: %w", err)
	}

	return map[string]string{
		fieldPayload:   string(payload),
		fieldText:      doc.Text(),
		fieldVector:    vectorToBytes(doc.Vector()),
		fieldTags:      string(tags),
		fieldNumerics:  string(numerics),
		fieldIndexedAt: strconv.FormatInt(doc.IndexedAt().UnixMilli(), 10),
	}, nil
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) (domdoc.Document, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(m[fieldPayload]), &payload); err != nil {
		return domdoc.Document{}, fmt.Errorf("unmarshal payload for %s: %w", id, err)
	}

	var tags map[string]string
	if raw := m[fieldTags]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return domdoc.Document{}, fmt.Errorf("unmarshal tags for %s: %w", id, err)
		}
	}

	var numerics map[string]float64
	if raw := m[fieldNumerics]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &numerics); err != nil {
			return domdoc.Document{}, fmt.Errorf("unmarshal numerics for %s: %w", id, err)
		}
	}

	var indexedAt time.Time
	if raw := m[fieldIndexedAt]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domdoc.Document{}, fmt.Errorf("parse indexed_at for %s: %w", id, err)
		}
		indexedAt = time.UnixMilli(ms).UTC()
	}

	return domdoc.Reconstruct(
		id, payload, m[fieldText], tags, numerics,
		bytesToVector(m[fieldVector]), indexedAt,
	), nil
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

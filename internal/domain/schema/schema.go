// Package schema declares which profile payload fields are searchable and
// which are filterable. The engine never interprets payload keys beyond
// this declaration: searchable fields feed the lexical index and the
// embedder, attribute fields feed filter predicates and attribute sorts.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/campushq/unidex/internal/domain"
)

// AttrType is the declared type of a filterable attribute.
type AttrType string

const (
	// Tag is an exact-match categorical attribute.
	Tag AttrType = "tag"
	// Numeric is a range-filterable numeric attribute.
	Numeric AttrType = "numeric"
)

// Attribute is a single declared filterable attribute.
type Attribute struct {
	name     string
	attrType AttrType
}

// NewAttribute validates and creates an attribute declaration.
func NewAttribute(name string, t AttrType) (Attribute, error) {
	if name == "" {
		return Attribute{}, fmt.Errorf("attribute name is required")
	}
	if t != Tag && t != Numeric {
		return Attribute{}, fmt.Errorf("unknown attribute type %q", t)
	}
	return Attribute{name: name, attrType: t}, nil
}

// Name returns the attribute name.
func (a Attribute) Name() string { return a.name }

// Type returns the attribute type.
func (a Attribute) Type() AttrType { return a.attrType }

// Schema is the declared shape of an institution profile.
type Schema struct {
	textFields []string
	attrs      map[string]AttrType
	keyField   string
}

// New validates and creates a Schema. textFields is the ordered list of
// payload keys concatenated into searchable text; keyField is the natural
// key used to derive an id when the caller supplies none.
func New(textFields []string, attrs []Attribute, keyField string) (Schema, error) {
	if len(textFields) == 0 {
		return Schema{}, fmt.Errorf("at least one searchable text field is required")
	}
	if keyField == "" {
		return Schema{}, fmt.Errorf("natural key field is required")
	}
	m := make(map[string]AttrType, len(attrs))
	for _, a := range attrs {
		if _, dup := m[a.name]; dup {
			return Schema{}, fmt.Errorf("duplicate attribute %q", a.name)
		}
		m[a.name] = a.attrType
	}
	return Schema{
		textFields: append([]string(nil), textFields...),
		attrs:      m,
		keyField:   keyField,
	}, nil
}

// AttrTypeOf returns the declared type of an attribute name.
func (s Schema) AttrTypeOf(name string) (AttrType, bool) {
	t, ok := s.attrs[name]
	return t, ok
}

// TextFields returns the declared searchable text fields in order.
func (s Schema) TextFields() []string { return s.textFields }

// DeriveText concatenates the declared text fields of a payload in
// declaration order. Same payload always yields the same string.
func (s Schema) DeriveText(payload map[string]any) string {
	parts := make([]string, 0, len(s.textFields))
	for _, f := range s.textFields {
		if v, ok := payload[f]; ok {
			if str := stringify(v); str != "" {
				parts = append(parts, str)
			}
		}
	}
	return strings.Join(parts, " ")
}

// DeriveAttributes extracts declared filter attributes from a payload.
// Undeclared payload keys are ignored; a declared attribute with a value
// of the wrong kind is an ErrInvalidDocument.
func (s Schema) DeriveAttributes(payload map[string]any) (map[string]string, map[string]float64, error) {
	tags := make(map[string]string)
	numerics := make(map[string]float64)

	names := make([]string, 0, len(s.attrs))
	for name := range s.attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v, ok := payload[name]
		if !ok || v == nil {
			continue
		}
		switch s.attrs[name] {
		case Tag:
			str := stringify(v)
			if str == "" {
				return nil, nil, fmt.Errorf("attribute %q must be a string: %w", name, domain.ErrInvalidDocument)
			}
			tags[name] = str
		case Numeric:
			f, ok := toFloat(v)
			if !ok {
				return nil, nil, fmt.Errorf("attribute %q must be numeric: %w", name, domain.ErrInvalidDocument)
			}
			numerics[name] = f
		}
	}
	return tags, numerics, nil
}

// DeriveID builds a deterministic document id from the payload's natural
// key: lowercased, runs of non-alphanumerics collapsed to single hyphens.
func (s Schema) DeriveID(payload map[string]any) (string, error) {
	raw := stringify(payload[s.keyField])
	if raw == "" {
		return "", fmt.Errorf("payload field %q is required to derive an id: %w", s.keyField, domain.ErrInvalidDocument)
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	id := b.String()
	if id == "" {
		return "", fmt.Errorf("payload field %q has no usable characters: %w", s.keyField, domain.ErrInvalidDocument)
	}
	return id, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if str := stringify(item); str != "" {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

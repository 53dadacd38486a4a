package schema

import (
	"errors"
	"testing"

	"github.com/campushq/unidex/internal/domain"
)

func testSchema(t *testing.T) Schema {
	t.Helper()
	state, err := NewAttribute("state", Tag)
	if err != nil {
		t.Fatalf("new attribute: %v", err)
	}
	tuition, err := NewAttribute("tuition", Numeric)
	if err != nil {
		t.Fatalf("new attribute: %v", err)
	}
	s, err := New([]string{"name", "description", "programs"}, []Attribute{state, tuition}, "name")
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, nil, "name"); err == nil {
		t.Error("expected error for empty text fields")
	}
	if _, err := New([]string{"name"}, nil, ""); err == nil {
		t.Error("expected error for empty key field")
	}

	a, _ := NewAttribute("state", Tag)
	b, _ := NewAttribute("state", Numeric)
	if _, err := New([]string{"name"}, []Attribute{a, b}, "name"); err == nil {
		t.Error("expected error for duplicate attribute")
	}
}

func TestNewAttribute_UnknownType(t *testing.T) {
	if _, err := NewAttribute("state", "geo"); err == nil {
		t.Error("expected error for unknown attribute type")
	}
}

func TestDeriveText(t *testing.T) {
	s := testSchema(t)

	payload := map[string]any{
		"name":        "MIT",
		"description": "research university",
		"programs":    []any{"engineering", "physics"},
		"state":       "MA", // not a text field
	}
	got := s.DeriveText(payload)
	want := "MIT research university engineering physics"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDeriveText_Deterministic(t *testing.T) {
	s := testSchema(t)
	payload := map[string]any{"name": "MIT", "description": "research"}

	first := s.DeriveText(payload)
	for i := 0; i < 10; i++ {
		if got := s.DeriveText(payload); got != first {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
}

func TestDeriveAttributes(t *testing.T) {
	s := testSchema(t)

	payload := map[string]any{
		"name":    "MIT",
		"state":   "MA",
		"tuition": float64(60000),
		"extra":   "ignored",
	}
	tags, numerics, err := s.DeriveAttributes(payload)
	if err != nil {
		t.Fatalf("derive attributes: %v", err)
	}

	if tags["state"] != "MA" {
		t.Errorf("expected state=MA, got %v", tags)
	}
	if numerics["tuition"] != 60000 {
		t.Errorf("expected tuition=60000, got %v", numerics)
	}
	if _, ok := tags["extra"]; ok {
		t.Error("undeclared keys must be ignored")
	}
}

func TestDeriveAttributes_WrongKind(t *testing.T) {
	s := testSchema(t)

	_, _, err := s.DeriveAttributes(map[string]any{"tuition": "expensive"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for string tuition, got %v", err)
	}

	_, _, err = s.DeriveAttributes(map[string]any{"state": 42.0})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for numeric state, got %v", err)
	}
}

func TestDeriveID(t *testing.T) {
	s := testSchema(t)

	cases := []struct {
		name string
		want string
	}{
		{"MIT", "mit"},
		{"University of California, Berkeley", "university-of-california-berkeley"},
		{"  École Polytechnique  ", "cole-polytechnique"},
		{"A&M University", "a-m-university"},
	}
	for _, c := range cases {
		got, err := s.DeriveID(map[string]any{"name": c.name})
		if err != nil {
			t.Errorf("%q: %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q: expected %q, got %q", c.name, c.want, got)
		}
	}
}

func TestDeriveID_MissingKey(t *testing.T) {
	s := testSchema(t)

	_, err := s.DeriveID(map[string]any{"description": "no name"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}

	_, err = s.DeriveID(map[string]any{"name": "!!!"})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for unusable key, got %v", err)
	}
}

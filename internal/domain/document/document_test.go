package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/campushq/unidex/internal/domain"
	"github.com/campushq/unidex/internal/domain/schema"
)

func testSchema(t *testing.T) schema.Schema {
	t.Helper()
	state, err := schema.NewAttribute("state", schema.Tag)
	if err != nil {
		t.Fatalf("new attribute: %v", err)
	}
	s, err := schema.New([]string{"name", "description"}, []schema.Attribute{state}, "name")
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func TestNew_DerivesFields(t *testing.T) {
	payload := map[string]any{
		"name":        "MIT",
		"description": "research university",
		"state":       "MA",
	}
	doc, err := New("", payload, testSchema(t))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	if doc.ID() != "mit" {
		t.Errorf("expected derived id mit, got %q", doc.ID())
	}
	if doc.Text() != "MIT research university" {
		t.Errorf("unexpected derived text %q", doc.Text())
	}
	if doc.Tags()["state"] != "MA" {
		t.Errorf("expected state tag, got %v", doc.Tags())
	}
	if doc.Vector() != nil {
		t.Error("vector must not be set before ingest")
	}
}

func TestNew_ExplicitIDWins(t *testing.T) {
	doc, err := New("custom-id", map[string]any{"name": "MIT"}, testSchema(t))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	if doc.ID() != "custom-id" {
		t.Errorf("expected custom-id, got %q", doc.ID())
	}
}

func TestNew_InvalidID(t *testing.T) {
	cases := []string{
		"UPPER",
		"-leading-hyphen",
		"has space",
		"has/slash",
		strings.Repeat("a", MaxIDLength+1),
	}
	for _, id := range cases {
		_, err := New(id, map[string]any{"name": "MIT"}, testSchema(t))
		if !errors.Is(err, domain.ErrInvalidDocument) {
			t.Errorf("id %q: expected ErrInvalidDocument, got %v", id, err)
		}
	}
}

func TestNew_EmptyPayload(t *testing.T) {
	_, err := New("mit", nil, testSchema(t))
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestNew_NoSearchableText(t *testing.T) {
	_, err := New("mit", map[string]any{"state": "MA"}, testSchema(t))
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument for payload without text, got %v", err)
	}
}

func TestNew_PayloadPreserved(t *testing.T) {
	payload := map[string]any{
		"name":        "MIT",
		"description": "research",
		"website":     "https://mit.edu", // undeclared, kept verbatim
	}
	doc, err := New("", payload, testSchema(t))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	if doc.Payload()["website"] != "https://mit.edu" {
		t.Error("payload must be preserved exactly, including undeclared keys")
	}
}

package document

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/solrsync/internal/domain"
	"github.com/kailas-cloud/solrsync/internal/domain/document/field"
	"github.com/kailas-cloud/solrsync/internal/domain/record"
)

func mustField(t *testing.T, name string, ft field.Type, opts ...field.Option) field.Field {
	t.Helper()
	f, err := field.New(name, ft, opts...)
	if err != nil {
		t.Fatalf("field.New(%s): %v", name, err)
	}
	return f
}

func bookSchema(t *testing.T, strategy IDStrategy, dynamic bool) *Schema {
	t.Helper()
	s, err := NewSchema("Book", strategy, dynamic, []field.Field{
		mustField(t, "title", field.Text),
		mustField(t, "pages", field.Integer, field.Optional()),
		mustField(t, "price", field.Float, field.WithDefault(0)),
		mustField(t, "tags", field.String, field.MultiValued(), field.Optional()),
		mustField(t, "published", field.Date, field.Optional()),
		mustField(t, "in_print", field.Boolean, field.Optional()),
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func mustRecord(t *testing.T, id string, fields map[string]any) record.Record {
	t.Helper()
	r, err := record.New("Book", id, fields)
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return r
}

func TestToDocument_Basic(t *testing.T) {
	s := bookSchema(t, IDTypePK, true)
	rec := mustRecord(t, "1", map[string]any{
		"title":     "Dune",
		"pages":     412,
		"tags":      []string{"scifi", "classic"},
		"published": time.Date(1965, 8, 1, 0, 0, 0, 0, time.FixedZone("X", 3600)),
		"in_print":  true,
	})

	doc, err := s.ToDocument(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "Book:1" {
		t.Errorf("id = %q, want Book:1", doc.ID())
	}

	want := map[string][]string{
		"type_s":      {"Book"},
		"pk_s":        {"1"},
		"title_t":     {"Dune"},
		"pages_i":     {"412"},
		"price_f":     {"0"},
		"tags_s":      {"scifi", "classic"},
		"published_d": {"1965-07-31T23:00:00Z"},
		"in_print_b":  {"true"},
	}
	if doc.Len() != len(want) {
		t.Fatalf("entries = %d, want %d", doc.Len(), len(want))
	}
	for name, vals := range want {
		got, ok := doc.Get(name)
		if !ok {
			t.Errorf("missing entry %s", name)
			continue
		}
		if len(got) != len(vals) {
			t.Errorf("%s = %v, want %v", name, got, vals)
			continue
		}
		for i := range vals {
			if got[i] != vals[i] {
				t.Errorf("%s[%d] = %q, want %q", name, i, got[i], vals[i])
			}
		}
	}
}

func TestToDocument_MissingRequiredField(t *testing.T) {
	s := bookSchema(t, IDTypePK, false)
	_, err := s.ToDocument(mustRecord(t, "1", map[string]any{"pages": 10}))
	if !errors.Is(err, domain.ErrMapping) {
		t.Fatalf("expected ErrMapping, got %v", err)
	}
	var me *domain.MappingError
	if !errors.As(err, &me) || me.Field != "title" {
		t.Errorf("expected mapping error on title, got %+v", me)
	}
}

func TestToDocument_SequenceForScalarField(t *testing.T) {
	s := bookSchema(t, IDTypePK, false)
	_, err := s.ToDocument(mustRecord(t, "1", map[string]any{"title": []string{"a", "b"}}))
	if !errors.Is(err, domain.ErrMapping) {
		t.Fatalf("expected ErrMapping, got %v", err)
	}
}

func TestToDocument_ScalarForMultiValuedField(t *testing.T) {
	s := bookSchema(t, IDTypePK, false)
	doc, err := s.ToDocument(mustRecord(t, "1", map[string]any{"title": "Dune", "tags": "scifi"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := doc.Get("tags")
	if len(got) != 1 || got[0] != "scifi" {
		t.Errorf("tags = %v, want [scifi]", got)
	}
}

func TestToDocument_CoercionErrors(t *testing.T) {
	s := bookSchema(t, IDTypePK, false)
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"non-integer pages", map[string]any{"title": "x", "pages": "many"}},
		{"fractional pages", map[string]any{"title": "x", "pages": 1.5}},
		{"bad boolean", map[string]any{"title": "x", "in_print": "maybe"}},
		{"bad date", map[string]any{"title": "x", "published": "yesterday"}},
		{"bad float", map[string]any{"title": "x", "price": true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.ToDocument(mustRecord(t, "1", tc.fields)); !errors.Is(err, domain.ErrMapping) {
				t.Errorf("expected ErrMapping, got %v", err)
			}
		})
	}
}

func TestToDocument_JSONNumbers(t *testing.T) {
	s := bookSchema(t, IDTypePK, false)
	doc, err := s.ToDocument(mustRecord(t, "1", map[string]any{
		"title": "Dune",
		"pages": json.Number("412"),
		"price": json.Number("9.99"),
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := doc.Get("pages"); got[0] != "412" {
		t.Errorf("pages = %v", got)
	}
	if got, _ := doc.Get("price"); got[0] != "9.99" {
		t.Errorf("price = %v", got)
	}
}

func TestToDocument_WrongType(t *testing.T) {
	s := bookSchema(t, IDTypePK, false)
	rec := record.Reconstruct("Movie", "1", map[string]any{"title": "Dune"})
	if _, err := s.ToDocument(rec); !errors.Is(err, domain.ErrMapping) {
		t.Errorf("expected ErrMapping, got %v", err)
	}
}

func TestToDocument_ComputedField(t *testing.T) {
	s, err := NewSchema("Book", IDTypePK, false, []field.Field{
		mustField(t, "title", field.Text),
		mustField(t, "author", field.String),
		mustField(t, "display", field.Text, field.WithExpression(`title + " by " + author`)),
		mustField(t, "long", field.Boolean, field.WithExpression(`pages > 300`), field.Optional()),
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	doc, err := s.ToDocument(mustRecord(t, "1", map[string]any{
		"title": "Dune", "author": "Herbert", "pages": 412,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := doc.Get("display"); got[0] != "Dune by Herbert" {
		t.Errorf("display = %v", got)
	}
	if got, _ := doc.Get("long"); got[0] != "true" {
		t.Errorf("long = %v", got)
	}
}

func TestToDocument_ComputedFieldFromStoredNumbers(t *testing.T) {
	s, err := NewSchema("Book", IDTypePK, false, []field.Field{
		mustField(t, "pages", field.Integer),
		mustField(t, "sheets", field.Integer, field.WithExpression(`pages / 2`)),
		mustField(t, "long", field.Boolean, field.WithExpression(`pages > 300`)),
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}

	rec := record.Reconstruct("Book", "1", map[string]any{"pages": json.Number("412")})
	doc, err := s.ToDocument(rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := doc.Get("sheets"); got[0] != "206" {
		t.Errorf("sheets = %v", got)
	}
	if got, _ := doc.Get("long"); got[0] != "true" {
		t.Errorf("long = %v", got)
	}
}

func TestNewSchema_InvalidExpression(t *testing.T) {
	_, err := NewSchema("Book", IDTypePK, false, []field.Field{
		mustField(t, "x", field.Text, field.WithExpression(`title +`)),
	})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestNewSchema_DuplicateField(t *testing.T) {
	_, err := NewSchema("Book", IDTypePK, false, []field.Field{
		mustField(t, "title", field.Text),
		mustField(t, "title", field.String),
	})
	if err == nil {
		t.Fatal("expected duplicate field error")
	}
}

func TestDocumentID_Strategies(t *testing.T) {
	if got := bookSchema(t, IDTypePK, false).DocumentID("7"); got != "Book:7" {
		t.Errorf("type_pk = %q", got)
	}
	if got := bookSchema(t, IDPK, false).DocumentID("7"); got != "7" {
		t.Errorf("pk = %q", got)
	}
	u1 := bookSchema(t, IDUUID, false).DocumentID("7")
	u2 := bookSchema(t, IDUUID, false).DocumentID("7")
	if u1 != u2 || len(u1) != 36 {
		t.Errorf("uuid strategy must be deterministic, got %q and %q", u1, u2)
	}
	if u1 == bookSchema(t, IDUUID, false).DocumentID("8") {
		t.Error("uuid strategy must differ per key")
	}
}

func TestFromDocument_RoundTrip(t *testing.T) {
	s := bookSchema(t, IDTypePK, true)
	published := time.Date(1965, 8, 1, 0, 0, 0, 0, time.UTC)
	doc, err := s.ToDocument(mustRecord(t, "1", map[string]any{
		"title": "Dune", "pages": 412, "price": 9.5,
		"tags": []any{"scifi"}, "published": published, "in_print": false,
	}))
	if err != nil {
		t.Fatalf("ToDocument: %v", err)
	}

	got, err := s.FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}
	if got["title"] != "Dune" {
		t.Errorf("title = %v", got["title"])
	}
	if got["pages"] != int64(412) {
		t.Errorf("pages = %#v", got["pages"])
	}
	if got["price"] != 9.5 {
		t.Errorf("price = %#v", got["price"])
	}
	if got["in_print"] != false {
		t.Errorf("in_print = %#v", got["in_print"])
	}
	if ts, ok := got["published"].(time.Time); !ok || !ts.Equal(published) {
		t.Errorf("published = %#v", got["published"])
	}
	tags, ok := got["tags"].([]any)
	if !ok || len(tags) != 1 || tags[0] != "scifi" {
		t.Errorf("tags = %#v", got["tags"])
	}
}

func TestFromFields_SolrHit(t *testing.T) {
	s := bookSchema(t, IDTypePK, true)
	hit := map[string]any{
		"id":      "Book:1",
		"pk_s":    "1",
		"title_t": []any{"Dune"},
		"pages_i": json.Number("412"),
		"tags_s":  "scifi",
		"score":   json.Number("1.5"),
	}
	got, err := s.FromFields(hit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["title"] != "Dune" {
		t.Errorf("title = %#v", got["title"])
	}
	if got["pages"] != int64(412) {
		t.Errorf("pages = %#v", got["pages"])
	}
	if tags, ok := got["tags"].([]any); !ok || len(tags) != 1 {
		t.Errorf("tags = %#v", got["tags"])
	}
	if _, ok := got["score"]; ok {
		t.Error("undeclared fields must be dropped")
	}

	pk, ok := PrimaryKey(hit)
	if !ok || pk != "1" {
		t.Errorf("PrimaryKey = %q, %v", pk, ok)
	}
}

func TestMapper_UnknownType(t *testing.T) {
	m, err := NewMapper(bookSchema(t, IDTypePK, false))
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	_, err = m.ToDocument(record.Reconstruct("Movie", "1", nil))
	if !errors.Is(err, domain.ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestDocument_Immutable(t *testing.T) {
	vals := []string{"a"}
	doc := New("x", []Entry{NewEntry("f", vals, true)})
	vals[0] = "mutated"

	got, _ := doc.Get("f")
	if got[0] != "a" {
		t.Errorf("entry aliased caller slice: %v", got)
	}
	got[0] = "again"
	if again, _ := doc.Get("f"); again[0] != "a" {
		t.Errorf("Get returned internal slice: %v", again)
	}
}

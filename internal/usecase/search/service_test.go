package search

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/kailas-cloud/solrsync/internal/domain"
	domdoc "github.com/kailas-cloud/solrsync/internal/domain/document"
	"github.com/kailas-cloud/solrsync/internal/domain/document/field"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// --- Mocks ---

type mockEngine struct {
	res    result.SearchResult
	err    error
	params url.Values
	calls  int
}

func (m *mockEngine) Search(_ context.Context, params url.Values) (result.SearchResult, error) {
	m.calls++
	m.params = params
	return m.res, m.err
}

type mockReader struct {
	records map[string]domrec.Record
	err     error
	asked   []string
}

func (m *mockReader) GetMulti(_ context.Context, _ string, ids []string) (map[string]domrec.Record, error) {
	m.asked = ids
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]domrec.Record)
	for _, id := range ids {
		if r, ok := m.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

// --- Helpers ---

func testMapper(t *testing.T) *domdoc.Mapper {
	t.Helper()
	title, err := field.New("title", field.Text)
	if err != nil {
		t.Fatal(err)
	}
	s, err := domdoc.NewSchema("Book", domdoc.IDTypePK, true, []field.Field{title})
	if err != nil {
		t.Fatal(err)
	}
	m, err := domdoc.NewMapper(s)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func hit(id, pk string) result.Hit {
	f := map[string]any{"id": id}
	if pk != "" {
		f["pk_s"] = pk
	}
	return result.NewHit(f)
}

func book(t *testing.T, id string) domrec.Record {
	t.Helper()
	r, err := domrec.New("Book", id, map[string]any{"title": "t" + id})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// --- Search ---

func TestSearch_ScopesAndMapsFields(t *testing.T) {
	eng := &mockEngine{res: result.New(0, 0, nil, nil)}
	svc := New(eng, testMapper(t), &mockReader{})

	spec := query.Spec{Condition: query.Equals("title", "Dune")}
	if _, err := svc.Search(context.Background(), "Book", spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := eng.params.Get("q"); got != "title_t:Dune" {
		t.Errorf("q = %q", got)
	}
	fq := eng.params["fq"]
	if len(fq) != 1 || fq[0] != "type_s:Book" {
		t.Errorf("fq = %v", fq)
	}
	if got := eng.params.Get("rows"); got != "20" {
		t.Errorf("rows = %q, want default page size", got)
	}
}

func TestSearch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		recType   string
		spec      query.Spec
		engineErr error
		want      error
	}{
		{"unknown type", "Author", query.Spec{Condition: query.Equals("title", "x")}, nil, domain.ErrUnknownType},
		{"empty condition", "Book", query.Spec{}, nil, domain.ErrTranslation},
		{"limit too large", "Book", query.Spec{Condition: query.Equals("title", "x"), Limit: 101}, nil, domain.ErrTranslation},
		{"negative offset", "Book", query.Spec{Condition: query.Equals("title", "x"), Offset: -1}, nil, domain.ErrTranslation},
		{
			"engine failure", "Book", query.Spec{Condition: query.Equals("title", "x")},
			&domain.TransportError{Op: "select", StatusCode: 500}, domain.ErrTransport,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			eng := &mockEngine{err: tc.engineErr}
			svc := New(eng, testMapper(t), &mockReader{})
			if _, err := svc.Search(context.Background(), tc.recType, tc.spec); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			if tc.engineErr == nil && eng.calls != 0 {
				t.Error("engine must not be called for invalid requests")
			}
		})
	}
}

func TestSearch_Pagination(t *testing.T) {
	eng := &mockEngine{res: result.New(0, 0, nil, nil)}
	svc := New(eng, testMapper(t), &mockReader{}).WithPagination(5, 10)

	spec := query.Spec{Condition: query.Equals("title", "x"), Offset: 30}
	if _, err := svc.Search(context.Background(), "Book", spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng.params.Get("rows") != "5" || eng.params.Get("start") != "30" {
		t.Errorf("rows=%s start=%s", eng.params.Get("rows"), eng.params.Get("start"))
	}
}

// --- Find ---

func TestFind_RehydratesInIndexOrder(t *testing.T) {
	eng := &mockEngine{res: result.New(4, 0, nil, []result.Hit{
		hit("Book:3", "3"),
		hit("Book:1", "1"),
		hit("Book:9", "9"), // deleted from the primary store
		hit("Book:x", ""),  // no primary key
	})}
	reader := &mockReader{records: map[string]domrec.Record{
		"1": book(t, "1"),
		"3": book(t, "3"),
	}}
	svc := New(eng, testMapper(t), reader)

	found, err := svc.Find(context.Background(), "Book", query.Spec{Condition: query.Equals("title", "t")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found.Records) != 2 || found.Records[0].ID() != "3" || found.Records[1].ID() != "1" {
		t.Errorf("records = %v", found.Records)
	}
	if found.Stale != 2 {
		t.Errorf("stale = %d, want 2", found.Stale)
	}
	if found.Result.TotalHits() != 4 {
		t.Errorf("total = %d", found.Result.TotalHits())
	}
	if len(reader.asked) != 3 {
		t.Errorf("asked = %v", reader.asked)
	}
}

func TestFind_NoHitsSkipsStore(t *testing.T) {
	eng := &mockEngine{res: result.New(0, 0, nil, nil)}
	reader := &mockReader{err: errors.New("must not be called")}
	svc := New(eng, testMapper(t), reader)

	found, err := svc.Find(context.Background(), "Book", query.Spec{Condition: query.Equals("title", "t")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found.Records) != 0 || reader.asked != nil {
		t.Errorf("records=%v asked=%v", found.Records, reader.asked)
	}
}

func TestFind_StoreFailure(t *testing.T) {
	storeErr := errors.New("redis down")
	eng := &mockEngine{res: result.New(1, 0, nil, []result.Hit{hit("Book:1", "1")})}
	svc := New(eng, testMapper(t), &mockReader{err: storeErr})

	if _, err := svc.Find(context.Background(), "Book", query.Spec{Condition: query.Equals("title", "t")}); !errors.Is(err, storeErr) {
		t.Errorf("expected store error, got %v", err)
	}
}

// projectingEngine returns only the stored fields named in fl.
type projectingEngine struct {
	docs []map[string]any
	fl   string
}

func (e *projectingEngine) Search(_ context.Context, params url.Values) (result.SearchResult, error) {
	e.fl = params.Get("fl")
	keep := strings.Split(e.fl, ",")
	hits := make([]result.Hit, 0, len(e.docs))
	for _, d := range e.docs {
		f := make(map[string]any)
		for _, k := range keep {
			if v, ok := d[k]; ok {
				f[k] = v
			}
		}
		hits = append(hits, result.NewHit(f))
	}
	return result.New(int64(len(hits)), 0, nil, hits), nil
}

func TestFind_WithFieldProjection(t *testing.T) {
	eng := &projectingEngine{docs: []map[string]any{
		{"id": "Book:1", "pk_s": "1", "type_s": "Book", "title_t": "Dune"},
	}}
	svc := New(eng, testMapper(t), &mockReader{records: map[string]domrec.Record{"1": book(t, "1")}})

	spec := query.Spec{Condition: query.Equals("title", "Dune"), Fields: []string{"title"}}
	found, err := svc.Find(context.Background(), "Book", spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng.fl != "title_t,id,pk_s" {
		t.Errorf("fl = %q", eng.fl)
	}
	if len(found.Records) != 1 || found.Records[0].ID() != "1" || found.Stale != 0 {
		t.Errorf("records=%v stale=%d", found.Records, found.Stale)
	}
	for h := range found.Result.Hits() {
		if h.ID() != "Book:1" {
			t.Errorf("hit id = %q", h.ID())
		}
	}
}

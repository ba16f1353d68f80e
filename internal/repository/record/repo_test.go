package record

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/solrsync/internal/db"
	"github.com/kailas-cloud/solrsync/internal/domain"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
)

func mustRecord(t *testing.T, typ, id string, fields map[string]any) domrec.Record {
	t.Helper()
	rec, err := domrec.New(typ, id, fields)
	if err != nil {
		t.Fatalf("record.New: %v", err)
	}
	return rec
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestRepo_SaveCreatesAndEncodes(t *testing.T) {
	var gotKey string
	var gotFields map[string]string
	s := &mockStore{
		hreplaceFn: func(_ context.Context, key string, fields map[string]string) error {
			gotKey, gotFields = key, fields
			return nil
		},
	}
	r := New(s)
	r.now = fixedNow

	rec := mustRecord(t, "Book", "1", map[string]any{"title": "Dune", "pages": 412, "tags": []string{"a", "b"}})
	created, err := r.Save(context.Background(), rec)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
	if gotKey != "solrsync:record:Book:1" {
		t.Errorf("key = %q", gotKey)
	}
	if gotFields["title"] != `"Dune"` || gotFields["pages"] != "412" || gotFields["tags"] != `["a","b"]` {
		t.Errorf("fields = %v", gotFields)
	}
	if gotFields[updatedAtField] != "2024-05-01T12:00:00Z" {
		t.Errorf("updated_at = %q", gotFields[updatedAtField])
	}
}

func TestRepo_SaveExisting(t *testing.T) {
	s := &mockStore{existsFn: func(context.Context, string) (bool, error) { return true, nil }}
	created, err := New(s).Save(context.Background(), mustRecord(t, "Book", "1", nil))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if created {
		t.Error("expected created=false")
	}
}

func TestRepo_SaveRejectsReservedField(t *testing.T) {
	called := false
	s := &mockStore{hreplaceFn: func(context.Context, string, map[string]string) error {
		called = true
		return nil
	}}
	_, err := New(s).Save(context.Background(), mustRecord(t, "Book", "1", map[string]any{"__updated_at": "x"}))
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	if called {
		t.Error("store must not be written")
	}
}

func TestRepo_SaveStoreError(t *testing.T) {
	storeErr := &db.Error{Op: db.OpHSet, Err: errors.New("down")}
	s := &mockStore{hreplaceFn: func(context.Context, string, map[string]string) error { return storeErr }}
	if _, err := New(s).Save(context.Background(), mustRecord(t, "Book", "1", nil)); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRepo_GetDecodes(t *testing.T) {
	s := &mockStore{hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
		if key != "solrsync:record:Book:1" {
			t.Errorf("key = %q", key)
		}
		return map[string]string{
			"title":        `"Dune"`,
			"pages":        "412",
			"tags":         `["a","b"]`,
			updatedAtField: "2024-05-01T12:00:00Z",
		}, nil
	}}

	rec, err := New(s).Get(context.Background(), "Book", "1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Type() != "Book" || rec.ID() != "1" {
		t.Errorf("got %s/%s", rec.Type(), rec.ID())
	}
	if v, _ := rec.Field("title"); v != "Dune" {
		t.Errorf("title = %#v", v)
	}
	if v, _ := rec.Field("pages"); v != json.Number("412") {
		t.Errorf("pages = %#v", v)
	}
	if tags, _ := rec.Field("tags"); len(tags.([]any)) != 2 {
		t.Errorf("tags = %#v", tags)
	}
	if _, ok := rec.Field(updatedAtField); ok {
		t.Error("reserved field must not surface")
	}
}

func TestRepo_GetNotFound(t *testing.T) {
	if _, err := New(&mockStore{}).Get(context.Background(), "Book", "1"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepo_GetCorruptField(t *testing.T) {
	s := &mockStore{hgetAllFn: func(context.Context, string) (map[string]string, error) {
		return map[string]string{"title": "{not json"}, nil
	}}
	if _, err := New(s).Get(context.Background(), "Book", "1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRepo_GetMultiSkipsMissing(t *testing.T) {
	s := &mockStore{hgetAllMultiFn: func(_ context.Context, keys []string) ([]map[string]string, error) {
		if len(keys) != 3 || keys[1] != "solrsync:record:Book:2" {
			t.Errorf("keys = %v", keys)
		}
		return []map[string]string{
			{"title": `"Dune"`},
			{},
			{"title": `"Emma"`},
		}, nil
	}}

	got, err := New(s).GetMulti(context.Background(), "Book", []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("GetMulti: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if _, ok := got["2"]; ok {
		t.Error("missing record must be absent")
	}
	if v, _ := got["3"].Field("title"); v != "Emma" {
		t.Errorf("title = %#v", v)
	}
}

func TestRepo_SaveMulti(t *testing.T) {
	var items []db.HashSetItem
	s := &mockStore{hreplaceMultiFn: func(_ context.Context, in []db.HashSetItem) error {
		items = in
		return nil
	}}
	recs := []domrec.Record{
		mustRecord(t, "Book", "1", map[string]any{"title": "Dune"}),
		mustRecord(t, "Book", "2", map[string]any{"title": "Emma"}),
	}
	if err := New(s).SaveMulti(context.Background(), recs); err != nil {
		t.Fatalf("SaveMulti: %v", err)
	}
	if len(items) != 2 || items[1].Key != "solrsync:record:Book:2" || items[1].Fields["title"] != `"Emma"` {
		t.Errorf("items = %+v", items)
	}
}

func TestRepo_Delete(t *testing.T) {
	deleted := ""
	s := &mockStore{
		existsFn: func(context.Context, string) (bool, error) { return true, nil },
		delFn: func(_ context.Context, key string) error {
			deleted = key
			return nil
		},
	}
	if err := New(s).Delete(context.Background(), "Book", "1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != "solrsync:record:Book:1" {
		t.Errorf("deleted %q", deleted)
	}

	if err := New(&mockStore{}).Delete(context.Background(), "Book", "1"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepo_ScanIDs(t *testing.T) {
	s := &mockStore{scanFn: func(_ context.Context, pattern string, count int64, fn func([]string) error) error {
		if pattern != "solrsync:record:Book:*" || count != 2 {
			t.Errorf("pattern=%q count=%d", pattern, count)
		}
		if err := fn([]string{"solrsync:record:Book:1", "solrsync:record:Book:2"}); err != nil {
			return err
		}
		return fn([]string{"solrsync:record:Book:3"})
	}}

	var batches [][]string
	err := New(s).ScanIDs(context.Background(), "Book", 2, func(ids []string) error {
		batches = append(batches, ids)
		return nil
	})
	if err != nil {
		t.Fatalf("ScanIDs: %v", err)
	}
	if len(batches) != 2 || batches[0][1] != "2" || batches[1][0] != "3" {
		t.Errorf("batches = %v", batches)
	}
}

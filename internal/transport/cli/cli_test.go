package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/solrsync/internal/domain"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
)

// --- Mocks ---

type mockIndex struct {
	healthy  bool
	err      error
	queries  []string
	commits  int
	optimize int
}

func (m *mockIndex) Healthy(context.Context) bool { return m.healthy }

func (m *mockIndex) Commit(context.Context) error {
	m.commits++
	return m.err
}

func (m *mockIndex) Optimize(context.Context) error {
	m.optimize++
	return m.err
}

func (m *mockIndex) DeleteByQuery(_ context.Context, q string) error {
	m.queries = append(m.queries, q)
	return m.err
}

type mockRebuilder struct {
	recordType string
	batchSize  int
	status     domrec.RebuildStatus
	err        error
}

func (m *mockRebuilder) Rebuild(_ context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error) {
	m.recordType, m.batchSize = recordType, batchSize
	return m.status, m.err
}

type mockSearcher struct {
	spec query.Spec
	res  result.SearchResult
	err  error
}

func (m *mockSearcher) Search(_ context.Context, _ string, spec query.Spec) (result.SearchResult, error) {
	m.spec = spec
	return m.res, m.err
}

// --- Helpers ---

func newDeps() (*Deps, *mockIndex, *mockRebuilder, *mockSearcher) {
	idx, reb, srch := &mockIndex{healthy: true}, &mockRebuilder{}, &mockSearcher{}
	return &Deps{Index: idx, Records: reb, Search: srch, Types: []string{"Author", "Book"}}, idx, reb, srch
}

func execute(t *testing.T, deps *Deps, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(func(context.Context, string, string) (*Deps, error) {
		return deps, nil
	}, "local", "1.2.3")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// --- Tests ---

func TestPing(t *testing.T) {
	deps, idx, _, _ := newDeps()

	out, err := execute(t, deps, "ping")
	if err != nil || !strings.Contains(out, "OK") {
		t.Fatalf("out = %q, err = %v", out, err)
	}

	idx.healthy = false
	if _, err := execute(t, deps, "ping"); !errors.Is(err, errUnhealthy) {
		t.Errorf("err = %v, want errUnhealthy", err)
	}
}

func TestCommitAndOptimize(t *testing.T) {
	deps, idx, _, _ := newDeps()

	if _, err := execute(t, deps, "commit"); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, deps, "optimize"); err != nil {
		t.Fatal(err)
	}
	if idx.commits != 1 || idx.optimize != 1 {
		t.Errorf("commits = %d, optimize = %d", idx.commits, idx.optimize)
	}

	idx.err = &domain.TransportError{Op: "commit", StatusCode: 500}
	if _, err := execute(t, deps, "commit"); !errors.Is(err, domain.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestClear(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantQuery string
		wantErr   error
	}{
		{"one type", []string{"clear", "Book"}, "type_s:Book", nil},
		{"all", []string{"clear", "--all"}, "*:*", nil},
		{"unknown type", []string{"clear", "Film"}, "", domain.ErrUnknownType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps, idx, _, _ := newDeps()
			_, err := execute(t, deps, tc.args...)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				if len(idx.queries) != 0 {
					t.Error("nothing should be deleted")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(idx.queries) != 1 || idx.queries[0] != tc.wantQuery {
				t.Errorf("queries = %v, want [%s]", idx.queries, tc.wantQuery)
			}
			if idx.commits != 1 {
				t.Errorf("commits = %d, want 1", idx.commits)
			}
		})
	}
}

func TestClear_NeedsTarget(t *testing.T) {
	for _, args := range [][]string{{"clear"}, {"clear", "Book", "--all"}} {
		deps, idx, _, _ := newDeps()
		if _, err := execute(t, deps, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
		if len(idx.queries) != 0 {
			t.Errorf("%v: nothing should be deleted", args)
		}
	}
}

func TestRebuild(t *testing.T) {
	deps, _, reb, _ := newDeps()
	reb.status = domrec.RebuildStatus{Type: "Book", State: domrec.RebuildDone, Indexed: 9, Skipped: 1}

	out, err := execute(t, deps, "rebuild", "Book", "--batch-size", "50")
	if err != nil {
		t.Fatal(err)
	}
	if reb.recordType != "Book" || reb.batchSize != 50 {
		t.Errorf("rebuild(%s, %d)", reb.recordType, reb.batchSize)
	}
	if !strings.Contains(out, "Book: done, indexed 9, skipped 1") {
		t.Errorf("out = %q", out)
	}
}

func TestRebuild_Errors(t *testing.T) {
	deps, _, reb, _ := newDeps()
	reb.err = domain.ErrRebuildRunning

	if _, err := execute(t, deps, "rebuild", "Book"); !errors.Is(err, domain.ErrRebuildRunning) {
		t.Errorf("err = %v, want ErrRebuildRunning", err)
	}
	if _, err := execute(t, deps, "rebuild", "Film"); !errors.Is(err, domain.ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
	if _, err := execute(t, deps, "rebuild", "Book", "-b", "-5"); err == nil {
		t.Error("expected error for negative batch size")
	}
}

func TestSearch(t *testing.T) {
	deps, _, _, srch := newDeps()
	srch.res = result.New(3, 0, nil, []result.Hit{
		result.NewHit(map[string]any{"id": "Book:1", "title_t": "Dune", "score": 1.5}),
	})

	out, err := execute(t, deps, "search", "Book",
		"title=Dune", "year=1960..", "title=Du*", "title~Dume",
		"--any", "--sort", "year:desc", "-n", "5")
	if err != nil {
		t.Fatal(err)
	}

	q, err := query.Translate(srch.spec)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if want := "(title:Dune OR year:[1960 TO *] OR title:Du* OR title:Dume~)"; q != want {
		t.Errorf("q = %s, want %s", q, want)
	}
	if srch.spec.Limit != 5 || len(srch.spec.Sort) != 1 || srch.spec.Sort[0].Direction != query.Desc {
		t.Errorf("spec = %+v", srch.spec)
	}
	for _, want := range []string{"1-1 of 3", "[1] Book:1 (1.50)", "title_t: Dune"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSearch_SortDirectionIgnoresCase(t *testing.T) {
	deps, _, _, srch := newDeps()
	srch.res = result.New(0, 0, nil, nil)

	if _, err := execute(t, deps, "search", "Book", "title=Dune", "--sort", "year:DESC,title:Asc"); err != nil {
		t.Fatal(err)
	}
	want := []query.Sort{{Field: "year", Direction: query.Desc}, {Field: "title", Direction: query.Asc}}
	if len(srch.spec.Sort) != len(want) {
		t.Fatalf("sort = %+v", srch.spec.Sort)
	}
	for i, s := range want {
		if srch.spec.Sort[i] != s {
			t.Errorf("sort[%d] = %+v, want %+v", i, srch.spec.Sort[i], s)
		}
	}
}

func TestSearch_JSON(t *testing.T) {
	deps, _, _, srch := newDeps()
	srch.res = result.New(1, 0, nil, []result.Hit{result.NewHit(map[string]any{"id": "Book:1"})})

	out, err := execute(t, deps, "search", "Book", "title=Dune", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"total": 1`) || !strings.Contains(out, `"id": "Book:1"`) {
		t.Errorf("out = %s", out)
	}
}

func TestSearch_BadCondition(t *testing.T) {
	deps, _, _, _ := newDeps()
	if _, err := execute(t, deps, "search", "Book", "=Dune"); !errors.Is(err, domain.ErrTranslation) {
		t.Errorf("err = %v, want ErrTranslation", err)
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"title=Dune", "title:Dune"},
		{"title=big fish", `title:"big fish"`},
		{"year=..2000", "year:[* TO 2000]"},
		{"name~jon", "name:jon~"},
		{"url=a~b", `url:a\~b`},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			cond, err := parseCondition(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			got, err := query.Translator{}.Condition(cond)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestVersion_SkipsLoad(t *testing.T) {
	root := NewRootCmd(func(context.Context, string, string) (*Deps, error) {
		return nil, errors.New("no config")
	}, "local", "1.2.3")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1.2.3") {
		t.Errorf("out = %q", buf.String())
	}
}

func TestLoadError(t *testing.T) {
	var gotPath, gotEnv string
	root := NewRootCmd(func(_ context.Context, path, env string) (*Deps, error) {
		gotPath, gotEnv = path, env
		return nil, errors.New("no config")
	}, "local", "dev")
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", "/tmp/x.yaml", "--env", "prod", "ping"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "no config") {
		t.Errorf("err = %v", err)
	}
	if gotPath != "/tmp/x.yaml" || gotEnv != "prod" {
		t.Errorf("loader got (%q, %q)", gotPath, gotEnv)
	}
}

package solrsync

import (
	"context"

	dombatch "github.com/kailas-cloud/solrsync/internal/domain/batch"
	domrec "github.com/kailas-cloud/solrsync/internal/domain/record"
	"github.com/kailas-cloud/solrsync/internal/domain/search/query"
	"github.com/kailas-cloud/solrsync/internal/domain/search/result"
	searchuc "github.com/kailas-cloud/solrsync/internal/usecase/search"
)

// --- recordUseCase mock ---

type mockRecordUC struct {
	saveFn     func(ctx context.Context, rec domrec.Record) (bool, error)
	saveManyFn func(ctx context.Context, recordType string, recs []domrec.Record) []dombatch.Result
	getFn      func(ctx context.Context, recordType, id string) (domrec.Record, error)
	patchFn    func(ctx context.Context, recordType, id string, p domrec.Patch) (domrec.Record, error)
	destroyFn  func(ctx context.Context, recordType, id string) error
	flushFn    func(ctx context.Context) error
	rebuildFn  func(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error)
}

func (m *mockRecordUC) Save(ctx context.Context, rec domrec.Record) (bool, error) {
	return m.saveFn(ctx, rec)
}

func (m *mockRecordUC) SaveMany(ctx context.Context, recordType string, recs []domrec.Record) []dombatch.Result {
	return m.saveManyFn(ctx, recordType, recs)
}

func (m *mockRecordUC) Get(ctx context.Context, recordType, id string) (domrec.Record, error) {
	return m.getFn(ctx, recordType, id)
}

func (m *mockRecordUC) Patch(ctx context.Context, recordType, id string, p domrec.Patch) (domrec.Record, error) {
	return m.patchFn(ctx, recordType, id, p)
}

func (m *mockRecordUC) Destroy(ctx context.Context, recordType, id string) error {
	return m.destroyFn(ctx, recordType, id)
}

func (m *mockRecordUC) Flush(ctx context.Context) error {
	return m.flushFn(ctx)
}

func (m *mockRecordUC) Rebuild(ctx context.Context, recordType string, batchSize int) (domrec.RebuildStatus, error) {
	return m.rebuildFn(ctx, recordType, batchSize)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, recordType string, spec query.Spec) (result.SearchResult, error)
	findFn   func(ctx context.Context, recordType string, spec query.Spec) (searchuc.Found, error)
}

func (m *mockSearchUC) Search(ctx context.Context, recordType string, spec query.Spec) (result.SearchResult, error) {
	return m.searchFn(ctx, recordType, spec)
}

func (m *mockSearchUC) Find(ctx context.Context, recordType string, spec query.Spec) (searchuc.Found, error) {
	return m.findFn(ctx, recordType, spec)
}

// --- lifecycle mocks ---

type mockCloser struct {
	err    error
	closed bool
}

func (m *mockCloser) Close(context.Context) error {
	m.closed = true
	return m.err
}

type mockPinger struct {
	pingErr error
	healthy bool
}

func (m *mockPinger) Ping(context.Context) error   { return m.pingErr }
func (m *mockPinger) Healthy(context.Context) bool { return m.healthy }

func newTestClient(records recordUseCase, search searchUseCase) *Client {
	return &Client{records: records, search: search, schemas: newRegistry()}
}

package record

import (
	"context"

	"github.com/kailas-cloud/solrsync/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hreplaceFn      func(ctx context.Context, key string, fields map[string]string) error
	hreplaceMultiFn func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn       func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn  func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn           func(ctx context.Context, key string) error
	existsFn        func(ctx context.Context, key string) (bool, error)
	scanFn          func(ctx context.Context, pattern string, count int64, fn func([]string) error) error
}

func (m *mockStore) HReplace(ctx context.Context, key string, fields map[string]string) error {
	if m.hreplaceFn != nil {
		return m.hreplaceFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HReplaceMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hreplaceMultiFn != nil {
		return m.hreplaceMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string, count int64, fn func([]string) error) error {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern, count, fn)
	}
	return nil
}

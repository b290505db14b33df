package docstore

import (
	"context"
	"testing"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonSetFn      func(ctx context.Context, key, path string, data []byte) error
	jsonSetNXFn    func(ctx context.Context, key string, data []byte) (bool, error)
	jsonSetMultiFn func(ctx context.Context, items []db.JSONSetItem) []error
	jsonGetFn      func(ctx context.Context, key string) ([]byte, error)
	jsonMGetFn     func(ctx context.Context, keys []string) ([][]byte, error)
	delFn          func(ctx context.Context, keys ...string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	arrAddFn       func(ctx context.Context, key, path string, value []byte) (bool, error)
	arrRemoveFn    func(ctx context.Context, key, path string, values ...[]byte) (int, error)
	scanPageFn     func(ctx context.Context, pattern, cursor string, count int) ([]string, string, error)
	searchFn       func(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

func (m *mockStore) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, path, data)
	}
	return nil
}

func (m *mockStore) JSONSetNX(ctx context.Context, key string, data []byte) (bool, error) {
	if m.jsonSetNXFn != nil {
		return m.jsonSetNXFn(ctx, key, data)
	}
	return true, nil
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error {
	if m.jsonSetMultiFn != nil {
		return m.jsonSetMultiFn(ctx, items)
	}
	return make([]error, len(items))
}

func (m *mockStore) JSONGet(ctx context.Context, key string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) JSONMGet(ctx context.Context, keys []string) ([][]byte, error) {
	if m.jsonMGetFn != nil {
		return m.jsonMGetFn(ctx, keys)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) JSONArrAddUnique(ctx context.Context, key, path string, value []byte) (bool, error) {
	if m.arrAddFn != nil {
		return m.arrAddFn(ctx, key, path, value)
	}
	return true, nil
}

func (m *mockStore) JSONArrRemove(ctx context.Context, key, path string, values ...[]byte) (int, error) {
	if m.arrRemoveFn != nil {
		return m.arrRemoveFn(ctx, key, path, values...)
	}
	return len(values), nil
}

func (m *mockStore) ScanPage(
	ctx context.Context, pattern, cursor string, count int,
) ([]string, string, error) {
	if m.scanPageFn != nil {
		return m.scanPageFn(ctx, pattern, cursor, count)
	}
	return nil, "", nil
}

func (m *mockStore) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestClient(t *testing.T) (*Client, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, db.NewKeyspace("")), ms
}

package tag

import (
	"context"
	"testing"

	"github.com/kailas-cloud/tagdex/internal/domain"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
)

// mockDocs implements the consumer interface for tests.
type mockDocs struct {
	getFn     func(ctx context.Context, collection, id string, dst any) error
	getManyFn func(ctx context.Context, collection string, ids []string) ([][]byte, error)
	indexFn   func(ctx context.Context, collection, id string, body any, onlyIfAbsent bool) (bool, error)
	updateFn  func(ctx context.Context, collection, id string, fields map[string]any) error
	deleteFn  func(ctx context.Context, collection, id string) error
	searchFn  func(ctx context.Context, collection, query, cursor string, limit int) ([]docstore.Hit, string, error)
	scanFn    func(ctx context.Context, collection, cursor string, limit int) ([]docstore.Hit, string, error)
}

func (m *mockDocs) Get(ctx context.Context, collection, id string, dst any) error {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id, dst)
	}
	return domain.ErrNotFound
}

func (m *mockDocs) GetMany(ctx context.Context, collection string, ids []string) ([][]byte, error) {
	if m.getManyFn != nil {
		return m.getManyFn(ctx, collection, ids)
	}
	return make([][]byte, len(ids)), nil
}

func (m *mockDocs) Index(ctx context.Context, collection, id string, body any, onlyIfAbsent bool) (bool, error) {
	if m.indexFn != nil {
		return m.indexFn(ctx, collection, id, body, onlyIfAbsent)
	}
	return true, nil
}

func (m *mockDocs) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, collection, id, fields)
	}
	return nil
}

func (m *mockDocs) Delete(ctx context.Context, collection, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, collection, id)
	}
	return nil
}

func (m *mockDocs) Search(
	ctx context.Context, collection, query, cursor string, limit int,
) ([]docstore.Hit, string, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, collection, query, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockDocs) Scan(
	ctx context.Context, collection, cursor string, limit int,
) ([]docstore.Hit, string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, collection, cursor, limit)
	}
	return nil, "", nil
}

func newTestRepo(t *testing.T) (*Repo, *mockDocs) {
	t.Helper()
	md := &mockDocs{}
	return New(md), md
}

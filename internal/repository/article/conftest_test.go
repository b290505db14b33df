package article

import (
	"context"
	"testing"

	"github.com/kailas-cloud/tagdex/internal/domain"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
)

// mockDocs implements the consumer interface for tests.
type mockDocs struct {
	getFn       func(ctx context.Context, collection, id string, dst any) error
	getManyFn   func(ctx context.Context, collection string, ids []string) ([][]byte, error)
	bulkIndexFn func(ctx context.Context, collection string, docs []docstore.Doc) []batch.Result
	arrAddFn    func(ctx context.Context, collection, id, field string, value any) (bool, error)
	arrRemoveFn func(ctx context.Context, collection, id, field string, values ...any) (int, error)
	scanFn      func(ctx context.Context, collection, cursor string, limit int) ([]docstore.Hit, string, error)
	searchIDsFn func(ctx context.Context, collection, query, cursor string, limit int) ([]string, string, error)
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

func (m *mockDocs) BulkIndex(ctx context.Context, collection string, docs []docstore.Doc) []batch.Result {
	if m.bulkIndexFn != nil {
		return m.bulkIndexFn(ctx, collection, docs)
	}
	out := make([]batch.Result, len(docs))
	for i, d := range docs {
		out[i] = batch.NewApplied(d.ID)
	}
	return out
}

func (m *mockDocs) ArrayAdd(ctx context.Context, collection, id, field string, value any) (bool, error) {
	if m.arrAddFn != nil {
		return m.arrAddFn(ctx, collection, id, field, value)
	}
	return true, nil
}

func (m *mockDocs) ArrayRemove(ctx context.Context, collection, id, field string, values ...any) (int, error) {
	if m.arrRemoveFn != nil {
		return m.arrRemoveFn(ctx, collection, id, field, values...)
	}
	return len(values), nil
}

func (m *mockDocs) Scan(
	ctx context.Context, collection, cursor string, limit int,
) ([]docstore.Hit, string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, collection, cursor, limit)
	}
	return nil, "", nil
}

func (m *mockDocs) SearchIDs(
	ctx context.Context, collection, query, cursor string, limit int,
) ([]string, string, error) {
	if m.searchIDsFn != nil {
		return m.searchIDsFn(ctx, collection, query, cursor, limit)
	}
	return nil, "", nil
}

func newTestRepo(t *testing.T) (*Repo, *mockDocs) {
	t.Helper()
	md := &mockDocs{}
	return New(md), md
}

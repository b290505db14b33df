package tagref

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/tagdex/internal/db"
	"github.com/kailas-cloud/tagdex/internal/domain"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	sets map[string][]string
	err  error
	// repeat is appended to every scan, as SCAN and cluster replicas may report keys twice
	repeat []string
}

func (m *mockStore) SAdd(_ context.Context, key string, members ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, mem := range members {
		if !slices.Contains(m.sets[key], mem) {
			m.sets[key] = append(m.sets[key], mem)
		}
	}
	return nil
}

func (m *mockStore) SRem(_ context.Context, key string, members ...string) error {
	if m.err != nil {
		return m.err
	}
	m.sets[key] = slices.DeleteFunc(m.sets[key], func(s string) bool { return slices.Contains(members, s) })
	return nil
}

func (m *mockStore) SMembers(_ context.Context, key string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sets[key], nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.sets, k)
	}
	return m.err
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if pattern != "tagdex:tagrefs:*" {
		return nil, errors.New("unexpected pattern " + pattern)
	}
	var keys []string
	for k := range m.sets {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return append(keys, m.repeat...), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{sets: map[string][]string{}}
	return New(ms, db.NewKeyspace("")), ms
}

func TestAddRemoveMembers(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Add(ctx, "t1", 1, 2, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.Add(ctx, "t1", 2); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if err := repo.Remove(ctx, "t1", 2); err != nil {
		t.Fatalf("remove: %v", err)
	}

	ms.sets["tagdex:tagrefs:t1"] = append(ms.sets["tagdex:tagrefs:t1"], "garbage")
	ids, err := repo.Members(ctx, "t1")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if !slices.Equal(ids, []int64{1, 3}) {
		t.Errorf("members = %v, want [1 3]", ids)
	}
}

func TestAdd_NoIDsIsNoop(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.err = errors.New("must not be called")
	if err := repo.Add(context.Background(), "t1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDropAndTagIDs(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	_ = repo.Add(ctx, "a", 1)
	_ = repo.Add(ctx, "b", 2)

	if err := repo.Drop(ctx, "a"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	ids, err := repo.TagIDs(ctx)
	if err != nil {
		t.Fatalf("tag ids: %v", err)
	}
	if !slices.Equal(ids, []string{"b"}) {
		t.Errorf("tag ids = %v", ids)
	}
}

func TestTagIDs_Deduplicated(t *testing.T) {
	repo, ms := newTestRepo(t)
	ctx := context.Background()
	_ = repo.Add(ctx, "b", 1)
	_ = repo.Add(ctx, "a", 2)
	ms.repeat = []string{"tagdex:tagrefs:b"}

	ids, err := repo.TagIDs(ctx)
	if err != nil {
		t.Fatalf("tag ids: %v", err)
	}
	if !slices.Equal(ids, []string{"a", "b"}) {
		t.Errorf("tag ids = %v, want [a b]", ids)
	}
}

func TestUnavailable(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.err = &db.Error{Op: db.OpSAdd, Err: db.ErrUnavailable}
	err := repo.Add(context.Background(), "t1", 1)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

package article

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
)

const storedArticle = `{"id":42,"heading":"Rust","article_text":"body","url":"http://x",` +
	`"keywords":[{"word":"rust","similarity":0.9}],` +
	`"topic":{"topic_name":"langs","probability":0.7,"x":1.5,"y":-2},"tags":["t1","t1","t2"]}`

func testArticle(t *testing.T) domart.Article {
	t.Helper()
	a, err := domart.New(42, "Rust", "body", "http://x",
		[]domart.Keyword{{Word: "rust", Similarity: 0.9}},
		domart.Topic{Name: "langs", Probability: 0.7, X: 1.5, Y: -2})
	if err != nil {
		t.Fatalf("new article: %v", err)
	}
	return a
}

// --- Get ---

func TestGet_Success(t *testing.T) {
	repo, md := newTestRepo(t)
	md.getFn = func(_ context.Context, collection, id string, dst any) error {
		if collection != "articles" || id != "42" {
			t.Errorf("unexpected get %s/%s", collection, id)
		}
		return json.Unmarshal([]byte(storedArticle), dst)
	}

	a, err := repo.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID() != 42 || a.Heading() != "Rust" || a.URL() != "http://x" {
		t.Errorf("unexpected article: %+v", a)
	}
	if a.Topic().Name != "langs" || a.Topic().Y != -2 {
		t.Errorf("unexpected topic: %+v", a.Topic())
	}
	if len(a.Tags()) != 2 {
		t.Errorf("duplicate stored tags must collapse, got %v", a.Tags())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	_, err := repo.Get(context.Background(), 1)
	if !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestGetMany_Positional(t *testing.T) {
	repo, md := newTestRepo(t)
	md.getManyFn = func(_ context.Context, _ string, ids []string) ([][]byte, error) {
		if len(ids) != 2 || ids[0] != "42" || ids[1] != "7" {
			t.Errorf("unexpected ids: %v", ids)
		}
		return [][]byte{[]byte(storedArticle), nil}, nil
	}

	got, err := repo.GetMany(context.Background(), []int64{42, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] == nil || got[0].ID() != 42 {
		t.Errorf("expected article 42, got %+v", got[0])
	}
	if got[1] != nil {
		t.Errorf("expected nil for missing article, got %+v", got[1])
	}
}

// --- AddTag / RemoveTags ---

func TestAddTag(t *testing.T) {
	repo, md := newTestRepo(t)
	md.arrAddFn = func(_ context.Context, collection, id, field string, value any) (bool, error) {
		if collection != "articles" || id != "42" || field != "tags" || value != "t9" {
			t.Errorf("unexpected add %s/%s %s=%v", collection, id, field, value)
		}
		return true, nil
	}

	added, err := repo.AddTag(context.Background(), 42, "t9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !added {
		t.Error("expected added")
	}
}

func TestAddTag_Missing(t *testing.T) {
	repo, md := newTestRepo(t)
	md.arrAddFn = func(context.Context, string, string, string, any) (bool, error) {
		return false, domain.ErrNotFound
	}
	if _, err := repo.AddTag(context.Background(), 42, "t9"); !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestRemoveTags(t *testing.T) {
	repo, md := newTestRepo(t)
	md.arrRemoveFn = func(_ context.Context, _, id, field string, values ...any) (int, error) {
		if id != "42" || field != "tags" || len(values) != 2 || values[0] != "t1" || values[1] != "t2" {
			t.Errorf("unexpected remove %s %s %v", id, field, values)
		}
		return 1, nil
	}

	n, err := repo.RemoveTags(context.Background(), 42, "t1", "t2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
}

func TestRemoveTags_Missing(t *testing.T) {
	repo, md := newTestRepo(t)
	md.arrRemoveFn = func(context.Context, string, string, string, ...any) (int, error) {
		return 0, domain.ErrNotFound
	}
	if _, err := repo.RemoveTags(context.Background(), 42, "t1"); !errors.Is(err, domain.ErrArticleNotFound) {
		t.Errorf("expected ErrArticleNotFound, got %v", err)
	}
}

// --- BulkSave ---

func TestBulkSave_StoredShape(t *testing.T) {
	repo, md := newTestRepo(t)
	md.bulkIndexFn = func(_ context.Context, _ string, docs []docstore.Doc) []batch.Result {
		data, err := json.Marshal(docs[0].Body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if _, ok := m["article_text"]; !ok {
			t.Errorf("missing article_text: %s", data)
		}
		if tags, ok := m["tags"].([]any); !ok || len(tags) != 0 {
			t.Errorf("tags must be an empty array: %s", data)
		}
		topic, _ := m["topic"].(map[string]any)
		if topic["topic_name"] != "langs" {
			t.Errorf("unexpected topic: %s", data)
		}
		return []batch.Result{batch.NewApplied(docs[0].ID)}
	}

	results := repo.BulkSave(context.Background(), []domart.Article{testArticle(t)})
	if len(results) != 1 || results[0].ID() != "42" {
		t.Errorf("unexpected results: %+v", results)
	}
}

// --- List / IDsByTag ---

func TestList(t *testing.T) {
	repo, md := newTestRepo(t)
	md.scanFn = func(_ context.Context, _, cursor string, limit int) ([]docstore.Hit, string, error) {
		if cursor != "5" || limit != 10 {
			t.Errorf("cursor=%q limit=%d", cursor, limit)
		}
		return []docstore.Hit{{ID: "42", Source: []byte(storedArticle)}}, "9", nil
	}

	got, next, err := repo.List(context.Background(), "5", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID() != 42 || next != "9" {
		t.Errorf("got %d articles, next %q", len(got), next)
	}
}

func TestIDsByTag(t *testing.T) {
	repo, md := newTestRepo(t)
	md.searchIDsFn = func(_ context.Context, _, query, _ string, _ int) ([]string, string, error) {
		if query != `@tags:{0b6e\-41}` {
			t.Errorf("unexpected query: %s", query)
		}
		return []string{"3", "junk", "8"}, "", nil
	}

	ids, _, err := repo.IDsByTag(context.Background(), "0b6e-41", "", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 8 {
		t.Errorf("ids = %v", ids)
	}
}

package article

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tagdex/internal/db"
	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
	"github.com/kailas-cloud/tagdex/internal/repository/schema"
)

// documents is the consumer interface over the document client (ISP).
type documents interface {
	Get(ctx context.Context, collection, id string, dst any) error
	GetMany(ctx context.Context, collection string, ids []string) ([][]byte, error)
	BulkIndex(ctx context.Context, collection string, docs []docstore.Doc) []batch.Result
	ArrayAdd(ctx context.Context, collection, id, field string, value any) (bool, error)
	ArrayRemove(ctx context.Context, collection, id, field string, values ...any) (int, error)
	Scan(ctx context.Context, collection, cursor string, limit int) ([]docstore.Hit, string, error)
	SearchIDs(ctx context.Context, collection, query, cursor string, limit int) ([]string, string, error)
}

// Repo implements article storage on the articles collection.
type Repo struct {
	docs documents
}

// New creates an article repository.
func New(d documents) *Repo {
	return &Repo{docs: d}
}

// Get returns an article by id.
func (r *Repo) Get(ctx context.Context, id int64) (domart.Article, error) {
	var d articleDoc
	if err := r.docs.Get(ctx, schema.Articles, domart.FormatID(id), &d); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domart.Article{}, domain.ErrArticleNotFound
		}
		return domart.Article{}, err
	}
	return d.toDomain(), nil
}

// GetMany returns articles positionally; missing ids yield nil entries.
func (r *Repo) GetMany(ctx context.Context, ids []int64) ([]*domart.Article, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = domart.FormatID(id)
	}
	raws, err := r.docs.GetMany(ctx, schema.Articles, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*domart.Article, len(ids))
	for i, raw := range raws {
		if i >= len(out) || raw == nil {
			continue
		}
		var d articleDoc
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("decode article %d: %w", ids[i], err)
		}
		a := d.toDomain()
		out[i] = &a
	}
	return out, nil
}

// AddTag adds tagID to the stored tag set of an article in a single server-side edit.
// Returns false if the tag was already there.
func (r *Repo) AddTag(ctx context.Context, id int64, tagID string) (bool, error) {
	added, err := r.docs.ArrayAdd(ctx, schema.Articles, domart.FormatID(id), "tags", tagID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, domain.ErrArticleNotFound
	}
	return added, err
}

// RemoveTags drops tagIDs from the stored tag set of an article without touching
// its other tags. Returns how many were removed.
func (r *Repo) RemoveTags(ctx context.Context, id int64, tagIDs ...string) (int, error) {
	values := make([]any, len(tagIDs))
	for i, t := range tagIDs {
		values[i] = t
	}
	n, err := r.docs.ArrayRemove(ctx, schema.Articles, domart.FormatID(id), "tags", values...)
	if errors.Is(err, domain.ErrNotFound) {
		return 0, domain.ErrArticleNotFound
	}
	return n, err
}

// BulkSave writes whole articles, replacing existing documents. One result per article.
func (r *Repo) BulkSave(ctx context.Context, articles []domart.Article) []batch.Result {
	docs := make([]docstore.Doc, len(articles))
	for i := range articles {
		docs[i] = docstore.Doc{ID: articles[i].Key(), Body: toDoc(&articles[i])}
	}
	return r.docs.BulkIndex(ctx, schema.Articles, docs)
}

// List returns a page of articles in storage order. Page sizes are approximate.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domart.Article, string, error) {
	hits, next, err := r.docs.Scan(ctx, schema.Articles, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list articles: %w", err)
	}
	out := make([]domart.Article, 0, len(hits))
	for _, h := range hits {
		var d articleDoc
		if err := json.Unmarshal(h.Source, &d); err != nil {
			return nil, "", fmt.Errorf("decode article %s: %w", h.ID, err)
		}
		out = append(out, d.toDomain())
	}
	return out, next, nil
}

// IDsByTag returns a page of ids of articles whose tag set contains tagID, as seen by the index.
func (r *Repo) IDsByTag(ctx context.Context, tagID, cursor string, limit int) ([]int64, string, error) {
	keys, next, err := r.docs.SearchIDs(ctx, schema.Articles, db.TagMatch("tags", tagID), cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("articles by tag %s: %w", tagID, err)
	}
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		id, err := domart.ParseID(k)
		if err != nil {
			continue // foreign key under the prefix
		}
		ids = append(ids, id)
	}
	return ids, next, nil
}

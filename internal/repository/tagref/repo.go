// Package tagref stores the reverse index from a tag to the articles that may carry it.
//
// The index is a superset of the article->tag relation: writers add the entry before
// appending the tag to an article and remove it after the tag has been removed.
package tagref

import (
	"context"
	"slices"

	"github.com/kailas-cloud/tagdex/internal/db"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
)

// store is the consumer interface for reverse-index sets (ISP).
type store interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the reverse index on one set per tag.
type Repo struct {
	store store
	ks    db.Keyspace
}

// New creates a reverse-index repository.
func New(s store, ks db.Keyspace) *Repo {
	return &Repo{store: s, ks: ks}
}

// Add records that the articles may reference tagID.
func (r *Repo) Add(ctx context.Context, tagID string, articleIDs ...int64) error {
	if len(articleIDs) == 0 {
		return nil
	}
	key := r.ks.RefsKey(tagID)
	if err := r.store.SAdd(ctx, key, formatIDs(articleIDs)...); err != nil {
		return docstore.Wrap("sadd "+key, err)
	}
	return nil
}

// Remove forgets the articles for tagID.
func (r *Repo) Remove(ctx context.Context, tagID string, articleIDs ...int64) error {
	if len(articleIDs) == 0 {
		return nil
	}
	key := r.ks.RefsKey(tagID)
	if err := r.store.SRem(ctx, key, formatIDs(articleIDs)...); err != nil {
		return docstore.Wrap("srem "+key, err)
	}
	return nil
}

// Members returns the article ids recorded for tagID. Malformed members are skipped.
func (r *Repo) Members(ctx context.Context, tagID string) ([]int64, error) {
	key := r.ks.RefsKey(tagID)
	raw, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, docstore.Wrap("smembers "+key, err)
	}
	ids := make([]int64, 0, len(raw))
	for _, m := range raw {
		id, err := domart.ParseID(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Drop deletes the whole reverse-index set of tagID.
func (r *Repo) Drop(ctx context.Context, tagID string) error {
	key := r.ks.RefsKey(tagID)
	if err := r.store.Del(ctx, key); err != nil {
		return docstore.Wrap("del "+key, err)
	}
	return nil
}

// TagIDs returns the sorted ids of every tag that has a reverse-index set.
func (r *Repo) TagIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, r.ks.RefsPattern())
	if err != nil {
		return nil, docstore.Wrap("scan tag refs", err)
	}
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = r.ks.TagIDFromRefsKey(k)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = domart.FormatID(id)
	}
	return out
}

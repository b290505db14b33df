package integrity

import (
	"context"
	"time"

	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// ArticleRepository pages through articles and repairs their tag sets. Repairs are
// element edits so tags attached after the page was read survive.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (domart.Article, error)
	List(ctx context.Context, cursor string, limit int) (articles []domart.Article, nextCursor string, err error)
	AddTag(ctx context.Context, id int64, tagID string) (bool, error)
	RemoveTags(ctx context.Context, id int64, tagIDs ...string) (int, error)
	IDsByTag(ctx context.Context, tagID, cursor string, limit int) (ids []int64, nextCursor string, err error)
}

// TagRepository reads and deletes tag records.
type TagRepository interface {
	GetMany(ctx context.Context, ids []string) ([]*domtag.Tag, error)
	List(ctx context.Context, cursor string, limit int) (tags []domtag.Tag, nextCursor string, err error)
	Delete(ctx context.Context, id string) error
}

// RefRepository maintains the reverse index.
type RefRepository interface {
	Add(ctx context.Context, tagID string, articleIDs ...int64) error
	Remove(ctx context.Context, tagID string, articleIDs ...int64) error
	Members(ctx context.Context, tagID string) ([]int64, error)
	Drop(ctx context.Context, tagID string) error
	TagIDs(ctx context.Context) ([]string, error)
}

// Observer receives the outcome of every sweep.
type Observer interface {
	ObserveSweep(d time.Duration, articles, refSets, duplicates, failures int, err error)
}

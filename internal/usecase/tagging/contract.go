package tagging

import (
	"context"

	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// ArticleRepository reads articles and edits their tag sets element by element.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (domart.Article, error)
	AddTag(ctx context.Context, id int64, tagID string) (bool, error)
	RemoveTags(ctx context.Context, id int64, tagIDs ...string) (int, error)
	BulkSave(ctx context.Context, articles []domart.Article) []batch.Result
	IDsByTag(ctx context.Context, tagID, cursor string, limit int) (ids []int64, nextCursor string, err error)
}

// TagRepository stores tag records.
type TagRepository interface {
	Create(ctx context.Context, t *domtag.Tag) (bool, error)
	FindByName(ctx context.Context, name string) ([]domtag.Tag, error)
	UpdateDescription(ctx context.Context, id, description string) error
	Delete(ctx context.Context, id string) error
}

// RefRepository maintains the tag -> articles reverse index.
type RefRepository interface {
	Add(ctx context.Context, tagID string, articleIDs ...int64) error
	Remove(ctx context.Context, tagID string, articleIDs ...int64) error
	Members(ctx context.Context, tagID string) ([]int64, error)
	Drop(ctx context.Context, tagID string) error
}

// Recorder observes mutation outcomes.
type Recorder interface {
	RecordMutation(op string, results []batch.Result)
}

package query

import (
	"context"

	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// ArticleReader reads articles.
type ArticleReader interface {
	Get(ctx context.Context, id int64) (domart.Article, error)
	GetMany(ctx context.Context, ids []int64) ([]*domart.Article, error)
	List(ctx context.Context, cursor string, limit int) (articles []domart.Article, nextCursor string, err error)
	IDsByTag(ctx context.Context, tagID, cursor string, limit int) (ids []int64, nextCursor string, err error)
}

// TagReader reads tags.
type TagReader interface {
	GetMany(ctx context.Context, ids []string) ([]*domtag.Tag, error)
	FindByName(ctx context.Context, name string) ([]domtag.Tag, error)
	FindByGram(ctx context.Context, gram, cursor string, limit int) (tags []domtag.Tag, nextCursor string, err error)
	List(ctx context.Context, cursor string, limit int) (tags []domtag.Tag, nextCursor string, err error)
}

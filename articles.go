package tagdex

import (
	"context"
	"time"

	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
)

// BulkLoadArticles writes enrichment records as articles with empty tag sets, replacing
// articles with the same id. Invalid records report StatusError and are not written.
func (c *Client) BulkLoadArticles(ctx context.Context, records []ArticleRecord) (_ []ItemResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.bulk_load", start, err) }()

	drafts := make([]domart.Draft, len(records))
	for i := range records {
		drafts[i] = records[i].draft()
	}
	results, err := c.tagging.BulkLoadArticles(ctx, drafts)
	items := fromResults(results)
	c.obs.observeItems("article.bulk_load", items)
	return items, err
}

// GetArticle returns one article.
func (c *Client) GetArticle(ctx context.Context, id int64) (_ Article, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.get", start, err) }()

	a, err := c.query.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	return fromArticle(&a), nil
}

// ListArticles returns a page of article summaries ordered by id and the cursor of
// the next page, empty on the last one. A limit of 0 uses the default page size.
func (c *Client) ListArticles(ctx context.Context, cursor string, limit int) (_ []ArticleSummary, _ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.list", start, err) }()

	page, next, err := c.query.ListArticles(ctx, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	return fromSummaries(page), next, nil
}

// AllArticles returns the summaries of every article.
func (c *Client) AllArticles(ctx context.Context) (_ []ArticleSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.all", start, err) }()

	all, err := c.query.AllArticles(ctx)
	if err != nil {
		return nil, err
	}
	return fromSummaries(all), nil
}

// ListTagsForArticles returns the tag names on the given articles. With dedupe each
// name appears once, otherwise once per article carrying it.
func (c *Client) ListTagsForArticles(ctx context.Context, ids []int64, dedupe bool) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.tags", start, err) }()
	return c.query.ListTagsForArticles(ctx, ids, dedupe)
}

// ListKeywordsForArticles returns the keywords of the given articles in order.
// Missing articles are skipped.
func (c *Client) ListKeywordsForArticles(ctx context.Context, ids []int64) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.keywords", start, err) }()
	return c.query.ListKeywordsForArticles(ctx, ids)
}

// ListAllKeywords returns the keywords of every article, duplicates included.
func (c *Client) ListAllKeywords(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.all_keywords", start, err) }()
	return c.query.ListAllKeywords(ctx)
}

// ResolveArticleURLs returns the URL of each article, positionally.
func (c *Client) ResolveArticleURLs(ctx context.Context, ids []int64) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("article.urls", start, err) }()
	return c.query.ResolveArticleURLs(ctx, ids)
}

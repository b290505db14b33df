package client

import (
	"context"
	"net/http"
	"strconv"
)

// ListArticles returns a page of article summaries.
func (c *Client) ListArticles(ctx context.Context, cursor string, limit int) (ArticlePage, error) {
	var page ArticlePage
	req := c.request(ctx)
	pageQuery(req, cursor, limit)
	err := send(req, http.MethodGet, apiPrefix+"/articles", &page)
	return page, err
}

// GetArticle returns one article.
func (c *Client) GetArticle(ctx context.Context, id int64) (Article, error) {
	var a Article
	req := c.request(ctx).SetPathParam("id", strconv.FormatInt(id, 10))
	err := send(req, http.MethodGet, apiPrefix+"/articles/{id}", &a)
	return a, err
}

// BulkLoadArticles writes enrichment records as untagged articles.
func (c *Client) BulkLoadArticles(ctx context.Context, records []ArticleRecord) (MutationResult, error) {
	var res MutationResult
	req := c.request(ctx).SetBody(bulkBody{Articles: records})
	err := send(req, http.MethodPost, apiPrefix+"/articles/bulk", &res)
	return res, err
}

// ListTagsForArticles returns the tag names on the given articles.
func (c *Client) ListTagsForArticles(ctx context.Context, ids []int64, dedupe bool) ([]string, error) {
	var body namesBody
	req := c.request(ctx).
		SetQueryParam("ids", joinIDs(ids)).
		SetQueryParam("dedupe", strconv.FormatBool(dedupe))
	err := send(req, http.MethodGet, apiPrefix+"/articles/tags", &body)
	return body.Names, err
}

// ListKeywordsForArticles returns the keywords of the given articles.
func (c *Client) ListKeywordsForArticles(ctx context.Context, ids []int64) ([]string, error) {
	var body keywordsBody
	req := c.request(ctx).SetQueryParam("ids", joinIDs(ids))
	err := send(req, http.MethodGet, apiPrefix+"/articles/keywords", &body)
	return body.Keywords, err
}

// ListAllKeywords returns the keywords of every article.
func (c *Client) ListAllKeywords(ctx context.Context) ([]string, error) {
	var body keywordsBody
	err := send(c.request(ctx), http.MethodGet, apiPrefix+"/articles/keywords", &body)
	return body.Keywords, err
}

// ResolveArticleURLs returns the URL of each article, positionally.
func (c *Client) ResolveArticleURLs(ctx context.Context, ids []int64) ([]string, error) {
	var body urlsBody
	req := c.request(ctx).SetQueryParam("ids", joinIDs(ids))
	err := send(req, http.MethodGet, apiPrefix+"/articles/urls", &body)
	return body.URLs, err
}

package client

import (
	"context"
	"net/http"
)

// ListAllTagNames returns every tag name, sorted.
func (c *Client) ListAllTagNames(ctx context.Context) ([]string, error) {
	var body namesBody
	err := send(c.request(ctx), http.MethodGet, apiPrefix+"/tags", &body)
	return body.Names, err
}

// FindTagsByPrefix returns the names of tags with a word starting with prefix.
func (c *Client) FindTagsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var body namesBody
	req := c.request(ctx).SetQueryParam("prefix", prefix)
	err := send(req, http.MethodGet, apiPrefix+"/tags", &body)
	return body.Names, err
}

// ListTags returns a page of full tag records.
func (c *Client) ListTags(ctx context.Context, cursor string, limit int) (TagPage, error) {
	var page TagPage
	req := c.request(ctx).SetQueryParam("full", "true")
	pageQuery(req, cursor, limit)
	err := send(req, http.MethodGet, apiPrefix+"/tags", &page)
	return page, err
}

// ListTagOccurrences returns one tag name per (article, tag) pair.
func (c *Client) ListTagOccurrences(ctx context.Context) ([]string, error) {
	var body namesBody
	err := send(c.request(ctx), http.MethodGet, apiPrefix+"/tag-occurrences", &body)
	return body.Names, err
}

// CreateTag creates a tag. Fails with ErrAlreadyExists on a taken name.
func (c *Client) CreateTag(ctx context.Context, name, description string) (Tag, error) {
	var t Tag
	req := c.request(ctx).SetBody(createTagBody{Name: name, Description: description})
	err := send(req, http.MethodPost, apiPrefix+"/tags", &t)
	return t, err
}

// GetTag returns the named tag.
func (c *Client) GetTag(ctx context.Context, name string) (Tag, error) {
	var t Tag
	req := c.request(ctx).SetPathParam("name", name)
	err := send(req, http.MethodGet, apiPrefix+"/tags/{name}", &t)
	return t, err
}

// UpdateTagDescription replaces the description of the named tag.
func (c *Client) UpdateTagDescription(ctx context.Context, name, description string) (Tag, error) {
	var t Tag
	req := c.request(ctx).SetPathParam("name", name).SetBody(updateTagBody{Description: description})
	err := send(req, http.MethodPatch, apiPrefix+"/tags/{name}", &t)
	return t, err
}

// DeleteTag removes the tag from every article, then deletes it.
func (c *Client) DeleteTag(ctx context.Context, name string) (MutationResult, error) {
	var res MutationResult
	req := c.request(ctx).SetPathParam("name", name)
	err := send(req, http.MethodDelete, apiPrefix+"/tags/{name}", &res)
	return res, err
}

// ListArticleIDsByTag returns the ids of the articles carrying the named tag.
func (c *Client) ListArticleIDsByTag(ctx context.Context, name string) ([]int64, error) {
	var body idsBody
	req := c.request(ctx).SetPathParam("name", name)
	err := send(req, http.MethodGet, apiPrefix+"/tags/{name}/articles", &body)
	return body.IDs, err
}

// AddTagToArticles attaches the named tag to the articles.
func (c *Client) AddTagToArticles(ctx context.Context, name string, ids []int64) (MutationResult, error) {
	var res MutationResult
	req := c.request(ctx).SetPathParam("name", name).SetBody(idsBody{IDs: ids})
	err := send(req, http.MethodPost, apiPrefix+"/tags/{name}/articles", &res)
	return res, err
}

// RemoveTagFromArticles detaches the named tag from the articles.
func (c *Client) RemoveTagFromArticles(ctx context.Context, name string, ids []int64) (MutationResult, error) {
	var res MutationResult
	req := c.request(ctx).SetPathParam("name", name).SetBody(idsBody{IDs: ids})
	err := send(req, http.MethodPost, apiPrefix+"/tags/{name}/articles/remove", &res)
	return res, err
}

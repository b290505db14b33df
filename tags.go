package tagdex

import (
	"context"
	"time"

	"github.com/kailas-cloud/tagdex/internal/domain/batch"
)

// CreateTag creates a tag with a unique name and returns it once it is searchable.
// Returns ErrAlreadyExists if a tag with the name exists.
func (c *Client) CreateTag(ctx context.Context, name, description string) (_ Tag, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.create", start, err) }()

	t, err := c.tagging.CreateTag(ctx, name, description)
	if err != nil {
		return Tag{}, err
	}
	return fromTag(&t), nil
}

// GetTag returns the tag named exactly name.
func (c *Client) GetTag(ctx context.Context, name string) (_ Tag, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.get", start, err) }()

	t, err := c.query.GetTag(ctx, name)
	if err != nil {
		return Tag{}, err
	}
	return fromTag(&t), nil
}

// UpdateTagDescription replaces the description of the named tag.
func (c *Client) UpdateTagDescription(ctx context.Context, name, description string) (_ Tag, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.update", start, err) }()

	t, err := c.tagging.UpdateTagDescription(ctx, name, description)
	if err != nil {
		return Tag{}, err
	}
	return fromTag(&t), nil
}

// DeleteTag removes the tag from every article carrying it, then deletes it.
// If some articles could not be updated the tag is kept and the error matches
// ErrPartialFailure; calling again finishes the job.
func (c *Client) DeleteTag(ctx context.Context, name string) ([]ItemResult, error) {
	return c.mutate("tag.delete", func() ([]batch.Result, error) {
		return c.tagging.DeleteTag(ctx, name)
	})
}

// AddTagToArticles attaches the named tag to every listed article.
func (c *Client) AddTagToArticles(ctx context.Context, name string, ids []int64) ([]ItemResult, error) {
	return c.mutate("tag.add", func() ([]batch.Result, error) {
		return c.tagging.AddTagToArticles(ctx, name, ids)
	})
}

// RemoveTagFromArticles detaches the named tag from every listed article.
func (c *Client) RemoveTagFromArticles(ctx context.Context, name string, ids []int64) ([]ItemResult, error) {
	return c.mutate("tag.remove", func() ([]batch.Result, error) {
		return c.tagging.RemoveTagFromArticles(ctx, name, ids)
	})
}

// ListAllTagNames returns the names of every tag, sorted.
func (c *Client) ListAllTagNames(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.names", start, err) }()
	return c.query.ListAllTagNames(ctx)
}

// ListTags returns a page of full tag records and the cursor of the next page.
func (c *Client) ListTags(ctx context.Context, cursor string, limit int) (_ []Tag, _ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.list", start, err) }()

	tags, next, err := c.query.ListTags(ctx, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]Tag, len(tags))
	for i := range tags {
		out[i] = fromTag(&tags[i])
	}
	return out, next, nil
}

// ListTagOccurrences returns one tag name per (article, tag) pair.
func (c *Client) ListTagOccurrences(ctx context.Context) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.occurrences", start, err) }()
	return c.query.ListTagOccurrences(ctx)
}

// FindTagsByPrefix returns the names of tags with a word starting with prefix,
// case-insensitively.
func (c *Client) FindTagsByPrefix(ctx context.Context, prefix string) (_ []string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.prefix", start, err) }()
	return c.query.FindTagsByPrefix(ctx, prefix)
}

// ListArticleIDsByTag returns the ids of the articles carrying the named tag.
func (c *Client) ListArticleIDsByTag(ctx context.Context, name string) (_ []int64, err error) {
	start := time.Now()
	defer func() { c.obs.observe("tag.articles", start, err) }()
	return c.query.ListArticleIDsByTag(ctx, name)
}

func (c *Client) mutate(op string, fn func() ([]batch.Result, error)) (_ []ItemResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe(op, start, err) }()

	results, err := fn()
	items := fromResults(results)
	c.obs.observeItems(op, items)
	return items, err
}

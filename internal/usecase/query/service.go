package query

import (
	"context"
	"fmt"
	"slices"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

const iteratePageSize = 500

// Service answers read-only questions about articles and tags.
type Service struct {
	articles        ArticleReader
	tags            TagReader
	analyzer        domtag.Analyzer
	defaultPageSize int
	maxPageSize     int
}

// New creates a query service.
func New(articles ArticleReader, tags TagReader) *Service {
	return &Service{
		articles:        articles,
		tags:            tags,
		analyzer:        domtag.DefaultAnalyzer,
		defaultPageSize: 50,
		maxPageSize:     1000,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// WithAnalyzer sets the tag-name analyzer; it must match the one used when indexing.
func (s *Service) WithAnalyzer(a domtag.Analyzer) *Service {
	s.analyzer = a
	return s
}

// ListArticles returns a page of article summaries.
func (s *Service) ListArticles(ctx context.Context, cursor string, limit int) ([]domart.Summary, string, error) {
	articles, next, err := s.articles.List(ctx, cursor, s.pageSize(limit))
	if err != nil {
		return nil, "", fmt.Errorf("list articles: %w", err)
	}
	out := make([]domart.Summary, len(articles))
	for i := range articles {
		out[i] = articles[i].Summary()
	}
	return out, next, nil
}

// AllArticles returns the summaries of every article.
func (s *Service) AllArticles(ctx context.Context) ([]domart.Summary, error) {
	var out []domart.Summary
	err := s.eachArticle(ctx, func(a *domart.Article) {
		out = append(out, a.Summary())
	})
	return out, err
}

// GetArticle returns one article.
func (s *Service) GetArticle(ctx context.Context, id int64) (domart.Article, error) {
	a, err := s.articles.Get(ctx, id)
	if err != nil {
		return domart.Article{}, fmt.Errorf("get article %d: %w", id, err)
	}
	return a, nil
}

// ListAllTagNames returns the names of every tag, sorted.
func (s *Service) ListAllTagNames(ctx context.Context) ([]string, error) {
	var names []string
	cursor := ""
	for {
		tags, next, err := s.tags.List(ctx, cursor, iteratePageSize)
		if err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		for i := range tags {
			names = append(names, tags[i].Name())
		}
		if next == "" {
			break
		}
		cursor = next
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// ListTags returns a page of full tag records.
func (s *Service) ListTags(ctx context.Context, cursor string, limit int) ([]domtag.Tag, string, error) {
	tags, next, err := s.tags.List(ctx, cursor, s.pageSize(limit))
	if err != nil {
		return nil, "", fmt.Errorf("list tags: %w", err)
	}
	return tags, next, nil
}

// GetTag returns the live tag named exactly name.
func (s *Service) GetTag(ctx context.Context, name string) (domtag.Tag, error) {
	live, err := s.tags.FindByName(ctx, name)
	if err != nil {
		return domtag.Tag{}, fmt.Errorf("find tag %q: %w", name, err)
	}
	t, ok := domtag.Winner(live)
	if !ok {
		return domtag.Tag{}, fmt.Errorf("tag %q: %w", name, domain.ErrTagNotFound)
	}
	return t, nil
}

// ListTagsForArticles returns the names of the tags on the given articles. With dedupe
// each name appears once in first-seen order, otherwise once per article carrying it.
// Tag ids that no longer resolve are skipped. A missing article is an error.
func (s *Service) ListTagsForArticles(ctx context.Context, ids []int64, dedupe bool) ([]string, error) {
	articles, err := s.getArticles(ctx, ids)
	if err != nil {
		return nil, err
	}

	var tagIDs []string
	for _, a := range articles {
		tagIDs = append(tagIDs, a.Tags()...)
	}
	names, err := s.tagNames(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(tagIDs))
	seen := make(map[string]struct{})
	for _, a := range articles {
		for _, id := range a.Tags() {
			name, ok := names[id]
			if !ok {
				continue
			}
			if dedupe {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
			}
			out = append(out, name)
		}
	}
	return out, nil
}

// ListTagOccurrences returns the tag name of every article-tag pair in the corpus.
func (s *Service) ListTagOccurrences(ctx context.Context) ([]string, error) {
	var tagIDs []string
	if err := s.eachArticle(ctx, func(a *domart.Article) {
		tagIDs = append(tagIDs, a.Tags()...)
	}); err != nil {
		return nil, err
	}
	names, err := s.tagNames(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tagIDs))
	for _, id := range tagIDs {
		if name, ok := names[id]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// FindTagsByPrefix returns the sorted names of tags with a word starting with prefix,
// case-insensitively. A multi-word prefix must match consecutive words.
func (s *Service) FindTagsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	gram, indexed := s.analyzer.QueryGram(prefix)

	var names []string
	cursor := ""
	for {
		var (
			tags []domtag.Tag
			next string
			err  error
		)
		if indexed {
			tags, next, err = s.tags.FindByGram(ctx, gram, cursor, iteratePageSize)
		} else {
			tags, next, err = s.tags.List(ctx, cursor, iteratePageSize)
		}
		if err != nil {
			return nil, fmt.Errorf("find tags by prefix %q: %w", prefix, err)
		}
		for i := range tags {
			if domtag.MatchesPrefix(tags[i].Name(), prefix) {
				names = append(names, tags[i].Name())
			}
		}
		if next == "" {
			break
		}
		cursor = next
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// ListArticleIDsByTag returns the ids of the articles carrying the named tag.
func (s *Service) ListArticleIDsByTag(ctx context.Context, name string) ([]int64, error) {
	t, err := s.GetTag(ctx, name)
	if err != nil {
		return nil, err
	}
	var ids []int64
	cursor := ""
	for {
		page, next, err := s.articles.IDsByTag(ctx, t.ID(), cursor, iteratePageSize)
		if err != nil {
			return nil, fmt.Errorf("articles by tag %q: %w", name, err)
		}
		ids = append(ids, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// ListKeywordsForArticles returns the keywords of the given articles in order,
// duplicates included. Missing articles are skipped.
func (s *Service) ListKeywordsForArticles(ctx context.Context, ids []int64) ([]string, error) {
	articles, err := s.articles.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}
	var out []string
	for _, a := range articles {
		if a == nil {
			continue
		}
		out = appendKeywords(out, a)
	}
	return out, nil
}

// ListAllKeywords returns the keywords of every article, duplicates included.
func (s *Service) ListAllKeywords(ctx context.Context) ([]string, error) {
	var out []string
	err := s.eachArticle(ctx, func(a *domart.Article) {
		out = appendKeywords(out, a)
	})
	return out, err
}

// ResolveArticleURLs returns the URL of each article, positionally.
func (s *Service) ResolveArticleURLs(ctx context.Context, ids []int64) ([]string, error) {
	articles, err := s.getArticles(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.URL()
	}
	return out, nil
}

func (s *Service) getArticles(ctx context.Context, ids []int64) ([]*domart.Article, error) {
	articles, err := s.articles.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get articles: %w", err)
	}
	for i, a := range articles {
		if a == nil {
			return nil, fmt.Errorf("article %d: %w", ids[i], domain.ErrArticleNotFound)
		}
	}
	return articles, nil
}

// tagNames maps the resolvable tag ids to their names.
func (s *Service) tagNames(ctx context.Context, ids []string) (map[string]string, error) {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	names := make(map[string]string, len(unique))
	if len(unique) == 0 {
		return names, nil
	}

	tags, err := s.tags.GetMany(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	for _, t := range tags {
		if t != nil {
			names[t.ID()] = t.Name()
		}
	}
	return names, nil
}

// eachArticle visits every article once. Storage cursors may repeat keys across pages.
func (s *Service) eachArticle(ctx context.Context, fn func(a *domart.Article)) error {
	seen := make(map[int64]struct{})
	cursor := ""
	for {
		articles, next, err := s.articles.List(ctx, cursor, iteratePageSize)
		if err != nil {
			return fmt.Errorf("list articles: %w", err)
		}
		for i := range articles {
			if _, dup := seen[articles[i].ID()]; dup {
				continue
			}
			seen[articles[i].ID()] = struct{}{}
			fn(&articles[i])
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}

func (s *Service) pageSize(limit int) int {
	if limit <= 0 {
		return s.defaultPageSize
	}
	return min(limit, s.maxPageSize)
}

func appendKeywords(out []string, a *domart.Article) []string {
	for _, kw := range a.Keywords() {
		out = append(out, kw.Word)
	}
	return out
}

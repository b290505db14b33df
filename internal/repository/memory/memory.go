// Package memory provides in-memory repositories with the method sets of the
// article, tag and tagref repositories. Tag searches can lag behind writes to
// reproduce the eventual visibility of the search index.
package memory

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// Store holds articles, tags and reverse-index sets.
type Store struct {
	mu       sync.Mutex
	articles map[int64]domart.Article
	tags     map[string]domtag.Tag
	refs     map[string]map[int64]struct{}
	// hidden counts the searches a new tag stays invisible for.
	hidden  map[string]int
	lag     int
	failing map[int64]error
	down    error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		articles: make(map[int64]domart.Article),
		tags:     make(map[string]domtag.Tag),
		refs:     make(map[string]map[int64]struct{}),
		hidden:   make(map[string]int),
		failing:  make(map[int64]error),
	}
}

// WithSearchLag hides new tags from the next n name searches.
func (s *Store) WithSearchLag(n int) *Store {
	s.lag = n
	return s
}

// FailArticle makes every write to the article fail with err. nil clears it.
func (s *Store) FailArticle(id int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failing, id)
		return
	}
	s.failing[id] = err
}

// SetDown makes every operation fail with err. nil restores service.
func (s *Store) SetDown(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = err
}

// PutArticle stores an article as is.
func (s *Store) PutArticle(a domart.Article) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articles[a.ID()] = a
}

// PutTag stores a tag, immediately visible.
func (s *Store) PutTag(t domtag.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[t.ID()] = t
}

// RefMembers returns the reverse-index set of a tag, sorted.
func (s *Store) RefMembers(tagID string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.refs[tagID])
}

// TagCount returns the number of stored tags.
func (s *Store) TagCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tags)
}

// Articles returns the article repository view.
func (s *Store) Articles() *Articles { return &Articles{s: s} }

// Tags returns the tag repository view.
func (s *Store) Tags() *Tags { return &Tags{s: s} }

// Refs returns the reverse-index repository view.
func (s *Store) Refs() *Refs { return &Refs{s: s} }

// Articles is the in-memory article repository.
type Articles struct{ s *Store }

// Get returns an article by id.
func (r *Articles) Get(_ context.Context, id int64) (domart.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return domart.Article{}, r.s.down
	}
	a, ok := r.s.articles[id]
	if !ok {
		return domart.Article{}, domain.ErrArticleNotFound
	}
	return a, nil
}

// GetMany returns articles positionally, nil for missing ids.
func (r *Articles) GetMany(_ context.Context, ids []int64) ([]*domart.Article, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, r.s.down
	}
	out := make([]*domart.Article, len(ids))
	for i, id := range ids {
		if a, ok := r.s.articles[id]; ok {
			out[i] = &a
		}
	}
	return out, nil
}

// AddTag adds tagID to the stored tag set of an article.
func (r *Articles) AddTag(_ context.Context, id int64, tagID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.s.writableArticle(id)
	if err != nil {
		return false, err
	}
	added := a.AddTag(tagID)
	r.s.articles[id] = a
	return added, nil
}

// RemoveTags drops tagIDs from the stored tag set of an article.
func (r *Articles) RemoveTags(_ context.Context, id int64, tagIDs ...string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, err := r.s.writableArticle(id)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, t := range tagIDs {
		if a.RemoveTag(t) {
			n++
		}
	}
	r.s.articles[id] = a
	return n, nil
}

// writableArticle returns the stored article or the error a write to it would hit.
// Callers hold the lock.
func (s *Store) writableArticle(id int64) (domart.Article, error) {
	if s.down != nil {
		return domart.Article{}, s.down
	}
	if err := s.failing[id]; err != nil {
		return domart.Article{}, err
	}
	a, ok := s.articles[id]
	if !ok {
		return domart.Article{}, domain.ErrArticleNotFound
	}
	return a, nil
}

// BulkSave writes whole articles. One result per article.
func (r *Articles) BulkSave(_ context.Context, articles []domart.Article) []batch.Result {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	results := make([]batch.Result, len(articles))
	for i, a := range articles {
		switch {
		case r.s.down != nil:
			results[i] = batch.NewError(a.Key(), r.s.down)
		case r.s.failing[a.ID()] != nil:
			results[i] = batch.NewError(a.Key(), r.s.failing[a.ID()])
		default:
			r.s.articles[a.ID()] = a
			results[i] = batch.NewApplied(a.Key())
		}
	}
	return results
}

// List pages through articles in id order. The cursor is an offset.
func (r *Articles) List(_ context.Context, cursor string, limit int) ([]domart.Article, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, "", r.s.down
	}
	ids := make([]int64, 0, len(r.s.articles))
	for id := range r.s.articles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	page, next, err := paginate(ids, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	out := make([]domart.Article, len(page))
	for i, id := range page {
		out[i] = r.s.articles[id]
	}
	return out, next, nil
}

// IDsByTag pages through ids of articles carrying tagID.
func (r *Articles) IDsByTag(_ context.Context, tagID, cursor string, limit int) ([]int64, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, "", r.s.down
	}
	var ids []int64
	for id, a := range r.s.articles {
		if a.HasTag(tagID) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return paginate(ids, cursor, limit)
}

// Tags is the in-memory tag repository.
type Tags struct{ s *Store }

// Create writes a new tag. Returns false when the id is taken.
func (r *Tags) Create(_ context.Context, t *domtag.Tag) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return false, r.s.down
	}
	if _, ok := r.s.tags[t.ID()]; ok {
		return false, nil
	}
	r.s.tags[t.ID()] = *t
	if r.s.lag > 0 {
		r.s.hidden[t.ID()] = r.s.lag
	}
	return true, nil
}

// Get returns a tag by id.
func (r *Tags) Get(_ context.Context, id string) (domtag.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return domtag.Tag{}, r.s.down
	}
	t, ok := r.s.tags[id]
	if !ok {
		return domtag.Tag{}, domain.ErrTagNotFound
	}
	return t, nil
}

// GetMany returns tags positionally, nil for missing ids.
func (r *Tags) GetMany(_ context.Context, ids []string) ([]*domtag.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, r.s.down
	}
	out := make([]*domtag.Tag, len(ids))
	for i, id := range ids {
		if t, ok := r.s.tags[id]; ok {
			out[i] = &t
		}
	}
	return out, nil
}

// FindByName returns the visible tags named exactly name.
func (r *Tags) FindByName(_ context.Context, name string) ([]domtag.Tag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, r.s.down
	}
	var out []domtag.Tag
	for _, t := range r.s.visibleTags() {
		if t.Name() == name {
			out = append(out, t)
		}
	}
	return out, nil
}

// FindByGram pages through visible tags whose name analyzes to gram.
func (r *Tags) FindByGram(_ context.Context, gram, cursor string, limit int) ([]domtag.Tag, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, "", r.s.down
	}
	var matched []domtag.Tag
	for _, t := range r.s.visibleTags() {
		if slices.Contains(domtag.DefaultAnalyzer.Grams(t.Name()), gram) {
			matched = append(matched, t)
		}
	}
	return paginate(matched, cursor, limit)
}

// List pages through all tags in id order.
func (r *Tags) List(_ context.Context, cursor string, limit int) ([]domtag.Tag, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, "", r.s.down
	}
	return paginate(r.s.sortedTags(), cursor, limit)
}

// UpdateDescription replaces the description of an existing tag.
func (r *Tags) UpdateDescription(_ context.Context, id, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return r.s.down
	}
	t, ok := r.s.tags[id]
	if !ok {
		return domain.ErrTagNotFound
	}
	r.s.tags[id] = t.WithDescription(description)
	return nil
}

// Delete removes a tag. Missing tags are ignored.
func (r *Tags) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return r.s.down
	}
	delete(r.s.tags, id)
	delete(r.s.hidden, id)
	return nil
}

// Refs is the in-memory reverse index.
type Refs struct{ s *Store }

// Add records article ids for tagID.
func (r *Refs) Add(_ context.Context, tagID string, articleIDs ...int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return r.s.down
	}
	set := r.s.refs[tagID]
	if set == nil {
		set = make(map[int64]struct{})
		r.s.refs[tagID] = set
	}
	for _, id := range articleIDs {
		set[id] = struct{}{}
	}
	return nil
}

// Remove forgets article ids for tagID.
func (r *Refs) Remove(_ context.Context, tagID string, articleIDs ...int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return r.s.down
	}
	for _, id := range articleIDs {
		delete(r.s.refs[tagID], id)
	}
	if len(r.s.refs[tagID]) == 0 {
		delete(r.s.refs, tagID)
	}
	return nil
}

// Members returns the recorded article ids of tagID.
func (r *Refs) Members(_ context.Context, tagID string) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, r.s.down
	}
	return sortedIDs(r.s.refs[tagID]), nil
}

// Drop deletes the set of tagID.
func (r *Refs) Drop(_ context.Context, tagID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return r.s.down
	}
	delete(r.s.refs, tagID)
	return nil
}

// TagIDs returns every tag id with a set.
func (r *Refs) TagIDs(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.down != nil {
		return nil, r.s.down
	}
	ids := make([]string, 0, len(r.s.refs))
	for id := range r.s.refs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// visibleTags returns the searchable tags and ages the hidden ones. Caller holds mu.
func (s *Store) visibleTags() []domtag.Tag {
	var out []domtag.Tag
	for _, t := range s.sortedTags() {
		if n := s.hidden[t.ID()]; n > 0 {
			s.hidden[t.ID()] = n - 1
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *Store) sortedTags() []domtag.Tag {
	out := make([]domtag.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b domtag.Tag) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func paginate[T any](items []T, cursor string, limit int) ([]T, string, error) {
	if limit <= 0 {
		return nil, "", domain.ErrInvalidArgument
	}
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, "", domain.ErrInvalidArgument
		}
		offset = n
	}
	if offset >= len(items) {
		return nil, "", nil
	}
	end := min(offset+limit, len(items))
	var next string
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[offset:end], next, nil
}

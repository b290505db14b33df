package article

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Keyword is a machine-extracted keyword with its similarity to the article.
type Keyword struct {
	Word       string
	Similarity float64
}

// Topic is the topic assignment of an article with its 2D map position.
type Topic struct {
	Name        string
	Probability float64
	X           float64
	Y           float64
}

// Summary is the listing projection of an article.
type Summary struct {
	ID      int64
	Heading string
	Topic   Topic
}

// Article is the article aggregate. Only the tag set mutates after ingestion.
type Article struct {
	id       int64
	heading  string
	text     string
	url      string
	keywords []Keyword
	topic    Topic
	tags     []string
}

// New validates and creates an Article with an empty tag set.
// ID: non-negative. Keyword similarity: [0,1].
func New(id int64, heading, text, url string, keywords []Keyword, topic Topic) (Article, error) {
	if id < 0 {
		return Article{}, fmt.Errorf("article ID must be non-negative, got %d", id)
	}
	for i, kw := range keywords {
		if kw.Word == "" {
			return Article{}, fmt.Errorf("keyword %d: word is required", i)
		}
		if math.IsNaN(kw.Similarity) || kw.Similarity < 0 || kw.Similarity > 1 {
			return Article{}, fmt.Errorf("keyword %q: similarity %v out of range [0,1]", kw.Word, kw.Similarity)
		}
	}

	return Article{
		id:       id,
		heading:  heading,
		text:     text,
		url:      url,
		keywords: slices.Clone(keywords),
		topic:    topic,
		tags:     []string{},
	}, nil
}

// Reconstruct creates an Article without validation (storage hydration).
// Duplicate tag ids are collapsed.
func Reconstruct(
	id int64, heading, text, url string, keywords []Keyword, topic Topic, tags []string,
) Article {
	return Article{
		id: id, heading: heading, text: text, url: url,
		keywords: keywords, topic: topic, tags: dedupe(tags),
	}
}

// ID returns the article identifier.
func (a *Article) ID() int64 { return a.id }

// Key returns the identifier in its string form used for document keys.
func (a *Article) Key() string { return FormatID(a.id) }

// Heading returns the article title.
func (a *Article) Heading() string { return a.heading }

// Text returns the article body.
func (a *Article) Text() string { return a.text }

// URL returns the source URL, possibly empty.
func (a *Article) URL() string { return a.url }

// Keywords returns the keywords in extraction order.
func (a *Article) Keywords() []Keyword { return a.keywords }

// Topic returns the topic assignment.
func (a *Article) Topic() Topic { return a.topic }

// Tags returns the tag ids attached to the article.
func (a *Article) Tags() []string { return a.tags }

// Summary returns the listing projection.
func (a *Article) Summary() Summary {
	return Summary{ID: a.id, Heading: a.heading, Topic: a.topic}
}

// HasTag reports whether tagID is attached.
func (a *Article) HasTag(tagID string) bool {
	return slices.Contains(a.tags, tagID)
}

// AddTag appends tagID unless already present. Returns false if nothing changed.
func (a *Article) AddTag(tagID string) bool {
	if a.HasTag(tagID) {
		return false
	}
	a.tags = append(slices.Clone(a.tags), tagID)
	return true
}

// RemoveTag drops tagID if present. Returns false if nothing changed.
func (a *Article) RemoveTag(tagID string) bool {
	i := slices.Index(a.tags, tagID)
	if i < 0 {
		return false
	}
	a.tags = slices.Delete(slices.Clone(a.tags), i, i+1)
	return true
}

// RetainTags keeps only the tag ids for which keep returns true and returns the dropped ids.
func (a *Article) RetainTags(keep func(tagID string) bool) []string {
	var dropped []string
	kept := make([]string, 0, len(a.tags))
	for _, id := range a.tags {
		if keep(id) {
			kept = append(kept, id)
		} else {
			dropped = append(dropped, id)
		}
	}
	if len(dropped) > 0 {
		a.tags = kept
	}
	return dropped
}

// FormatID renders an article id as used in keys and batch results.
func FormatID(id int64) string { return strconv.FormatInt(id, 10) }

// ParseID parses an article id from its string form.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid article ID %q: %w", s, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("article ID must be non-negative, got %d", id)
	}
	return id, nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Draft is an enrichment record before validation.
type Draft struct {
	ID       int64
	Heading  string
	Text     string
	URL      string
	Keywords []Keyword
	Topic    Topic
}

// Build validates the draft into an Article with an empty tag set.
func (d *Draft) Build() (Article, error) {
	return New(d.ID, d.Heading, d.Text, d.URL, d.Keywords, d.Topic)
}

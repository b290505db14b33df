package tagdex

import (
	"time"

	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
	integrityuc "github.com/kailas-cloud/tagdex/internal/usecase/integrity"
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

// ArticleRecord is one enrichment record to load.
type ArticleRecord struct {
	ID       int64
	Heading  string
	Text     string
	URL      string
	Keywords []Keyword
	Topic    Topic
}

// Article is a stored article. TagIDs are the ids of its tags, not their names.
type Article struct {
	ID       int64
	Heading  string
	Text     string
	URL      string
	Keywords []Keyword
	Topic    Topic
	TagIDs   []string
}

// ArticleSummary is the listing projection of an article.
type ArticleSummary struct {
	ID      int64
	Heading string
	Topic   Topic
}

// Tag is a user-defined label.
type Tag struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// ItemStatus is the outcome of a mutation for one article.
type ItemStatus string

// Item status values.
const (
	StatusApplied   ItemStatus = ItemStatus(batch.StatusApplied)
	StatusUnchanged ItemStatus = ItemStatus(batch.StatusUnchanged)
	StatusNotFound  ItemStatus = ItemStatus(batch.StatusNotFound)
	StatusError     ItemStatus = ItemStatus(batch.StatusError)
)

// ItemResult is the outcome of a mutation for one article.
type ItemResult struct {
	ID     string
	Status ItemStatus
	Err    error
}

// Failed reports whether the item did not apply.
func (r ItemResult) Failed() bool {
	return r.Status == StatusNotFound || r.Status == StatusError
}

// SweepReport summarizes one integrity sweep.
type SweepReport struct {
	ArticlesScanned  int
	ArticlesRepaired int
	DanglingRemoved  int
	RefSetsDropped   int
	DuplicatesMerged int
	Failures         int
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}

func fromKeywords(kws []domart.Keyword) []Keyword {
	out := make([]Keyword, len(kws))
	for i, k := range kws {
		out[i] = Keyword(k)
	}
	return out
}

func (r *ArticleRecord) draft() domart.Draft {
	kws := make([]domart.Keyword, len(r.Keywords))
	for i, k := range r.Keywords {
		kws[i] = domart.Keyword(k)
	}
	return domart.Draft{
		ID:       r.ID,
		Heading:  r.Heading,
		Text:     r.Text,
		URL:      r.URL,
		Keywords: kws,
		Topic:    domart.Topic(r.Topic),
	}
}

func fromArticle(a *domart.Article) Article {
	return Article{
		ID:       a.ID(),
		Heading:  a.Heading(),
		Text:     a.Text(),
		URL:      a.URL(),
		Keywords: fromKeywords(a.Keywords()),
		Topic:    Topic(a.Topic()),
		TagIDs:   a.Tags(),
	}
}

func fromSummaries(in []domart.Summary) []ArticleSummary {
	out := make([]ArticleSummary, len(in))
	for i, s := range in {
		out[i] = ArticleSummary{ID: s.ID, Heading: s.Heading, Topic: Topic(s.Topic)}
	}
	return out
}

func fromTag(t *domtag.Tag) Tag {
	return Tag{
		ID:          t.ID(),
		Name:        t.Name(),
		Description: t.Description(),
		CreatedAt:   t.CreatedAt(),
	}
}

func fromResults(results []batch.Result) []ItemResult {
	if results == nil {
		return nil
	}
	out := make([]ItemResult, len(results))
	for i, r := range results {
		out[i] = ItemResult{ID: r.ID(), Status: ItemStatus(r.Status()), Err: r.Err()}
	}
	return out
}

func fromReport(r integrityuc.Report) SweepReport {
	return SweepReport(r)
}

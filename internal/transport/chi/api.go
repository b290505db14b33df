package chi

import (
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeInvalidArgument  ErrorCode = "invalid_argument"
	CodeNotFound         ErrorCode = "not_found"
	CodeArticleNotFound  ErrorCode = "article_not_found"
	CodeTagNotFound      ErrorCode = "tag_not_found"
	CodeAlreadyExists    ErrorCode = "already_exists"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Keyword is a wire keyword.
type Keyword struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// Topic is a wire topic.
type Topic struct {
	Name        string  `json:"topic_name"`
	Probability float64 `json:"probability"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// ArticleSummary is one entry of the article listing.
type ArticleSummary struct {
	ID      int64  `json:"id"`
	Heading string `json:"heading"`
	Topic   Topic  `json:"topic"`
}

// ArticleListResponse is a page of article summaries.
type ArticleListResponse struct {
	Items      []ArticleSummary `json:"items"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

// Article is a full article with the ids of its tags.
type Article struct {
	ID       int64     `json:"id"`
	Heading  string    `json:"heading"`
	Text     string    `json:"article_text"`
	URL      string    `json:"url,omitempty"`
	Keywords []Keyword `json:"keywords"`
	Topic    Topic     `json:"topic"`
	TagIDs   []string  `json:"tag_ids"`
}

// ArticleRecord is one enrichment record of a bulk load.
type ArticleRecord struct {
	ID       int64     `json:"id"`
	Heading  string    `json:"heading"`
	Text     string    `json:"article_text"`
	URL      string    `json:"url,omitempty"`
	Keywords []Keyword `json:"keywords"`
	Topic    Topic     `json:"topic"`
}

// BulkArticlesRequest is the body of POST /articles/bulk.
type BulkArticlesRequest struct {
	Articles []ArticleRecord `json:"articles"`
}

// Tag is a tag record.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"` // unix milliseconds
}

// TagListResponse is a page of tag records.
type TagListResponse struct {
	Items      []Tag   `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// CreateTagRequest is the body of POST /tags.
type CreateTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateTagRequest is the body of PATCH /tags/{name}.
type UpdateTagRequest struct {
	Description string `json:"description"`
}

// ArticleIDsRequest is the body of the tag attach/detach endpoints.
type ArticleIDsRequest struct {
	IDs []int64 `json:"ids"`
}

// NamesResponse lists tag names.
type NamesResponse struct {
	Names []string `json:"names"`
}

// KeywordsResponse lists keywords, duplicates preserved.
type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// URLsResponse lists article URLs positionally.
type URLsResponse struct {
	URLs []string `json:"urls"`
}

// IDsResponse lists article ids.
type IDsResponse struct {
	IDs []int64 `json:"ids"`
}

// ItemResult is the outcome of one item of a mutation.
type ItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // applied / unchanged / not_found / error
	Error  string `json:"error,omitempty"`
}

// MutationResponse reports every item of a mutation.
type MutationResponse struct {
	Items     []ItemResult `json:"items"`
	Applied   int          `json:"applied"`
	Unchanged int          `json:"unchanged"`
	Failed    int          `json:"failed"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func summaryToAPI(s domart.Summary) ArticleSummary {
	return ArticleSummary{ID: s.ID, Heading: s.Heading, Topic: topicToAPI(s.Topic)}
}

func topicToAPI(t domart.Topic) Topic {
	return Topic{Name: t.Name, Probability: t.Probability, X: t.X, Y: t.Y}
}

func articleToAPI(a *domart.Article) Article {
	kws := make([]Keyword, len(a.Keywords()))
	for i, k := range a.Keywords() {
		kws[i] = Keyword{Word: k.Word, Similarity: k.Similarity}
	}
	tags := a.Tags()
	if tags == nil {
		tags = []string{}
	}
	return Article{
		ID:       a.ID(),
		Heading:  a.Heading(),
		Text:     a.Text(),
		URL:      a.URL(),
		Keywords: kws,
		Topic:    topicToAPI(a.Topic()),
		TagIDs:   tags,
	}
}

func (r *ArticleRecord) draft() domart.Draft {
	kws := make([]domart.Keyword, len(r.Keywords))
	for i, k := range r.Keywords {
		kws[i] = domart.Keyword{Word: k.Word, Similarity: k.Similarity}
	}
	return domart.Draft{
		ID:       r.ID,
		Heading:  r.Heading,
		Text:     r.Text,
		URL:      r.URL,
		Keywords: kws,
		Topic: domart.Topic{
			Name:        r.Topic.Name,
			Probability: r.Topic.Probability,
			X:           r.Topic.X,
			Y:           r.Topic.Y,
		},
	}
}

func tagToAPI(t *domtag.Tag) Tag {
	return Tag{
		ID:          t.ID(),
		Name:        t.Name(),
		Description: t.Description(),
		CreatedAt:   t.CreatedAt().UnixMilli(),
	}
}

func mutationToAPI(results []batch.Result) MutationResponse {
	resp := MutationResponse{Items: make([]ItemResult, len(results))}
	for i, r := range results {
		item := ItemResult{ID: r.ID(), Status: string(r.Status())}
		if r.Err() != nil {
			item.Error = safeDomainMessage(r.Err())
		}
		resp.Items[i] = item
		switch {
		case r.Failed():
			resp.Failed++
		case r.Status() == batch.StatusUnchanged:
			resp.Unchanged++
		default:
			resp.Applied++
		}
	}
	return resp
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

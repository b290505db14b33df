package client

// Keyword is a machine-extracted keyword with its similarity to the article.
type Keyword struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// Topic is the topic assignment of an article with its 2D map position.
type Topic struct {
	Name        string  `json:"topic_name"`
	Probability float64 `json:"probability"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

// ArticleRecord is one enrichment record to load.
type ArticleRecord struct {
	ID       int64     `json:"id"`
	Heading  string    `json:"heading"`
	Text     string    `json:"article_text"`
	URL      string    `json:"url,omitempty"`
	Keywords []Keyword `json:"keywords"`
	Topic    Topic     `json:"topic"`
}

// Article is a stored article with the ids of its tags.
type Article struct {
	ID       int64     `json:"id"`
	Heading  string    `json:"heading"`
	Text     string    `json:"article_text"`
	URL      string    `json:"url,omitempty"`
	Keywords []Keyword `json:"keywords"`
	Topic    Topic     `json:"topic"`
	TagIDs   []string  `json:"tag_ids"`
}

// ArticleSummary is the listing projection of an article.
type ArticleSummary struct {
	ID      int64  `json:"id"`
	Heading string `json:"heading"`
	Topic   Topic  `json:"topic"`
}

// ArticlePage is one page of article summaries.
type ArticlePage struct {
	Items      []ArticleSummary `json:"items"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

// Tag is a user-defined label. CreatedAt is in unix milliseconds.
type Tag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}

// TagPage is one page of tag records.
type TagPage struct {
	Items      []Tag   `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// ItemResult is the outcome of a mutation for one article.
type ItemResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// MutationResult is the per-article report of a mutation.
type MutationResult struct {
	Items     []ItemResult `json:"items"`
	Applied   int          `json:"applied"`
	Unchanged int          `json:"unchanged"`
	Failed    int          `json:"failed"`
}

// Health is the service health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type namesBody struct {
	Names []string `json:"names"`
}

type keywordsBody struct {
	Keywords []string `json:"keywords"`
}

type urlsBody struct {
	URLs []string `json:"urls"`
}

type idsBody struct {
	IDs []int64 `json:"ids"`
}

type bulkBody struct {
	Articles []ArticleRecord `json:"articles"`
}

type createTagBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type updateTagBody struct {
	Description string `json:"description"`
}

package article

import (
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
)

// articleDoc is the stored JSON shape of an article.
type articleDoc struct {
	ID          int64        `json:"id"`
	Heading     string       `json:"heading"`
	ArticleText string       `json:"article_text"`
	URL         string       `json:"url,omitempty"`
	Keywords    []keywordDoc `json:"keywords"`
	Topic       topicDoc     `json:"topic"`
	Tags        []string     `json:"tags"`
}

type keywordDoc struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

type topicDoc struct {
	Name        string  `json:"topic_name"`
	Probability float64 `json:"probability"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

func toDoc(a *domart.Article) articleDoc {
	kws := make([]keywordDoc, len(a.Keywords()))
	for i, kw := range a.Keywords() {
		kws[i] = keywordDoc{Word: kw.Word, Similarity: kw.Similarity}
	}
	tags := a.Tags()
	if tags == nil {
		tags = []string{}
	}
	t := a.Topic()
	return articleDoc{
		ID:          a.ID(),
		Heading:     a.Heading(),
		ArticleText: a.Text(),
		URL:         a.URL(),
		Keywords:    kws,
		Topic:       topicDoc{Name: t.Name, Probability: t.Probability, X: t.X, Y: t.Y},
		Tags:        tags,
	}
}

func (d *articleDoc) toDomain() domart.Article {
	kws := make([]domart.Keyword, len(d.Keywords))
	for i, kw := range d.Keywords {
		kws[i] = domart.Keyword{Word: kw.Word, Similarity: kw.Similarity}
	}
	topic := domart.Topic{
		Name:        d.Topic.Name,
		Probability: d.Topic.Probability,
		X:           d.Topic.X,
		Y:           d.Topic.Y,
	}
	return domart.Reconstruct(d.ID, d.Heading, d.ArticleText, d.URL, kws, topic, d.Tags)
}

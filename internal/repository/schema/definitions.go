package schema

import (
	"github.com/kailas-cloud/tagdex/internal/db"
)

// Collection names.
const (
	Articles = "articles"
	Tags     = "tags"
)

// Collection is a provisionable collection: its FT index plus any auxiliary keys
// (reverse-index sets) that must be purged with it.
type Collection struct {
	Name       string
	Definition *db.IndexDefinition
	// Purge lists extra key patterns deleted on provisioning.
	Purge []string
}

// ArticlesCollection indexes article documents. heading and article_text are
// full-text fields only when the backend supports TEXT.
func ArticlesCollection(ks db.Keyspace, textSearch bool) Collection {
	def := db.NewIndex(ks.IndexName(Articles)).
		Prefix(ks.CollectionPrefix(Articles)).
		Numeric("$.id", "id").
		Tag("$.tags[*]", "tags").
		Tag("$.keywords[*].word", "keyword").
		Tag("$.topic.topic_name", "topic_name").
		Numeric("$.topic.probability", "topic_probability").
		TextIf(textSearch, "$.heading", "heading").
		TextIf(textSearch, "$.article_text", "article_text").
		MustBuild()

	return Collection{Name: Articles, Definition: def}
}

// TagsCollection indexes tag documents. name_key is the exact-name identity,
// name_grams the analyzer output used by prefix search.
func TagsCollection(ks db.Keyspace, textSearch bool) Collection {
	def := db.NewIndex(ks.IndexName(Tags)).
		Prefix(ks.CollectionPrefix(Tags)).
		ExactTag("$.name_key", "name_key").
		Tag("$.name_grams[*]", "name_grams").
		Numeric("$.created_at", "created_at").
		TextIf(textSearch, "$.description", "description").
		MustBuild()

	return Collection{Name: Tags, Definition: def, Purge: []string{ks.RefsPattern()}}
}

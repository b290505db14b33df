package db

import "strings"

// DefaultKeyPrefix namespaces every key written by tagdex.
const DefaultKeyPrefix = "tagdex:"

// Keyspace derives key and index names for collections.
// Key patterns: {prefix}{collection}:{id}, {prefix}{collection}:idx, {prefix}tagrefs:{tagID}.
type Keyspace struct {
	prefix string
}

// NewKeyspace creates a Keyspace. An empty prefix falls back to DefaultKeyPrefix.
func NewKeyspace(prefix string) Keyspace {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

// Prefix returns the global key prefix.
func (k Keyspace) Prefix() string { return k.prefix }

// DocKey returns the key of a document.
func (k Keyspace) DocKey(collection, id string) string {
	return k.CollectionPrefix(collection) + id
}

// CollectionPrefix returns the key prefix shared by all documents of a collection.
func (k Keyspace) CollectionPrefix(collection string) string {
	return k.prefix + collection + ":"
}

// IndexName returns the FT index name of a collection.
func (k Keyspace) IndexName(collection string) string {
	return k.prefix + collection + ":idx"
}

// DocID extracts the document id from a key of the collection.
func (k Keyspace) DocID(collection, key string) string {
	return strings.TrimPrefix(key, k.CollectionPrefix(collection))
}

// RefsKey returns the reverse-index set of a tag.
func (k Keyspace) RefsKey(tagID string) string {
	return k.prefix + "tagrefs:" + tagID
}

// RefsPattern matches every reverse-index set.
func (k Keyspace) RefsPattern() string {
	return k.prefix + "tagrefs:*"
}

// TagIDFromRefsKey extracts the tag id from a reverse-index key.
func (k Keyspace) TagIDFromRefsKey(key string) string {
	return strings.TrimPrefix(key, k.prefix+"tagrefs:")
}

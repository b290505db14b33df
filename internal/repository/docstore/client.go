package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/tagdex/internal/db"
	"github.com/kailas-cloud/tagdex/internal/domain"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
)

// store is the consumer interface for JSON documents (ISP).
//
//nolint:interfacebloat // document client needs JSON, scan and search operations
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetNX(ctx context.Context, key string, data []byte) (bool, error)
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	JSONMGet(ctx context.Context, keys []string) ([][]byte, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	JSONArrAddUnique(ctx context.Context, key, path string, value []byte) (bool, error)
	JSONArrRemove(ctx context.Context, key, path string, values ...[]byte) (int, error)
	ScanPage(ctx context.Context, pattern, cursor string, count int) ([]string, string, error)
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
}

// Doc is a document to write.
type Doc struct {
	ID   string
	Body any
}

// Hit is a raw document returned by a listing or search.
type Hit struct {
	ID     string
	Source []byte
}

// Client provides collection-scoped document operations over the store.
type Client struct {
	store store
	ks    db.Keyspace
}

// New creates a document client.
func New(s store, ks db.Keyspace) *Client {
	return &Client{store: s, ks: ks}
}

// Get decodes the document into dst. Returns domain.ErrNotFound if absent.
func (c *Client) Get(ctx context.Context, collection, id string, dst any) error {
	key := c.ks.DocKey(collection, id)
	raw, err := c.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return Wrap("json.get "+key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// GetMany returns the raw documents in ids order, nil for missing ones.
func (c *Client) GetMany(ctx context.Context, collection string, ids []string) ([][]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.ks.DocKey(collection, id)
	}
	docs, err := c.store.JSONMGet(ctx, keys)
	if err != nil {
		return nil, Wrap("json.mget "+collection, err)
	}
	return docs, nil
}

// Index writes a single document. With onlyIfAbsent the write is skipped (false)
// when the id is taken.
func (c *Client) Index(ctx context.Context, collection, id string, body any, onlyIfAbsent bool) (bool, error) {
	key := c.ks.DocKey(collection, id)
	data, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", key, err)
	}
	if onlyIfAbsent {
		ok, err := c.store.JSONSetNX(ctx, key, data)
		if err != nil {
			return false, Wrap("json.set nx "+key, err)
		}
		return ok, nil
	}
	if err := c.store.JSONSet(ctx, key, "$", data); err != nil {
		return false, Wrap("json.set "+key, err)
	}
	return true, nil
}

// BulkIndex pipelines whole-document writes. Not atomic: each document gets its own result.
func (c *Client) BulkIndex(ctx context.Context, collection string, docs []Doc) []batch.Result {
	results := make([]batch.Result, len(docs))
	items := make([]db.JSONSetItem, 0, len(docs))
	pos := make([]int, 0, len(docs))

	for i, d := range docs {
		data, err := json.Marshal(d.Body)
		if err != nil {
			results[i] = batch.NewError(d.ID, fmt.Errorf("marshal: %w", err))
			continue
		}
		items = append(items, db.JSONSetItem{Key: c.ks.DocKey(collection, d.ID), Path: "$", Data: data})
		pos = append(pos, i)
	}

	errs := c.store.JSONSetMulti(ctx, items)
	for j, i := range pos {
		if j < len(errs) && errs[j] != nil {
			results[i] = batch.NewError(docs[i].ID, Wrap("json.set", errs[j]))
			continue
		}
		results[i] = batch.NewApplied(docs[i].ID)
	}
	return results
}

// Update replaces top-level fields of an existing document (shallow, no deep merge).
// Returns domain.ErrNotFound if the document is absent.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	key := c.ks.DocKey(collection, id)
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return Wrap("exists "+key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}

	for name, value := range fields {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", name, err)
		}
		if err := c.store.JSONSet(ctx, key, "$."+name, data); err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				return domain.ErrNotFound
			}
			return Wrap("json.set "+key+" "+name, err)
		}
	}
	return nil
}

// ArrayAdd appends value to the array field of an existing document unless an equal
// element is present. The edit is atomic on the server, so concurrent edits of other
// elements are never lost. Returns domain.ErrNotFound if the document is absent.
func (c *Client) ArrayAdd(ctx context.Context, collection, id, field string, value any) (bool, error) {
	key := c.ks.DocKey(collection, id)
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("marshal %s element: %w", field, err)
	}
	added, err := c.store.JSONArrAddUnique(ctx, key, "$."+field, data)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, domain.ErrNotFound
		}
		return false, Wrap("array add "+key+" "+field, err)
	}
	return added, nil
}

// ArrayRemove drops every element equal to one of values from the array field and
// returns how many went. Returns domain.ErrNotFound if the document is absent.
func (c *Client) ArrayRemove(ctx context.Context, collection, id, field string, values ...any) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	key := c.ks.DocKey(collection, id)
	encoded := make([][]byte, len(values))
	for i, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("marshal %s element: %w", field, err)
		}
		encoded[i] = data
	}
	n, err := c.store.JSONArrRemove(ctx, key, "$."+field, encoded...)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, domain.ErrNotFound
		}
		return 0, Wrap("array remove "+key+" "+field, err)
	}
	return n, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	key := c.ks.DocKey(collection, id)
	if err := c.store.Del(ctx, key); err != nil {
		return Wrap("del "+key, err)
	}
	return nil
}

// Search returns up to limit matching documents starting at cursor (an opaque offset).
// nextCursor is empty on the last page.
func (c *Client) Search(
	ctx context.Context, collection, query, cursor string, limit int,
) ([]Hit, string, error) {
	entries, next, err := c.search(ctx, collection, query, cursor, limit, false)
	if err != nil {
		return nil, "", err
	}
	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, Hit{ID: c.ks.DocID(collection, e.Key), Source: []byte(e.Fields["$"])})
	}
	return hits, next, nil
}

// SearchIDs is Search without document bodies.
func (c *Client) SearchIDs(
	ctx context.Context, collection, query, cursor string, limit int,
) ([]string, string, error) {
	entries, next, err := c.search(ctx, collection, query, cursor, limit, true)
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, c.ks.DocID(collection, e.Key))
	}
	return ids, next, nil
}

func (c *Client) search(
	ctx context.Context, collection, query, cursor string, limit int, noContent bool,
) ([]db.SearchEntry, string, error) {
	if limit <= 0 {
		return nil, "", fmt.Errorf("limit must be positive: %w", domain.ErrInvalidArgument)
	}
	offset := 0
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, domain.ErrInvalidArgument)
		}
		offset = parsed
	}

	res, err := c.store.Search(ctx, &db.Query{
		IndexName: c.ks.IndexName(collection),
		Query:     query,
		Offset:    offset,
		Limit:     limit + 1,
		NoContent: noContent,
	})
	if err != nil {
		return nil, "", Wrap("search "+collection, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return nil, "", nil
	}

	entries := res.Entries
	var next string
	if len(entries) > limit {
		entries = entries[:limit]
		next = strconv.Itoa(offset + limit)
	}
	return entries, next, nil
}

// Scan lists documents of a collection with a server-side SCAN cursor. Page sizes are
// approximate (SCAN COUNT is a hint) and a key may repeat across pages.
// nextCursor is empty once the iteration is complete.
func (c *Client) Scan(ctx context.Context, collection, cursor string, limit int) ([]Hit, string, error) {
	if limit <= 0 {
		return nil, "", fmt.Errorf("limit must be positive: %w", domain.ErrInvalidArgument)
	}
	pattern := c.ks.CollectionPrefix(collection) + "*"
	var keys []string
	pos := cursor
	for {
		page, next, err := c.store.ScanPage(ctx, pattern, pos, limit)
		if err != nil {
			if errors.Is(err, db.ErrInvalidCursor) {
				return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, domain.ErrInvalidArgument)
			}
			return nil, "", Wrap("scan "+collection, err)
		}
		keys = append(keys, page...)
		pos = next
		if pos == "" || len(keys) >= limit {
			break
		}
	}

	var hits []Hit
	if len(keys) > 0 {
		docs, err := c.store.JSONMGet(ctx, keys)
		if err != nil {
			return nil, "", Wrap("json.mget "+collection, err)
		}
		hits = make([]Hit, 0, len(keys))
		for i, key := range keys {
			if docs[i] == nil {
				continue // deleted between SCAN and GET
			}
			hits = append(hits, Hit{ID: c.ks.DocID(collection, key), Source: docs[i]})
		}
	}

	return hits, pos, nil
}

// Wrap annotates a store error; exhausted retries surface as domain.ErrStoreUnavailable.
func Wrap(msg string, err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", msg, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// Search runs a filtered FT.SEARCH. Valkey-search does not support a bare "*" query,
// so match-all falls back to SCAN + JSON.MGET over the index prefix.
func (s *Store) Search(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, fmt.Errorf("offset and limit must be non-negative")
	}

	query := q.Query
	if query == "" {
		query = db.MatchAll
	}
	if query == db.MatchAll && s.valkey {
		return s.scanSearch(ctx, q)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(buildSearchArgs(q, query)...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.opErr(db.OpSearch, err)
	}

	if q.NoContent {
		return parseKeysResult(raw)
	}
	return parseListResult(raw)
}

func buildSearchArgs(q *db.Query, query string) []string {
	args := []string{q.IndexName, query}

	if q.NoContent {
		args = append(args, "NOCONTENT")
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)
	return args
}

// scanSearch lists an index prefix through SCAN. Keys are sorted and deduplicated for a stable offset.
func (s *Store) scanSearch(ctx context.Context, q *db.Query) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(q.IndexName)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan for list: %w", err)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys) // SCAN may repeat keys, and cluster replicas repeat their primary

	total := len(keys)
	if q.Offset >= total {
		return &db.SearchResult{Total: total}, nil
	}
	end := min(q.Offset+q.Limit, total)
	pageKeys := keys[q.Offset:end]

	if q.NoContent {
		entries := make([]db.SearchEntry, len(pageKeys))
		for i, key := range pageKeys {
			entries[i] = db.SearchEntry{Key: key}
		}
		return &db.SearchResult{Total: total, Entries: entries}, nil
	}

	docs, err := s.JSONMGet(ctx, pageKeys)
	if err != nil {
		return nil, err
	}
	entries := make([]db.SearchEntry, 0, len(pageKeys))
	for i, key := range pageKeys {
		if docs[i] == nil {
			continue // deleted between SCAN and GET
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: map[string]string{"$": string(docs[i])},
		})
	}
	return &db.SearchResult{Total: total, Entries: entries}, nil
}

// indexToKeyPrefix converts an index name to its key prefix.
// "tagdex:articles:idx" -> "tagdex:articles:"
func indexToKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return index[:len(index)-3]
	}
	return index + ":"
}

// --- Result parsing ---

func parseTotal(raw []rueidis.RedisMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse total: %w", err)
	}
	return total, nil
}

// parseListResult reads the 2-stride reply: [total, key1, fields1, key2, fields2, ...].
func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

// parseKeysResult reads the NOCONTENT reply: [total, key1, key2, ...].
func parseKeysResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	total, err := parseTotal(raw)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		key, err := msg.ToString()
		if err != nil {
			continue
		}
		entries = append(entries, db.SearchEntry{Key: key})
	}
	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

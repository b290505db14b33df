package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// JSONSet stores a JSON value at the given key and path.
func (s *Store) JSONSet(ctx context.Context, key, path string, data []byte) error {
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args(path, string(data)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "new objects must be created at the root") {
			return db.ErrKeyNotFound
		}
		return s.opErr(db.OpJSONSet, err)
	}
	return nil
}

// JSONSetNX stores a document only if the key does not exist. Returns false if it did.
func (s *Store) JSONSetNX(ctx context.Context, key string, data []byte) (bool, error) {
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(data), "NX").Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return false, nil
		}
		return false, s.opErr(db.OpJSONSet, err)
	}
	return true, nil
}

// JSONSetMulti pipelines root-or-path writes in one round-trip.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) []error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		path := item.Path
		if path == "" {
			path = "$"
		}
		cmds[i] = s.b().Arbitrary("JSON.SET").Keys(item.Key).Args(path, string(item.Data)).Build()
	}

	results := s.doMulti(ctx, cmds)
	errs := make([]error, len(items))
	for i, res := range results {
		if err := res.Error(); err != nil {
			errs[i] = fmt.Errorf("key %s: %w", items[i].Key, s.opErr(db.OpJSONSet, err))
		}
	}
	return errs
}

// JSONGet retrieves the root JSON document stored at key.
func (s *Store) JSONGet(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(key).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, s.opErr(db.OpJSONGet, err)
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}

// JSONMGet fetches many root documents. Standalone deployments use a single JSON.MGET;
// cluster deployments pipeline JSON.GET so keys may live on different slots.
func (s *Store) JSONMGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if s.standalone {
		return s.jsonMGet(ctx, keys)
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Arbitrary("JSON.GET").Keys(key).Build()
	}

	out := make([][]byte, len(keys))
	for i, res := range s.doMulti(ctx, cmds) {
		raw, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, fmt.Errorf("key %s: %w", keys[i], s.opErr(db.OpJSONMGet, err))
		}
		if raw != "" {
			out[i] = []byte(raw)
		}
	}
	return out, nil
}

func (s *Store) jsonMGet(ctx context.Context, keys []string) ([][]byte, error) {
	cmd := s.b().Arbitrary("JSON.MGET").Keys(keys...).Args(".").Build()
	arr, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, s.opErr(db.OpJSONMGet, err)
	}
	out := make([][]byte, len(keys))
	for i := 0; i < len(arr) && i < len(keys); i++ {
		if arr[i].IsNil() {
			continue
		}
		raw, err := arr[i].ToString()
		if err != nil || raw == "" {
			continue
		}
		out[i] = []byte(raw)
	}
	return out, nil
}

// Del deletes keys. Multiple keys are pipelined one DEL per key.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		cmd := s.b().Del().Key(keys[0]).Build()
		if err := s.do(ctx, cmd).Error(); err != nil {
			return s.opErr(db.OpDel, err)
		}
		return nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = s.b().Del().Key(key).Build()
	}
	for i, res := range s.doMulti(ctx, cmds) {
		if err := res.Error(); err != nil {
			return fmt.Errorf("key %s: %w", keys[i], s.opErr(db.OpDel, err))
		}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	cmd := s.b().Exists().Key(key).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, s.opErr(db.OpExists, err)
	}
	return count > 0, nil
}

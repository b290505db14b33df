package redis

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index %s: %w", def.Name, err)
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(def.Args()...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") || isRedisErr(err, "already exists") {
			return db.ErrIndexExists
		}
		return s.opErr(db.OpCreateIndex, err)
	}
	return nil
}

// DropIndex removes an FT index. With deleteDocs the indexed documents go too (DD);
// valkey-search has no DD so callers must purge the prefix themselves.
func (s *Store) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	args := []string{name}
	if deleteDocs && !s.valkey {
		args = append(args, "DD")
	}
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return db.ErrIndexNotFound
		}
		return s.opErr(db.OpDropIndex, err)
	}
	return nil
}

// IndexExists probes index existence via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isUnknownIndex(err) {
			return false, nil
		}
		return false, s.opErr(db.OpIndexInfo, err)
	}
	return true, nil
}

// SupportsTextSearch reports TEXT field support: Redis 8 yes, valkey-search no.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return !s.valkey
}

func isUnknownIndex(err error) bool {
	return isRedisErr(err, "unknown index name") ||
		isRedisErr(err, "no such index") ||
		isRedisErr(err, "not found")
}

package redis

import (
	"context"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// SAdd adds members to a set.
func (s *Store) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Sadd().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.opErr(db.OpSAdd, err)
	}
	return nil
}

// SRem removes members from a set. Removing the last member deletes the key.
func (s *Store) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Srem().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.opErr(db.OpSRem, err)
	}
	return nil
}

// SMembers returns all members of a set; a missing key is an empty set.
func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	cmd := s.b().Smembers().Key(key).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, s.opErr(db.OpSMembers, err)
	}
	return members, nil
}

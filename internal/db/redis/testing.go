package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with the provided rueidis client and no retries (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c, Config{Retry: RetryConfig{MaxAttempts: 1}})
}

// NewStoreForTestWithConfig creates a Store with the provided rueidis client and settings (test-only).
func NewStoreForTestWithConfig(c rueidis.Client, cfg Config) *Store {
	return newStore(c, cfg)
}

package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	SetStore
	KeyScanner
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONSetItem holds a single key+path+data triple for pipelined JSON.SET.
type JSONSetItem struct {
	Key  string
	Path string
	Data []byte
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetNX(ctx context.Context, key string, data []byte) (bool, error)
	// JSONSetMulti pipelines the writes; the returned slice holds one error per item (nil = ok).
	JSONSetMulti(ctx context.Context, items []JSONSetItem) []error
	JSONGet(ctx context.Context, key string) ([]byte, error)
	// JSONMGet returns the root document of each key, nil for missing keys.
	JSONMGet(ctx context.Context, keys []string) ([][]byte, error)
	// JSONArrAddUnique appends a JSON-encoded value to the array at path unless present.
	// Atomic per key; returns ErrKeyNotFound for a missing key.
	JSONArrAddUnique(ctx context.Context, key, path string, value []byte) (bool, error)
	// JSONArrRemove removes every element equal to one of the values. Atomic per key.
	JSONArrRemove(ctx context.Context, key, path string, values ...[]byte) (int, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SetStore provides unordered set operations (reverse indexes).
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// KeyScanner iterates keys with a server-side cursor.
type KeyScanner interface {
	// ScanPage returns one SCAN step. The cursor is opaque; "" starts an iteration
	// and next == "" means it is complete.
	ScanPage(ctx context.Context, pattern, cursor string, count int) (keys []string, next string, err error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	// DropIndex removes the index; deleteDocs also removes every indexed document (DD).
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *Query) (*SearchResult, error)
}

package schema

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// store is the consumer interface for schema management (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	Scan(ctx context.Context, pattern string) ([]string, error)
	Del(ctx context.Context, keys ...string) error
}

// Manager creates and recreates the collections.
type Manager struct {
	store  store
	ks     db.Keyspace
	logger *zap.Logger
}

// NewManager creates a schema manager.
func NewManager(s store, ks db.Keyspace) *Manager {
	return &Manager{store: s, ks: ks, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (m *Manager) WithLogger(l *zap.Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// Collections returns the definitions for the connected backend.
func (m *Manager) Collections(ctx context.Context) []Collection {
	text := m.store.SupportsTextSearch(ctx)
	return []Collection{
		ArticlesCollection(m.ks, text),
		TagsCollection(m.ks, text),
	}
}

// Provision drops the collection with all its documents (a missing index is fine)
// and creates it fresh. Destroys data.
func (m *Manager) Provision(ctx context.Context, c Collection) error {
	if err := m.store.DropIndex(ctx, c.Definition.Name, true); err != nil &&
		!errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", c.Definition.Name, err)
	}

	// DD is best effort (and absent on valkey-search): purge what is left under the prefixes.
	patterns := make([]string, 0, len(c.Definition.Prefixes)+len(c.Purge))
	for _, p := range c.Definition.Prefixes {
		patterns = append(patterns, p+"*")
	}
	patterns = append(patterns, c.Purge...)
	for _, pattern := range patterns {
		n, err := m.purge(ctx, pattern)
		if err != nil {
			return fmt.Errorf("purge %s: %w", pattern, err)
		}
		if n > 0 {
			m.logger.Info("purged keys", zap.String("pattern", pattern), zap.Int("count", n))
		}
	}

	if err := m.store.CreateIndex(ctx, c.Definition); err != nil {
		return fmt.Errorf("create index %s: %w", c.Definition.Name, err)
	}

	m.logger.Info("collection provisioned",
		zap.String("collection", c.Name),
		zap.String("index", c.Definition.Name),
	)
	return nil
}

// ProvisionAll provisions every collection, stopping at the first failure.
func (m *Manager) ProvisionAll(ctx context.Context) error {
	for _, c := range m.Collections(ctx) {
		if err := m.Provision(ctx, c); err != nil {
			return fmt.Errorf("provision %s: %w", c.Name, err)
		}
	}
	return nil
}

// EnsureAll creates missing indexes without touching existing ones or their data.
func (m *Manager) EnsureAll(ctx context.Context) error {
	for _, c := range m.Collections(ctx) {
		exists, err := m.store.IndexExists(ctx, c.Definition.Name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", c.Definition.Name, err)
		}
		if exists {
			continue
		}
		if err := m.store.CreateIndex(ctx, c.Definition); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", c.Definition.Name, err)
		}
		m.logger.Info("index created", zap.String("collection", c.Name))
	}
	return nil
}

// ErrIndexMissing is returned by Verify when a collection index does not exist.
var ErrIndexMissing = errors.New("index missing")

// Verify checks that every collection index exists.
func (m *Manager) Verify(ctx context.Context) error {
	for _, c := range m.Collections(ctx) {
		exists, err := m.store.IndexExists(ctx, c.Definition.Name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", c.Definition.Name, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", c.Definition.Name, ErrIndexMissing)
		}
	}
	return nil
}

func (m *Manager) purge(ctx context.Context, pattern string) (int, error) {
	keys, err := m.store.Scan(ctx, pattern)
	if err != nil {
		return 0, err
	}
	const chunk = 500
	for i := 0; i < len(keys); i += chunk {
		end := min(i+chunk, len(keys))
		if err := m.store.Del(ctx, keys[i:end]...); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

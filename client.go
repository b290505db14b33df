package tagdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tagdex/internal/db"
	dbRedis "github.com/kailas-cloud/tagdex/internal/db/redis"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
	articlerepo "github.com/kailas-cloud/tagdex/internal/repository/article"
	"github.com/kailas-cloud/tagdex/internal/repository/docstore"
	"github.com/kailas-cloud/tagdex/internal/repository/schema"
	tagrepo "github.com/kailas-cloud/tagdex/internal/repository/tag"
	"github.com/kailas-cloud/tagdex/internal/repository/tagref"
	healthuc "github.com/kailas-cloud/tagdex/internal/usecase/health"
	integrityuc "github.com/kailas-cloud/tagdex/internal/usecase/integrity"
	queryuc "github.com/kailas-cloud/tagdex/internal/usecase/query"
	tagginguc "github.com/kailas-cloud/tagdex/internal/usecase/tagging"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "tagdex:"
)

// Internal interfaces for substitution in tests.
type taggingUseCase interface {
	CreateTag(ctx context.Context, name, description string) (domtag.Tag, error)
	UpdateTagDescription(ctx context.Context, name, description string) (domtag.Tag, error)
	DeleteTag(ctx context.Context, name string) ([]batch.Result, error)
	AddTagToArticles(ctx context.Context, name string, articleIDs []int64) ([]batch.Result, error)
	RemoveTagFromArticles(ctx context.Context, name string, articleIDs []int64) ([]batch.Result, error)
	BulkLoadArticles(ctx context.Context, drafts []domart.Draft) ([]batch.Result, error)
}

type queryUseCase interface {
	ListArticles(ctx context.Context, cursor string, limit int) ([]domart.Summary, string, error)
	AllArticles(ctx context.Context) ([]domart.Summary, error)
	GetArticle(ctx context.Context, id int64) (domart.Article, error)
	ListAllTagNames(ctx context.Context) ([]string, error)
	ListTags(ctx context.Context, cursor string, limit int) ([]domtag.Tag, string, error)
	GetTag(ctx context.Context, name string) (domtag.Tag, error)
	ListTagsForArticles(ctx context.Context, ids []int64, dedupe bool) ([]string, error)
	ListTagOccurrences(ctx context.Context) ([]string, error)
	FindTagsByPrefix(ctx context.Context, prefix string) ([]string, error)
	ListArticleIDsByTag(ctx context.Context, name string) ([]int64, error)
	ListKeywordsForArticles(ctx context.Context, ids []int64) ([]string, error)
	ListAllKeywords(ctx context.Context) ([]string, error)
	ResolveArticleURLs(ctx context.Context, ids []int64) ([]string, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type sweeper interface {
	Sweep(ctx context.Context) (integrityuc.Report, error)
}

type schemaManager interface {
	ProvisionAll(ctx context.Context) error
	EnsureAll(ctx context.Context) error
}

// Client is the tagdex SDK entry point. It is safe for concurrent use.
type Client struct {
	store     db.Store
	tagging   taggingUseCase
	query     queryUseCase
	health    healthUseCase
	integrity sweeper
	schema    schemaManager
	obs       *observer
}

// New creates a tagdex Client and connects to the database.
// The provided context is used for the initial readiness check.
// Indexes are not created; call EnsureSchema or Provision.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:        defaultKeyPrefix,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("tagdex: database address required (use WithValkey or WithRedis)")
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("tagdex: database not ready: %w", err)
	}

	return wireClient(store, cfg, obs), nil
}

func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
	default:
		return nil, fmt.Errorf("tagdex: unknown driver %q", cfg.driver)
	}
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.addrs,
		Password:   cfg.password,
		Standalone: cfg.standalone,
		Valkey:     cfg.driver == "valkey",
	})
	if err != nil {
		return nil, fmt.Errorf("tagdex: create %s store: %w", cfg.driver, err)
	}
	return s, nil
}

// wireClient assembles the services. Internal components stay silent; the SDK
// reports through the observer.
func wireClient(store *dbRedis.Store, cfg *clientConfig, obs *observer) *Client {
	ks := db.NewKeyspace(cfg.keyPrefix)
	docs := docstore.New(store, ks)
	articles := articlerepo.New(docs)
	tags := tagrepo.New(docs)
	refs := tagref.New(store, ks)
	mgr := schema.NewManager(store, ks)

	tagging := tagginguc.New(articles, tags, refs)
	if cfg.maxBatchSize > 0 {
		tagging = tagging.WithMaxBatchSize(cfg.maxBatchSize)
	}
	integrity := integrityuc.New(articles, tags, refs)
	if cfg.gracePeriod > 0 {
		integrity = integrity.WithGracePeriod(cfg.gracePeriod)
	}

	return &Client{
		store:     store,
		tagging:   tagging,
		query:     queryuc.New(articles, tags).WithAnalyzer(tags.Analyzer()),
		health:    healthuc.New(store, mgr),
		integrity: integrity,
		schema:    mgr,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Provision drops and recreates the article and tag collections. Destroys data.
func (c *Client) Provision(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("schema.provision", start, err) }()
	return c.schema.ProvisionAll(ctx)
}

// EnsureSchema creates missing indexes and leaves existing ones untouched.
func (c *Client) EnsureSchema(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("schema.ensure", start, err) }()
	return c.schema.EnsureAll(ctx)
}

// Sweep runs one integrity pass: merges duplicate tag names, strips tag ids that no
// longer resolve and drops reverse-index sets of deleted tags.
func (c *Client) Sweep(ctx context.Context) (_ SweepReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("integrity.sweep", start, err) }()

	r, err := c.integrity.Sweep(ctx)
	return fromReport(r), err
}

// Health checks the health of all system components.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.health.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/config"
	"github.com/kailas-cloud/tagdex/internal/db"
	dbRedis "github.com/kailas-cloud/tagdex/internal/db/redis"
	logpkg "github.com/kailas-cloud/tagdex/internal/logger"
	"github.com/kailas-cloud/tagdex/internal/metrics"
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

// app is the composition root shared by the subcommands.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  *dbRedis.Store
	schema *schema.Manager

	tagging   *tagginguc.Service
	query     *queryuc.Service
	health    *healthuc.Service
	integrity *integrityuc.Service
}

// newApp loads the configuration, connects to the store and wires the services.
func newApp(cmd *cobra.Command) (*app, error) {
	env, _ := cmd.Flags().GetString("env")
	if env == "" {
		env = config.GetEnv()
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       cfg.Database.Addrs,
		Password:    cfg.Database.Password,
		Standalone:  cfg.Database.Standalone,
		Valkey:      cfg.Database.Driver == "valkey",
		CallTimeout: time.Duration(cfg.Database.CallTimeoutMs) * time.Millisecond,
		Retry: dbRedis.RetryConfig{
			MaxAttempts:     cfg.Database.Retry.MaxAttempts,
			InitialInterval: time.Duration(cfg.Database.Retry.InitialIntervalMs) * time.Millisecond,
			MaxInterval:     time.Duration(cfg.Database.Retry.MaxIntervalMs) * time.Millisecond,
		},
		Logger:   logger.Named("store"),
		Observer: metrics.StoreObserver{},
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create database store: %w", err)
	}

	ks := db.NewKeyspace(cfg.Storage.KeyPrefix)
	docs := docstore.New(store, ks)
	articles := articlerepo.New(docs)
	tags := tagrepo.New(docs)
	refs := tagref.New(store, ks)
	mgr := schema.NewManager(store, ks).WithLogger(logger.Named("schema"))

	a := &app{
		env:    env,
		cfg:    cfg,
		logger: logger,
		store:  store,
		schema: mgr,
		tagging: tagginguc.New(articles, tags, refs).
			WithLogger(logger.Named("tagging")).
			WithRecorder(metrics.MutationRecorder{}).
			WithMaxBatchSize(cfg.Index.MaxBatchSize).
			WithVisibility(time.Duration(cfg.Index.VisibilityTimeoutMs)*time.Millisecond, 0),
		query: queryuc.New(articles, tags).
			WithPagination(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize).
			WithAnalyzer(tags.Analyzer()),
		health: healthuc.New(store, mgr),
		integrity: integrityuc.New(articles, tags, refs).
			WithLogger(logger.Named("integrity")).
			WithObserver(metrics.SweepObserver{}).
			WithGracePeriod(time.Duration(cfg.Integrity.GracePeriodSec) * time.Second),
	}
	return a, nil
}

// waitForStore blocks until the store answers or the readiness timeout passes.
func (a *app) waitForStore(ctx context.Context) error {
	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := a.store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database",
		zap.String("db_driver", a.cfg.Database.Driver),
		zap.Strings("db_addrs", a.cfg.Database.Addrs),
	)
	return nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

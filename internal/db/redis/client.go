package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const (
	defaultCallTimeout     = 2 * time.Second
	defaultMaxAttempts     = 4
	defaultInitialInterval = 50 * time.Millisecond
	defaultMaxInterval     = time.Second
)

// RetryConfig bounds the exponential backoff applied to transient failures.
type RetryConfig struct {
	MaxAttempts     int // total attempts including the first; 1 disables retries
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Observer receives per-command telemetry. Implemented by the metrics package.
type Observer interface {
	ObserveCommand(op string, d time.Duration, err error)
	ObserveRetry(op string)
}

// Config holds connection parameters for a Redis or Valkey store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int

	// Standalone forces a single-node client even when the address is a cluster member.
	Standalone bool
	// Valkey selects valkey-search semantics: no TEXT fields, no bare "*" FT query, no DD.
	Valkey bool

	CallTimeout time.Duration
	Retry       RetryConfig
	Logger      *zap.Logger
	Observer    Observer
}

// Store implements db.Store via rueidis for Redis 8+ and Valkey with search/JSON modules.
type Store struct {
	client      rueidis.Client
	valkey      bool
	standalone  bool
	callTimeout time.Duration
	retry       RetryConfig
	logger      *zap.Logger
	observer    Observer
}

// NewStore creates a store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       cfg.Addrs,
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ForceSingleClient: cfg.Standalone,
		DisableCache:      true,
		AlwaysRESP2:       true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return newStore(client, cfg), nil
}

func newStore(client rueidis.Client, cfg Config) *Store {
	s := &Store{
		client:      client,
		valkey:      cfg.Valkey,
		standalone:  cfg.Standalone,
		callTimeout: cfg.CallTimeout,
		retry:       cfg.Retry,
		logger:      cfg.Logger,
		observer:    cfg.Observer,
	}
	if s.callTimeout <= 0 {
		s.callTimeout = defaultCallTimeout
	}
	if s.retry.MaxAttempts <= 0 {
		s.retry.MaxAttempts = defaultMaxAttempts
	}
	if s.retry.InitialInterval <= 0 {
		s.retry.InitialInterval = defaultInitialInterval
	}
	if s.retry.MaxInterval <= 0 {
		s.retry.MaxInterval = defaultMaxInterval
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	return s
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.b().Ping().Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return s.opErr(db.OpPing, err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.client.Do(ctx, s.b().Ping().Build()).Error(); err == nil {
				return nil
			}
		}
	}
}

// do runs a single command with the per-call timeout, retrying transient failures.
// The result of the last attempt is returned; a transient error left in it means
// the retry budget is exhausted (see opErr).
func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.doOn(ctx, s.client, cmd)
}

// doOn is do against a specific client, such as one cluster node.
func (s *Store) doOn(ctx context.Context, c rueidis.Client, cmd rueidis.Completed) rueidis.RedisResult {
	cmd = cmd.Pin()
	op := opName(cmd.Commands())

	var res rueidis.RedisResult
	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			s.observer.ObserveRetry(op)
		}
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		start := time.Now()
		res = c.Do(callCtx, cmd)
		err := res.Error()
		s.observer.ObserveCommand(op, time.Since(start), err)

		if err == nil || !isTransient(err) || ctx.Err() != nil {
			return nil
		}
		s.logger.Debug("transient store error",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}
	if err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		s.logger.Warn("store retries exhausted",
			zap.String("op", op), zap.Int("attempts", attempt), zap.Error(err))
	}
	return res
}

// doMulti pipelines commands; only items that failed transiently are resent.
func (s *Store) doMulti(ctx context.Context, cmds []rueidis.Completed) []rueidis.RedisResult {
	if len(cmds) == 0 {
		return nil
	}
	for i := range cmds {
		cmds[i] = cmds[i].Pin()
	}
	op := opName(cmds[0].Commands())

	results := make([]rueidis.RedisResult, len(cmds))
	pending := make([]int, len(cmds))
	for i := range pending {
		pending[i] = i
	}

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			s.observer.ObserveRetry(op)
		}
		batch := make([]rueidis.Completed, len(pending))
		for j, idx := range pending {
			batch[j] = cmds[idx]
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()

		start := time.Now()
		out := s.client.DoMulti(callCtx, batch...)
		elapsed := time.Since(start)

		var retry []int
		var lastErr error
		for j, res := range out {
			idx := pending[j]
			results[idx] = res
			err := res.Error()
			s.observer.ObserveCommand(op, elapsed, err)
			if err != nil && isTransient(err) {
				retry = append(retry, idx)
				lastErr = err
			}
		}
		pending = retry
		if len(pending) == 0 || ctx.Err() != nil {
			return nil
		}
		return lastErr
	}
	if err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx)); err != nil {
		s.logger.Warn("store pipeline retries exhausted",
			zap.String("op", op), zap.Int("failed", len(pending)), zap.Error(err))
	}
	return results
}

func (s *Store) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retry.InitialInterval
	eb.MaxInterval = s.retry.MaxInterval
	eb.MaxElapsedTime = 0 // bounded by attempts and ctx
	return backoff.WithMaxRetries(eb, uint64(s.retry.MaxAttempts-1))
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// opErr wraps a command error. A transient error surviving do() means retries are exhausted.
func (s *Store) opErr(op string, err error) error {
	if isTransient(err) {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", db.ErrUnavailable, err)}
	}
	return &db.Error{Op: op, Err: err}
}

// isTransient reports whether err is worth retrying: transport failures, per-call
// timeouts and the server's "try later" replies. Nil replies and other server errors are final.
func isTransient(err error) bool {
	if err == nil || rueidis.IsRedisNil(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, rueidis.ErrClosing) {
		return false
	}
	if re, ok := rueidis.IsRedisErr(err); ok {
		msg := re.Error()
		for _, p := range []string{"LOADING", "TRYAGAIN", "BUSY", "CLUSTERDOWN", "MASTERDOWN"} {
			if strings.HasPrefix(msg, p) {
				return true
			}
		}
		return false
	}
	return true
}

// isRedisErr checks if err is a server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func opName(cmd []string) string {
	if len(cmd) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(cmd[0])
}

type nopObserver struct{}

func (nopObserver) ObserveCommand(string, time.Duration, error) {}
func (nopObserver) ObserveRetry(string)                         {}

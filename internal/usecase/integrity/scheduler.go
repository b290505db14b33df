package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs one integrity pass.
type Sweeper interface {
	Sweep(ctx context.Context) (Report, error)
}

// Scheduler runs sweeps on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *zap.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler. A zero timeout means sweeps are not bounded.
func NewScheduler(sweeper Sweeper, logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{l: logger.Named("cron")}
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
		sweeper: sweeper,
		logger:  logger,
		timeout: timeout,
	}
}

// Start registers the sweep under schedule and starts the cron loop.
func (s *Scheduler) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return fmt.Errorf("invalid integrity schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("integrity sweep scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop halts scheduling and waits for a running sweep until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("integrity sweep still running at shutdown")
	}
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("integrity sweep failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

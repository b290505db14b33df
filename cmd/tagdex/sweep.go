package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one integrity sweep and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if err := a.waitForStore(ctx); err != nil {
				return err
			}
			if t := a.cfg.Integrity.TimeoutSec; t > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(t)*time.Second)
				defer cancel()
			}

			r, err := a.integrity.Sweep(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("Sweep finished", zap.Int("failures", r.Failures))
			return nil
		},
	}
}

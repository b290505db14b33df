package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	"github.com/kailas-cloud/tagdex/internal/source/enrichment"
)

func newLoadCmd() *cobra.Command {
	var chunk int
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Bulk load enriched articles from a JSON array or JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := enrichment.ReadFile(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.waitForStore(cmd.Context()); err != nil {
				return err
			}
			if err := a.schema.EnsureAll(cmd.Context()); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}

			if chunk <= 0 {
				chunk = a.cfg.Index.MaxBatchSize
			}
			counts := map[batch.ItemStatus]int{}
			for start := 0; start < len(drafts); start += chunk {
				end := min(start+chunk, len(drafts))
				results, err := a.tagging.BulkLoadArticles(cmd.Context(), drafts[start:end])
				if err != nil && !errors.Is(err, domain.ErrPartialFailure) {
					return fmt.Errorf("load records %d-%d: %w", start, end-1, err)
				}
				logFailures(a.logger, drafts[start:end], results)
				for status, n := range batch.Count(results) {
					counts[status] += n
				}
			}

			a.logger.Info("Articles loaded",
				zap.String("file", args[0]),
				zap.Int("records", len(drafts)),
				zap.Int("applied", counts[batch.StatusApplied]),
				zap.Int("failed", counts[batch.StatusError]+counts[batch.StatusNotFound]),
			)
			if failed := counts[batch.StatusError] + counts[batch.StatusNotFound]; failed > 0 {
				return fmt.Errorf("%d of %d records failed", failed, len(drafts))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&chunk, "chunk", 0, "records per bulk request (defaults to index.max_batch_size)")
	return cmd
}

func logFailures(logger *zap.Logger, drafts []domart.Draft, results []batch.Result) {
	for i, r := range results {
		if !r.Failed() {
			continue
		}
		logger.Warn("record rejected",
			zap.Int64("id", drafts[i].ID),
			zap.String("status", string(r.Status())),
			zap.Error(r.Err()),
		)
	}
}

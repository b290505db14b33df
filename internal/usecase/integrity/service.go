package integrity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

const (
	pageSize = 500

	// DefaultGracePeriod protects duplicates whose creators may still be re-checking.
	DefaultGracePeriod = time.Minute
)

// Report summarizes one sweep.
type Report struct {
	ArticlesScanned  int
	ArticlesRepaired int
	DanglingRemoved  int
	RefSetsDropped   int
	DuplicatesMerged int
	Failures         int
}

// Service repairs what interrupted or racing mutations leave behind:
// dangling tag ids on articles, orphaned reverse-index sets and duplicate tag names.
type Service struct {
	articles ArticleRepository
	tags     TagRepository
	refs     RefRepository
	logger   *zap.Logger
	observer Observer
	grace    time.Duration
	now      func() time.Time
}

// New creates an integrity service.
func New(articles ArticleRepository, tags TagRepository, refs RefRepository) *Service {
	return &Service{
		articles: articles,
		tags:     tags,
		refs:     refs,
		logger:   zap.NewNop(),
		observer: nopObserver{},
		grace:    DefaultGracePeriod,
		now:      time.Now,
	}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithObserver sets the sweep observer.
func (s *Service) WithObserver(o Observer) *Service {
	if o != nil {
		s.observer = o
	}
	return s
}

// WithGracePeriod sets how old a duplicate tag must be before it is merged.
func (s *Service) WithGracePeriod(d time.Duration) *Service {
	if d >= 0 {
		s.grace = d
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Sweep runs every repair step. Item failures are counted and skipped;
// only a failure to enumerate aborts the sweep.
func (s *Service) Sweep(ctx context.Context) (r Report, err error) {
	start := time.Now()
	defer func() {
		s.observer.ObserveSweep(time.Since(start),
			r.ArticlesRepaired, r.RefSetsDropped, r.DuplicatesMerged, r.Failures, err)
	}()

	if err := s.mergeDuplicates(ctx, &r); err != nil {
		return r, fmt.Errorf("merge duplicate tags: %w", err)
	}
	if err := s.repairArticles(ctx, &r); err != nil {
		return r, fmt.Errorf("repair articles: %w", err)
	}
	if err := s.dropOrphanRefs(ctx, &r); err != nil {
		return r, fmt.Errorf("drop orphan reverse indexes: %w", err)
	}

	s.logger.Info("integrity sweep finished",
		zap.Int("articles_scanned", r.ArticlesScanned),
		zap.Int("articles_repaired", r.ArticlesRepaired),
		zap.Int("dangling_removed", r.DanglingRemoved),
		zap.Int("ref_sets_dropped", r.RefSetsDropped),
		zap.Int("duplicates_merged", r.DuplicatesMerged),
		zap.Int("failures", r.Failures),
		zap.Duration("took", time.Since(start)),
	)
	return r, nil
}

// repairArticles strips tag ids that no longer resolve to a live tag.
func (s *Service) repairArticles(ctx context.Context, r *Report) error {
	live := make(map[string]bool)
	seen := make(map[int64]struct{})
	cursor := ""
	for {
		articles, next, err := s.articles.List(ctx, cursor, pageSize)
		if err != nil {
			return err
		}
		if err := s.resolveLiveness(ctx, articles, live); err != nil {
			return err
		}
		for i := range articles {
			a := &articles[i]
			if _, dup := seen[a.ID()]; dup {
				continue
			}
			seen[a.ID()] = struct{}{}
			r.ArticlesScanned++

			dropped := a.RetainTags(func(id string) bool { return live[id] })
			if len(dropped) == 0 {
				continue
			}
			n, err := s.articles.RemoveTags(ctx, a.ID(), dropped...)
			if errors.Is(err, domain.ErrNotFound) {
				continue // deleted since listed
			}
			if err != nil {
				r.Failures++
				s.logger.Warn("article repair failed", zap.Int64("article_id", a.ID()), zap.Error(err))
				continue
			}
			if n > 0 {
				r.ArticlesRepaired++
				r.DanglingRemoved += n
			}
		}
		if next == "" {
			return nil
		}
		cursor = next
	}
}

func (s *Service) resolveLiveness(ctx context.Context, articles []domart.Article, live map[string]bool) error {
	var unknown []string
	for i := range articles {
		for _, id := range articles[i].Tags() {
			if _, ok := live[id]; !ok && !slices.Contains(unknown, id) {
				unknown = append(unknown, id)
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	tags, err := s.tags.GetMany(ctx, unknown)
	if err != nil {
		return err
	}
	for i, id := range unknown {
		live[id] = i < len(tags) && tags[i] != nil
	}
	return nil
}

// dropOrphanRefs deletes reverse-index sets of tags that no longer exist.
func (s *Service) dropOrphanRefs(ctx context.Context, r *Report) error {
	ids, err := s.refs.TagIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	tags, err := s.tags.GetMany(ctx, ids)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if i < len(tags) && tags[i] != nil {
			continue
		}
		if err := s.refs.Drop(ctx, id); err != nil {
			r.Failures++
			s.logger.Warn("reverse index drop failed", zap.String("tag_id", id), zap.Error(err))
			continue
		}
		r.RefSetsDropped++
	}
	return nil
}

// mergeDuplicates resolves name collisions left by creation races: articles carrying
// a losing tag are moved to the winner, then the loser is deleted.
func (s *Service) mergeDuplicates(ctx context.Context, r *Report) error {
	byName := make(map[string][]domtag.Tag)
	cursor := ""
	for {
		tags, next, err := s.tags.List(ctx, cursor, pageSize)
		if err != nil {
			return err
		}
		for _, t := range tags {
			group := byName[t.Name()]
			if slices.ContainsFunc(group, func(x domtag.Tag) bool { return x.ID() == t.ID() }) {
				continue
			}
			byName[t.Name()] = append(group, t)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	cutoff := s.now().Add(-s.grace)
	for name, group := range byName {
		if len(group) < 2 {
			continue
		}
		winner, _ := domtag.Winner(group)
		for i := range group {
			loser := &group[i]
			if loser.ID() == winner.ID() || loser.CreatedAt().After(cutoff) {
				continue
			}
			if err := s.merge(ctx, loser.ID(), winner.ID()); err != nil {
				r.Failures++
				s.logger.Warn("duplicate tag merge failed",
					zap.String("name", name), zap.String("tag_id", loser.ID()), zap.Error(err))
				continue
			}
			r.DuplicatesMerged++
		}
	}
	return nil
}

func (s *Service) merge(ctx context.Context, fromID, toID string) error {
	ids, err := s.refs.Members(ctx, fromID)
	if err != nil {
		return err
	}
	cursor := ""
	for {
		page, next, err := s.articles.IDsByTag(ctx, fromID, cursor, pageSize)
		if err != nil {
			return err
		}
		ids = append(ids, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	slices.Sort(ids)

	var errs []error
	for _, id := range slices.Compact(ids) {
		if err := s.retag(ctx, id, fromID, toID); err != nil {
			errs = append(errs, fmt.Errorf("article %d: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if err := s.tags.Delete(ctx, fromID); err != nil {
		return err
	}
	return s.refs.Drop(ctx, fromID)
}

func (s *Service) retag(ctx context.Context, id int64, fromID, toID string) error {
	a, err := s.articles.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !a.HasTag(fromID) {
		return nil
	}
	if err := s.refs.Add(ctx, toID, id); err != nil {
		return err
	}
	if _, err := s.articles.AddTag(ctx, id, toID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := s.articles.RemoveTags(ctx, id, fromID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.refs.Remove(ctx, fromID, id)
}

type nopObserver struct{}

func (nopObserver) ObserveSweep(time.Duration, int, int, int, int, error) {}

package tagging

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tagdex/internal/domain"
	domart "github.com/kailas-cloud/tagdex/internal/domain/article"
	"github.com/kailas-cloud/tagdex/internal/domain/batch"
	domtag "github.com/kailas-cloud/tagdex/internal/domain/tag"
)

// Defaults for the service knobs.
const (
	DefaultMaxBatchSize       = 500
	DefaultVisibilityTimeout  = 5 * time.Second
	DefaultVisibilityInterval = 50 * time.Millisecond

	cascadePageSize = 500
	maxIDAttempts   = 3
)

// Operation names reported to the Recorder.
const (
	OpAddTag    = "add_tag"
	OpRemoveTag = "remove_tag"
	OpDeleteTag = "delete_tag"
	OpBulkLoad  = "bulk_load"
)

var errNotVisible = errors.New("tag not yet visible to search")

// Service maintains referential integrity between articles and tags.
// There is no lock: every article is updated with an idempotent element edit
// and multi-article mutations report a result per article.
type Service struct {
	articles ArticleRepository
	tags     TagRepository
	refs     RefRepository
	recorder Recorder
	logger   *zap.Logger

	maxBatchSize       int
	visibilityTimeout  time.Duration
	visibilityInterval time.Duration
	now                func() time.Time
	newID              func() string
}

// New creates a tagging service.
func New(articles ArticleRepository, tags TagRepository, refs RefRepository) *Service {
	return &Service{
		articles:           articles,
		tags:               tags,
		refs:               refs,
		recorder:           nopRecorder{},
		logger:             zap.NewNop(),
		maxBatchSize:       DefaultMaxBatchSize,
		visibilityTimeout:  DefaultVisibilityTimeout,
		visibilityInterval: DefaultVisibilityInterval,
		now:                time.Now,
		newID:              uuid.NewString,
	}
}

// WithLogger sets the logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithRecorder sets the mutation outcome recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithMaxBatchSize sets how many articles one bulk write carries.
func (s *Service) WithMaxBatchSize(n int) *Service {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// WithVisibility configures how long CreateTag waits for its write to become searchable.
func (s *Service) WithVisibility(timeout, interval time.Duration) *Service {
	if timeout > 0 {
		s.visibilityTimeout = timeout
	}
	if interval > 0 {
		s.visibilityInterval = interval
	}
	return s
}

// WithClock overrides the creation timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithIDGenerator overrides tag id generation.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	if gen != nil {
		s.newID = gen
	}
	return s
}

// Resolve returns the live tag named exactly name. When a creation race left
// duplicates, the race winner is returned.
func (s *Service) Resolve(ctx context.Context, name string) (domtag.Tag, error) {
	if err := domtag.ValidateName(name); err != nil {
		return domtag.Tag{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	live, err := s.tags.FindByName(ctx, name)
	if err != nil {
		return domtag.Tag{}, fmt.Errorf("find tag %q: %w", name, err)
	}
	t, ok := domtag.Winner(live)
	if !ok {
		return domtag.Tag{}, fmt.Errorf("tag %q: %w", name, domain.ErrTagNotFound)
	}
	return t, nil
}

// AddTagToArticles attaches the tag to every listed article.
// Articles that already carry it report unchanged.
func (s *Service) AddTagToArticles(ctx context.Context, name string, articleIDs []int64) ([]batch.Result, error) {
	t, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	results := make([]batch.Result, len(articleIDs))
	for i, id := range articleIDs {
		results[i] = s.attach(ctx, t.ID(), id)
	}
	return s.finish(OpAddTag, name, results)
}

// attach adds tagID to the article, recording the reverse-index entry first.
func (s *Service) attach(ctx context.Context, tagID string, id int64) batch.Result {
	key := domart.FormatID(id)
	if _, err := s.articles.Get(ctx, id); err != nil {
		return itemFailure(key, err)
	}
	if err := s.refs.Add(ctx, tagID, id); err != nil {
		return batch.NewError(key, fmt.Errorf("record reverse index: %w", err))
	}
	added, err := s.articles.AddTag(ctx, id, tagID)
	if err != nil {
		return itemFailure(key, err)
	}
	if !added {
		return batch.NewUnchanged(key)
	}
	return batch.NewApplied(key)
}

// RemoveTagFromArticles detaches the tag from every listed article.
// Articles that do not carry it report unchanged.
func (s *Service) RemoveTagFromArticles(
	ctx context.Context, name string, articleIDs []int64,
) ([]batch.Result, error) {
	t, err := s.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	results := make([]batch.Result, len(articleIDs))
	for i, id := range articleIDs {
		results[i] = s.detach(ctx, t.ID(), id, false)
	}
	return s.finish(OpRemoveTag, name, results)
}

// detach removes tagID from the article and then its reverse-index entry.
// With missingOK a vanished article counts as unchanged.
func (s *Service) detach(ctx context.Context, tagID string, id int64, missingOK bool) batch.Result {
	key := domart.FormatID(id)
	n, err := s.articles.RemoveTags(ctx, id, tagID)
	if err != nil {
		if missingOK && errors.Is(err, domain.ErrNotFound) {
			return batch.NewUnchanged(key)
		}
		return itemFailure(key, err)
	}
	if n == 0 {
		return batch.NewUnchanged(key)
	}
	if err := s.refs.Remove(ctx, tagID, id); err != nil {
		// a stale entry only widens the superset
		s.logger.Debug("reverse index entry left behind",
			zap.String("tag_id", tagID), zap.Int64("article_id", id), zap.Error(err))
	}
	return batch.NewApplied(key)
}

// CreateTag creates a tag with a unique name and returns it once it is searchable.
//
// Returns domain.ErrAlreadyExists if a live tag has the name, including when a
// concurrent creator of the same name wins the race. Returns domain.ErrStoreUnavailable
// if the write never became visible; the write is then rolled back.
func (s *Service) CreateTag(ctx context.Context, name, description string) (domtag.Tag, error) {
	if err := domtag.ValidateName(name); err != nil {
		return domtag.Tag{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	live, err := s.tags.FindByName(ctx, name)
	if err != nil {
		return domtag.Tag{}, fmt.Errorf("find tag %q: %w", name, err)
	}
	if len(live) > 0 {
		return domtag.Tag{}, fmt.Errorf("tag %q: %w", name, domain.ErrAlreadyExists)
	}

	t, err := s.write(ctx, name, description)
	if err != nil {
		return domtag.Tag{}, err
	}

	live, err = s.awaitVisible(ctx, &t)
	if err != nil {
		s.rollback(ctx, &t, "not visible")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domtag.Tag{}, fmt.Errorf("create tag %q: %w", name, ctxErr)
		}
		return domtag.Tag{}, fmt.Errorf("create tag %q: not searchable after %s: %w: %w",
			name, s.visibilityTimeout, domain.ErrStoreUnavailable, err)
	}

	if winner, _ := domtag.Winner(live); winner.ID() != t.ID() {
		s.rollback(ctx, &t, "lost duplicate-name race")
		return domtag.Tag{}, fmt.Errorf("tag %q: %w", name, domain.ErrAlreadyExists)
	}
	return t, nil
}

func (s *Service) write(ctx context.Context, name, description string) (domtag.Tag, error) {
	for range maxIDAttempts {
		t, err := domtag.New(s.newID(), name, description, s.now())
		if err != nil {
			return domtag.Tag{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
		}
		ok, err := s.tags.Create(ctx, &t)
		if err != nil {
			return domtag.Tag{}, fmt.Errorf("create tag %q: %w", name, err)
		}
		if ok {
			return t, nil
		}
	}
	return domtag.Tag{}, fmt.Errorf("create tag %q: no free id after %d attempts", name, maxIDAttempts)
}

// awaitVisible polls the name lookup until it returns t and yields the live tags seen then.
func (s *Service) awaitVisible(ctx context.Context, t *domtag.Tag) ([]domtag.Tag, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.visibilityInterval
	b.MaxInterval = max(s.visibilityTimeout/4, s.visibilityInterval)
	b.MaxElapsedTime = s.visibilityTimeout

	var live []domtag.Tag
	op := func() error {
		found, err := s.tags.FindByName(ctx, t.Name())
		if err != nil {
			return err
		}
		if !slices.ContainsFunc(found, func(x domtag.Tag) bool { return x.ID() == t.ID() }) {
			return errNotVisible
		}
		live = found
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by the caller
	}
	return live, nil
}

func (s *Service) rollback(ctx context.Context, t *domtag.Tag, reason string) {
	if err := s.tags.Delete(context.WithoutCancel(ctx), t.ID()); err != nil {
		s.logger.Warn("tag rollback failed",
			zap.String("tag_id", t.ID()), zap.String("name", t.Name()),
			zap.String("reason", reason), zap.Error(err))
		return
	}
	s.logger.Info("tag creation rolled back",
		zap.String("tag_id", t.ID()), zap.String("name", t.Name()), zap.String("reason", reason))
}

// DeleteTag deletes every live tag with the name and removes it from all articles.
//
// The reverse-index set of a tag is dropped only when every article was cleaned,
// so a partial cascade stays discoverable for the integrity sweep.
func (s *Service) DeleteTag(ctx context.Context, name string) ([]batch.Result, error) {
	if err := domtag.ValidateName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	live, err := s.tags.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find tag %q: %w", name, err)
	}
	if len(live) == 0 {
		return nil, fmt.Errorf("tag %q: %w", name, domain.ErrTagNotFound)
	}

	var results []batch.Result
	for _, t := range live {
		if err := s.tags.Delete(ctx, t.ID()); err != nil {
			return s.interrupt(OpDeleteTag, name, results, fmt.Errorf("delete tag %s: %w", t.ID(), err))
		}
		rs, err := s.Cascade(ctx, t.ID())
		results = append(results, rs...)
		if err != nil {
			return s.interrupt(OpDeleteTag, name, results, err)
		}
	}
	return s.finish(OpDeleteTag, name, results)
}

// Cascade removes tagID from every article that may reference it: the reverse index
// united with the articles the search index reports.
func (s *Service) Cascade(ctx context.Context, tagID string) ([]batch.Result, error) {
	ids, err := s.referencingArticles(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("cascade tag %s: %w", tagID, err)
	}
	results := make([]batch.Result, len(ids))
	for i, id := range ids {
		results[i] = s.detach(ctx, tagID, id, true)
	}
	if len(batch.Failed(results)) > 0 {
		return results, nil
	}
	if err := s.refs.Drop(ctx, tagID); err != nil {
		s.logger.Warn("reverse index not dropped", zap.String("tag_id", tagID), zap.Error(err))
	}
	return results, nil
}

func (s *Service) referencingArticles(ctx context.Context, tagID string) ([]int64, error) {
	ids, err := s.refs.Members(ctx, tagID)
	if err != nil {
		return nil, fmt.Errorf("reverse index: %w", err)
	}
	cursor := ""
	for {
		page, next, err := s.articles.IDsByTag(ctx, tagID, cursor, cascadePageSize)
		if err != nil {
			return nil, fmt.Errorf("articles by tag: %w", err)
		}
		ids = append(ids, page...)
		if next == "" {
			break
		}
		cursor = next
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// BulkLoadArticles validates enrichment drafts and writes them as articles with empty
// tag sets, replacing existing articles with the same id. Invalid drafts and repeated
// ids report an error result and are not written.
func (s *Service) BulkLoadArticles(ctx context.Context, drafts []domart.Draft) ([]batch.Result, error) {
	results := make([]batch.Result, len(drafts))
	valid := make([]domart.Article, 0, len(drafts))
	pos := make([]int, 0, len(drafts))
	seen := make(map[int64]struct{}, len(drafts))

	for i := range drafts {
		key := domart.FormatID(drafts[i].ID)
		a, err := drafts[i].Build()
		if err != nil {
			results[i] = batch.NewError(key, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err))
			continue
		}
		if _, dup := seen[a.ID()]; dup {
			results[i] = batch.NewError(key,
				fmt.Errorf("duplicate article ID %d in batch: %w", a.ID(), domain.ErrInvalidArgument))
			continue
		}
		seen[a.ID()] = struct{}{}
		valid = append(valid, a)
		pos = append(pos, i)
	}

	for start := 0; start < len(valid); start += s.maxBatchSize {
		end := min(start+s.maxBatchSize, len(valid))
		chunk := s.articles.BulkSave(ctx, valid[start:end])
		for j := range end - start {
			if j < len(chunk) {
				results[pos[start+j]] = chunk[j]
				continue
			}
			results[pos[start+j]] = batch.NewError(valid[start+j].Key(), errors.New("no write acknowledgement"))
		}
	}

	counts := batch.Count(results)
	s.logger.Info("articles loaded",
		zap.Int("total", len(results)),
		zap.Int("applied", counts[batch.StatusApplied]),
		zap.Int("failed", counts[batch.StatusError]),
	)
	return s.finish(OpBulkLoad, "", results)
}

// UpdateTagDescription replaces the description of the named tag. Names are immutable.
func (s *Service) UpdateTagDescription(ctx context.Context, name, description string) (domtag.Tag, error) {
	t, err := s.Resolve(ctx, name)
	if err != nil {
		return domtag.Tag{}, err
	}
	if err := s.tags.UpdateDescription(ctx, t.ID(), description); err != nil {
		return domtag.Tag{}, fmt.Errorf("update tag %q: %w", name, err)
	}
	return t.WithDescription(description), nil
}

func (s *Service) finish(op, name string, results []batch.Result) ([]batch.Result, error) {
	s.recorder.RecordMutation(op, results)
	err := domain.CheckResults(results)
	if err != nil {
		failed := batch.Failed(results)
		s.logger.Warn("mutation partially applied",
			zap.String("op", op),
			zap.String("tag", name),
			zap.Int("failed", len(failed)),
			zap.Int("total", len(results)),
			zap.Error(failed[0].Err()),
		)
	}
	return results, err
}

// interrupt ends a mutation that stopped before visiting every item. Results gathered
// so far still reach the caller, carried by a PartialFailureError.
func (s *Service) interrupt(op, name string, results []batch.Result, cause error) ([]batch.Result, error) {
	if len(results) > 0 {
		s.recorder.RecordMutation(op, results)
		s.logger.Warn("mutation interrupted",
			zap.String("op", op),
			zap.String("tag", name),
			zap.Int("done", len(results)),
			zap.Error(cause),
		)
	}
	return results, domain.Interrupted(results, cause)
}

func itemFailure(id string, err error) batch.Result {
	if errors.Is(err, domain.ErrNotFound) {
		return batch.NewNotFound(id, err)
	}
	return batch.NewError(id, err)
}

type nopRecorder struct{}

func (nopRecorder) RecordMutation(string, []batch.Result) {}

package questions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/generator"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/metadata"
	"github.com/culturequiz/backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// usageTimeout bounds a detached usage-counter increment.
const usageTimeout = 5 * time.Second

type Synthesizer interface {
	Synthesize(ctx context.Context, title string, contentType models.ContentType, difficulty models.Difficulty) (*generator.Synthesis, error)
}

type Enricher interface {
	Enrich(ctx context.Context, title string, contentType models.ContentType, genre *string) metadata.Metadata
}

type Service struct {
	repo     Repository
	synth    Synthesizer
	enricher Enricher
	log      *logger.Logger

	flight  singleflight.Group
	pending sync.WaitGroup

	now func() time.Time
}

func NewService(repo Repository, synth Synthesizer, enricher Enricher, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		synth:    synth,
		enricher: enricher,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validateRequest(req models.GenerateRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.New(apperr.ErrInvalidArgument, "title is required")
	}
	if !req.ContentType.Valid() {
		return apperr.Newf(apperr.ErrInvalidArgument, "contentType must be one of film, book, music (got %q)", req.ContentType)
	}
	if !req.Difficulty.Valid() {
		return apperr.Newf(apperr.ErrInvalidArgument, "invalid difficulty %q", req.Difficulty)
	}
	return nil
}

// GenerateQuestion serves a question from the cache or generates, stores and
// returns a new one. Concurrent misses for the same key share one generation.
func (s *Service) GenerateQuestion(ctx context.Context, req models.GenerateRequest) (*models.GenerateResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	key := req.Key()
	req.Title = key.Title

	cached, err := s.repo.Get(ctx, key)
	if err == nil {
		s.trackUsage(cached.ID)
		return models.NewGenerateResult(cached, true), nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	// The shared generation outlives any single caller so that its result
	// still lands in the cache when the first requester goes away.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key.String(), func() (any, error) {
		return s.generate(flightCtx, req)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := res.Val.(*generated)
		return models.NewGenerateResult(out.question, !out.inserted), nil
	}
}

type generated struct {
	question *models.CachedQuestion
	inserted bool
}

func (s *Service) generate(ctx context.Context, req models.GenerateRequest) (*generated, error) {
	var (
		md    metadata.Metadata
		synth *generator.Synthesis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		md = s.enricher.Enrich(gctx, req.Title, req.ContentType, req.Genre)
		return nil
	})
	g.Go(func() error {
		var err error
		synth, err = s.synth.Synthesize(gctx, req.Title, req.ContentType, req.Difficulty)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error("question generation failed", "title", req.Title, "content_type", req.ContentType,
			"difficulty", req.Difficulty, "error", err)
		return nil, err
	}

	if !synth.Learning.IsComplete() {
		s.log.Warn("model learning content incomplete, filling from fallback",
			"title", req.Title, "content_type", req.ContentType, "difficulty", req.Difficulty)
	}
	learning := generator.CompleteLearning(synth.Learning,
		generator.FallbackLearning(req.Title, req.ContentType, md.CreatorName()))

	q := &models.CachedQuestion{
		ID:          uuid.NewString(),
		Title:       req.Title,
		ContentType: req.ContentType,
		Difficulty:  req.Difficulty,
		Genre:       req.Genre,
		Question:    synth.Question,
		Options:     synth.Options,
		Answer:      synth.Answer,
		Creator:     md.Creator,
		Year:        md.Year,
		ImageURL:    md.ImageURL,
		Learning:    learning,
		CreatedAt:   s.now(),
		UsageCount:  1,
	}
	if plot := strings.TrimSpace(synth.Plot); plot != "" {
		q.Plot = &plot
	}

	stored, inserted, err := s.repo.Insert(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store generated question: %w", err)
	}
	if !inserted {
		// Another instance stored this key first; its row is the one served.
		s.log.Info("generated question lost insert race, serving existing row",
			"title", req.Title, "content_type", req.ContentType, "difficulty", req.Difficulty)
		s.trackUsage(stored.ID)
	} else {
		s.log.Info("generated question", "id", stored.ID, "title", req.Title,
			"content_type", req.ContentType, "difficulty", req.Difficulty)
	}
	return &generated{question: stored, inserted: inserted}, nil
}

// trackUsage bumps the usage counter in the background. Failures are logged.
func (s *Service) trackUsage(id string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), usageTimeout)
		defer cancel()
		if err := s.repo.IncrementUsage(ctx, id); err != nil {
			s.log.Warn("usage increment failed", "question_id", id, "error", err)
		}
	}()
}

// Wait blocks until every detached usage increment has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ── Bulk pre-generation ─────────────────────────────────

// Pregenerate fills the cache for each item in order, pausing delay between
// items. An item failure is recorded and the run continues. Cancelling ctx
// stops the run between items; the results so far are returned.
func (s *Service) Pregenerate(ctx context.Context, items []models.ContentRef, difficulty models.Difficulty, delay time.Duration) []models.PregenerateResult {
	results := make([]models.PregenerateResult, 0, len(items))

	for i, item := range items {
		if i > 0 && delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return results
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			return results
		}

		res := s.pregenerateOne(ctx, item, difficulty)
		s.log.Info("pregenerate", "index", i+1, "total", len(items), "title", item.Title,
			"content_type", item.Type, "status", res.Status, "error", res.Error)
		results = append(results, res)
	}
	return results
}

func (s *Service) pregenerateOne(ctx context.Context, item models.ContentRef, difficulty models.Difficulty) models.PregenerateResult {
	res := models.PregenerateResult{Title: item.Title, ContentType: item.Type, Difficulty: difficulty}
	req := models.GenerateRequest{Title: item.Title, ContentType: item.Type, Difficulty: difficulty}

	if err := validateRequest(req); err != nil {
		res.Status = models.PregenerateError
		res.Error = err.Error()
		return res
	}

	existing, err := s.repo.Get(ctx, req.Key())
	switch {
	case err == nil:
		res.Status = models.PregenerateCached
		res.QuestionID = existing.ID
		return res
	case !errors.Is(err, apperr.ErrNotFound):
		res.Status = models.PregenerateError
		res.Error = err.Error()
		return res
	}

	req.Title = req.Key().Title
	out, err := s.generate(ctx, req)
	if err != nil {
		res.Status = models.PregenerateError
		res.Error = err.Error()
		return res
	}
	res.QuestionID = out.question.ID
	res.Status = models.PregenerateGenerated
	if !out.inserted {
		res.Status = models.PregenerateCached
	}
	return res
}

// ── Admin ───────────────────────────────────────────────

func (s *Service) List(ctx context.Context, filter models.CacheFilter) ([]models.CachedQuestion, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Delete(ctx context.Context, filter models.CacheFilter) (int64, error) {
	n, err := s.repo.Delete(ctx, filter)
	if err != nil {
		return 0, err
	}
	s.log.Info("purged cached questions", "count", n)
	return n, nil
}

func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.log.Warn("purged entire question cache", "count", n)
	return n, nil
}

func (s *Service) Stats(ctx context.Context) (*models.CacheStats, error) {
	return s.repo.Stats(ctx)
}

package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
	"github.com/google/uuid"
)

// FreePlayScope is the scope key free play uses when the client sends none.
const FreePlayScope = "all"

// policy is what a mode does at start and completion.
type policy struct {
	replayable     bool
	tracksProgress bool
	daily          bool
}

var policies = map[models.Mode]policy{
	models.ModeFreePlay: {replayable: true},
	models.ModeDaily:    {daily: true},
	models.ModeEra:      {replayable: true, tracksProgress: true},
	models.ModeGenre:    {replayable: true, tracksProgress: true},
}

// DailyChallenges is the daily rotation as sessions sees it.
type DailyChallenges interface {
	EnsureChallenge(ctx context.Context, date string) (*models.DailyChallenge, error)
	Get(ctx context.Context, date string) (*models.DailyChallenge, error)
}

// Scopes validates themed scope keys.
type Scopes interface {
	HasEra(id string) bool
	HasGenre(id string) bool
}

type Service struct {
	repo   Repository
	daily  DailyChallenges
	scopes Scopes
	log    *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, daily DailyChallenges, scopes Scopes, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		daily:  daily,
		scopes: scopes,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) normalizeScope(mode models.Mode, scopeKey string) (string, error) {
	scopeKey = strings.TrimSpace(scopeKey)

	switch mode {
	case models.ModeFreePlay:
		if scopeKey == "" {
			return FreePlayScope, nil
		}
		return scopeKey, nil
	case models.ModeDaily:
		if scopeKey == "" {
			return s.now().Format(models.DateLayout), nil
		}
		date, err := time.Parse(models.DateLayout, scopeKey)
		if err != nil {
			return "", apperr.Newf(apperr.ErrInvalidArgument, "daily scope must be a YYYY-MM-DD date (got %q)", scopeKey)
		}
		if date.After(truncateDay(s.now())) {
			return "", apperr.Newf(apperr.ErrInvalidArgument, "daily challenge %s is not available yet", scopeKey)
		}
		return scopeKey, nil
	case models.ModeEra:
		if !s.scopes.HasEra(scopeKey) {
			return "", apperr.Newf(apperr.ErrInvalidArgument, "unknown era %q", scopeKey)
		}
		return scopeKey, nil
	case models.ModeGenre:
		if !s.scopes.HasGenre(scopeKey) {
			return "", apperr.Newf(apperr.ErrInvalidArgument, "unknown genre %q", scopeKey)
		}
		return scopeKey, nil
	default:
		return "", apperr.Newf(apperr.ErrInvalidArgument, "unknown mode %q", mode)
	}
}

// Start resumes the caller's open attempt for the scope or creates one.
// A daily scope that was already completed cannot be started again.
func (s *Service) Start(ctx context.Context, userID string, mode models.Mode, scopeKey string) (*models.StartSessionResponse, error) {
	pol, ok := policies[mode]
	if !ok {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "unknown mode %q", mode)
	}
	scopeKey, err := s.normalizeScope(mode, scopeKey)
	if err != nil {
		return nil, err
	}

	resp := &models.StartSessionResponse{}
	if pol.daily {
		challenge, err := s.dailyChallenge(ctx, scopeKey)
		if err != nil {
			return nil, err
		}
		resp.Challenge = challenge
	}

	open, err := s.repo.FindOpenAttempt(ctx, userID, mode, scopeKey)
	if err == nil {
		resp.Attempt = open
		return resp, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	if !pol.replayable {
		done, err := s.repo.HasCompletedAttempt(ctx, userID, mode, scopeKey)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, apperr.Newf(apperr.ErrAlreadyCompleted, "%s %s already played", mode, scopeKey)
		}
	}

	attempt := &models.Attempt{
		ID:              uuid.NewString(),
		UserID:          userID,
		Mode:            mode,
		ScopeKey:        scopeKey,
		QuestionResults: []models.QuestionResult{},
		Status:          models.AttemptInProgress,
		StartedAt:       s.now(),
	}
	stored, inserted, err := s.repo.InsertAttempt(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("start attempt: %w", err)
	}
	if inserted {
		s.log.Info("attempt started", "attempt_id", stored.ID, "user_id", userID, "mode", mode, "scope", scopeKey)
	}
	resp.Attempt = stored
	return resp, nil
}

// dailyChallenge creates today's challenge on demand. Past dates are only
// playable if their challenge was already generated.
func (s *Service) dailyChallenge(ctx context.Context, date string) (*models.DailyChallenge, error) {
	if date == s.now().Format(models.DateLayout) {
		c, err := s.daily.EnsureChallenge(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("ensure daily challenge: %w", err)
		}
		return c, nil
	}
	return s.daily.Get(ctx, date)
}

// GetAttempt returns the attempt if it belongs to userID.
func (s *Service) GetAttempt(ctx context.Context, userID, attemptID string) (*models.Attempt, error) {
	a, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	// A foreign attempt is indistinguishable from a missing one.
	if a.UserID != userID {
		return nil, apperr.Newf(apperr.ErrNotFound, "attempt %s", attemptID)
	}
	return a, nil
}

// SubmitAnswer records the answer for one question index. Resubmitting an
// index that is already recorded returns the attempt unchanged.
func (s *Service) SubmitAnswer(ctx context.Context, userID, attemptID string, req models.SubmitAnswerRequest) (*models.Attempt, error) {
	if req.Index < 0 {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "index must be >= 0 (got %d)", req.Index)
	}
	if req.TimeSpent != nil && *req.TimeSpent < 0 {
		return nil, apperr.New(apperr.ErrInvalidArgument, "timeSpent must be >= 0")
	}

	// One retry covers a concurrent submission for a different index.
	for try := 0; try < 2; try++ {
		a, err := s.GetAttempt(ctx, userID, attemptID)
		if err != nil {
			return nil, err
		}
		if a.IsCompleted() {
			return nil, apperr.Newf(apperr.ErrConflict, "attempt %s is already completed", attemptID)
		}
		if a.Mode == models.ModeDaily && req.Index >= models.DailyQuestionCount {
			return nil, apperr.Newf(apperr.ErrInvalidArgument, "daily index must be < %d (got %d)", models.DailyQuestionCount, req.Index)
		}
		if a.HasResult(req.Index) {
			return a, nil
		}

		expected := len(a.QuestionResults)
		applyAnswer(a, models.QuestionResult{
			Index:      req.Index,
			Correct:    req.Correct,
			TimeSpent:  req.TimeSpent,
			AnsweredAt: s.now(),
		})

		saved, err := s.repo.SaveResults(ctx, a, expected)
		if err != nil {
			return nil, err
		}
		if saved {
			return a, nil
		}
	}
	return nil, apperr.Newf(apperr.ErrConflict, "attempt %s was modified concurrently", attemptID)
}

// Complete closes the attempt. Only the call that performs the transition
// folds it into progress, daily stats and the day streak, all in the same
// commit; repeats return the completed record without counting it again.
func (s *Service) Complete(ctx context.Context, userID, attemptID string) (*models.CompleteSessionResponse, error) {
	a, err := s.GetAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	pol := policies[a.Mode]

	if !a.IsCompleted() {
		at := s.now()
		c := Completion{Attempt: a, At: at, UpdateDayStreak: pol.daily}
		if pol.daily {
			c.Daily = &DailyResult{
				Date:    a.ScopeKey,
				Score:   a.Score,
				Perfect: a.CorrectAnswers == models.DailyQuestionCount,
			}
		}
		if pol.tracksProgress {
			c.Progress = &models.ProgressDelta{
				Score:             a.Score,
				QuestionsAnswered: len(a.QuestionResults),
				CorrectAnswers:    a.CorrectAnswers,
			}
		}

		res, err := s.repo.Complete(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("complete attempt: %w", err)
		}
		if res.Won {
			a.Status = models.AttemptCompleted
			a.CompletedAt = &at
			s.log.Info("attempt completed", "attempt_id", a.ID, "user_id", userID, "mode", a.Mode,
				"scope", a.ScopeKey, "score", a.Score, "max_streak", a.MaxStreak)
			return &models.CompleteSessionResponse{
				Attempt:   a,
				Progress:  withMastery(res.Progress),
				DayStreak: res.DayStreak,
			}, nil
		}
	}

	return s.completedResponse(ctx, userID, attemptID, pol)
}

func (s *Service) completedResponse(ctx context.Context, userID, attemptID string, pol policy) (*models.CompleteSessionResponse, error) {
	a, err := s.GetAttempt(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	resp := &models.CompleteSessionResponse{Attempt: a}

	if pol.tracksProgress {
		p, err := s.repo.GetProgressRecord(ctx, userID, a.Mode, a.ScopeKey)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		resp.Progress = withMastery(p)
	}
	if pol.daily {
		ds, err := s.GetDayStreak(ctx, userID)
		if err != nil {
			return nil, err
		}
		resp.DayStreak = ds
	}
	return resp, nil
}

// GetProgress lists the caller's progress records for a mode, mastery derived.
func (s *Service) GetProgress(ctx context.Context, userID string, mode models.Mode) ([]models.ProgressRecord, error) {
	if !mode.Valid() {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "unknown mode %q", mode)
	}
	records, err := s.repo.ListProgress(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	for i := range records {
		withMastery(&records[i])
	}
	return records, nil
}

// GetDayStreak reports a lapsed streak as 0 without rewriting it.
func (s *Service) GetDayStreak(ctx context.Context, userID string) (*models.DayStreak, error) {
	ds, err := s.repo.GetDayStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ds.LastPlayedDate != nil {
		yesterday := truncateDay(s.now()).AddDate(0, 0, -1)
		if truncateDay(ds.LastPlayedDate.UTC()).Before(yesterday) {
			ds.CurrentStreak = 0
		}
	}
	return ds, nil
}

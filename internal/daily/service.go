package daily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
	"github.com/google/uuid"
)

// numberRetries bounds how often a lost challenge-number race is retried.
const numberRetries = 3

type Service struct {
	repo       Repository
	pools      models.ContentPools
	difficulty models.Difficulty
	log        *logger.Logger
	now        func() time.Time
}

func NewService(repo Repository, pools models.ContentPools, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		pools:      pools,
		difficulty: models.DifficultyMedium,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EnsureChallenge returns the challenge for date, creating it if needed.
// Concurrent callers converge on one row per date.
func (s *Service) EnsureChallenge(ctx context.Context, date string) (*models.DailyChallenge, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "challenge date must be YYYY-MM-DD (got %q)", date)
	}

	existing, err := s.repo.Get(ctx, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	questions, err := SelectQuestions(s.pools, Seed(day))
	if err != nil {
		return nil, err
	}

	for try := 0; try < numberRetries; try++ {
		last, err := s.repo.MaxNumber(ctx)
		if err != nil {
			return nil, err
		}

		c := &models.DailyChallenge{
			ID:              uuid.NewString(),
			ChallengeDate:   date,
			ChallengeNumber: last + 1,
			Questions:       questions,
			Difficulty:      s.difficulty,
			CreatedAt:       s.now(),
		}
		stored, inserted, err := s.repo.Insert(ctx, c)
		if errors.Is(err, errNumberTaken) {
			s.log.Warn("challenge number taken, retrying", "date", date, "number", c.ChallengeNumber)
			continue
		}
		if err != nil {
			return nil, err
		}
		if inserted {
			s.log.Info("daily challenge created", "date", date, "number", stored.ChallengeNumber)
		}
		return stored, nil
	}
	return nil, fmt.Errorf("create daily challenge for %s: challenge number contended %d times", date, numberRetries)
}

// EnsureTomorrow is the operation the external scheduler triggers once a day.
func (s *Service) EnsureTomorrow(ctx context.Context) (*models.DailyChallenge, error) {
	return s.EnsureChallenge(ctx, s.today().AddDate(0, 0, 1).Format(models.DateLayout))
}

// EnsureToday covers a day on which the scheduled run did not fire.
func (s *Service) EnsureToday(ctx context.Context) (*models.DailyChallenge, error) {
	return s.EnsureChallenge(ctx, s.today().Format(models.DateLayout))
}

// Get returns an existing challenge. Dates after today are not revealed.
func (s *Service) Get(ctx context.Context, date string) (*models.DailyChallenge, error) {
	day, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, apperr.Newf(apperr.ErrInvalidArgument, "challenge date must be YYYY-MM-DD (got %q)", date)
	}
	if day.After(s.today()) {
		return nil, apperr.Newf(apperr.ErrNotFound, "no daily challenge for %s", date)
	}
	return s.repo.Get(ctx, date)
}

package daily

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/models"
	"github.com/lib/pq"
)

// errNumberTaken means another writer claimed the challenge number first.
var errNumberTaken = errors.New("challenge number taken")

type Repository interface {
	// Get returns apperr.ErrNotFound when no challenge exists for date.
	Get(ctx context.Context, date string) (*models.DailyChallenge, error)
	// MaxNumber returns the highest challenge number, or 0 when none exist.
	MaxNumber(ctx context.Context) (int, error)
	// Insert stores c unless a challenge already exists for its date, in
	// which case the existing row is returned with inserted=false.
	Insert(ctx context.Context, c *models.DailyChallenge) (stored *models.DailyChallenge, inserted bool, err error)
}

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const challengeCols = `id, challenge_date, challenge_number, questions, difficulty,
	total_attempts, average_score, perfect_scores, created_at`

func scanChallenge(row interface{ Scan(...any) error }) (*models.DailyChallenge, error) {
	var (
		c         models.DailyChallenge
		date      time.Time
		questions []byte
	)
	if err := row.Scan(&c.ID, &date, &c.ChallengeNumber, &questions, &c.Difficulty,
		&c.TotalAttempts, &c.AverageScore, &c.PerfectScores, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ChallengeDate = date.Format(models.DateLayout)
	if err := json.Unmarshal(questions, &c.Questions); err != nil {
		return nil, fmt.Errorf("decode challenge questions: %w", err)
	}
	return &c, nil
}

func (s *Store) Get(ctx context.Context, date string) (*models.DailyChallenge, error) {
	c, err := scanChallenge(s.db.QueryRowContext(ctx,
		`SELECT `+challengeCols+` FROM daily_challenges WHERE challenge_date = $1`, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrNotFound, "no daily challenge for %s", date)
	}
	if err != nil {
		return nil, fmt.Errorf("get daily challenge: %w", err)
	}
	return c, nil
}

func (s *Store) MaxNumber(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(challenge_number), 0) FROM daily_challenges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("max challenge number: %w", err)
	}
	return n, nil
}

func (s *Store) Insert(ctx context.Context, c *models.DailyChallenge) (*models.DailyChallenge, bool, error) {
	questions, err := json.Marshal(c.Questions)
	if err != nil {
		return nil, false, fmt.Errorf("encode challenge questions: %w", err)
	}

	stored, err := scanChallenge(s.db.QueryRowContext(ctx,
		`INSERT INTO daily_challenges (id, challenge_date, challenge_number, questions, difficulty, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (challenge_date) DO NOTHING
		 RETURNING `+challengeCols,
		c.ID, c.ChallengeDate, c.ChallengeNumber, questions, c.Difficulty, c.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		// The date conflict is absorbed above, so a unique violation here is the number.
		return nil, false, errNumberTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert daily challenge: %w", err)
	}

	existing, err := s.Get(ctx, c.ChallengeDate)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FoldResult folds one completed attempt into the challenge stats. The mean
// is updated incrementally in one statement, never recounted. Callers pass
// their transaction so the fold commits with the attempt's completion.
func FoldResult(ctx context.Context, ex Execer, date string, score int, perfect bool) error {
	res, err := ex.ExecContext(ctx,
		`UPDATE daily_challenges SET
			average_score  = (average_score * total_attempts + $2) / (total_attempts + 1),
			total_attempts = total_attempts + 1,
			perfect_scores = perfect_scores + CASE WHEN $3::boolean THEN 1 ELSE 0 END
		 WHERE challenge_date = $1`,
		date, score, perfect,
	)
	if err != nil {
		return fmt.Errorf("record daily result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record daily result: %w", err)
	}
	if n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "no daily challenge for %s", date)
	}
	return nil
}

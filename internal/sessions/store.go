package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/daily"
	"github.com/culturequiz/backend/internal/models"
)

// Completion describes the in_progress → completed transition and the folds
// that ride along with it. Folds are applied only by the caller that wins
// the transition.
type Completion struct {
	Attempt *models.Attempt
	At      time.Time
	// Progress is folded into the scope's ProgressRecord when non-nil.
	Progress *models.ProgressDelta
	// UpdateDayStreak advances the user's day streak to At's date.
	UpdateDayStreak bool
	// Daily is folded into the challenge stats when non-nil.
	Daily *DailyResult
}

// DailyResult is one finished daily attempt as the challenge stats see it.
type DailyResult struct {
	Date    string
	Score   int
	Perfect bool
}

type CompletionResult struct {
	Won       bool
	Progress  *models.ProgressRecord
	DayStreak *models.DayStreak
}

type Repository interface {
	GetAttempt(ctx context.Context, id string) (*models.Attempt, error)
	FindOpenAttempt(ctx context.Context, userID string, mode models.Mode, scopeKey string) (*models.Attempt, error)
	HasCompletedAttempt(ctx context.Context, userID string, mode models.Mode, scopeKey string) (bool, error)
	// InsertAttempt creates an attempt unless one is already open for the
	// scope, in which case the open one is returned with inserted=false.
	InsertAttempt(ctx context.Context, a *models.Attempt) (stored *models.Attempt, inserted bool, err error)
	// SaveResults persists a's results and counters only if the attempt is
	// still open and held expectedCount results. false means the write lost.
	SaveResults(ctx context.Context, a *models.Attempt, expectedCount int) (bool, error)
	Complete(ctx context.Context, c Completion) (*CompletionResult, error)
	GetProgressRecord(ctx context.Context, userID string, mode models.Mode, scopeKey string) (*models.ProgressRecord, error)
	ListProgress(ctx context.Context, userID string, mode models.Mode) ([]models.ProgressRecord, error)
	GetDayStreak(ctx context.Context, userID string) (*models.DayStreak, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const attemptCols = `id, user_id, mode, scope_key, score, current_streak, max_streak,
	correct_answers, question_results, status, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	var (
		a       models.Attempt
		results []byte
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Mode, &a.ScopeKey, &a.Score, &a.CurrentStreak, &a.MaxStreak,
		&a.CorrectAnswers, &results, &a.Status, &a.StartedAt, &a.CompletedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &a.QuestionResults); err != nil {
		return nil, fmt.Errorf("decode question results: %w", err)
	}
	if a.QuestionResults == nil {
		a.QuestionResults = []models.QuestionResult{}
	}
	return &a, nil
}

// ── Attempts ────────────────────────────────────────────

func (s *Store) GetAttempt(ctx context.Context, id string) (*models.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrNotFound, "attempt %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (s *Store) FindOpenAttempt(ctx context.Context, userID string, mode models.Mode, scopeKey string) (*models.Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx,
		`SELECT `+attemptCols+` FROM attempts
		 WHERE user_id = $1 AND mode = $2 AND scope_key = $3 AND status = $4`,
		userID, mode, scopeKey, models.AttemptInProgress))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "no open attempt")
	}
	if err != nil {
		return nil, fmt.Errorf("find open attempt: %w", err)
	}
	return a, nil
}

func (s *Store) HasCompletedAttempt(ctx context.Context, userID string, mode models.Mode, scopeKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM attempts
		 WHERE user_id = $1 AND mode = $2 AND scope_key = $3 AND status = $4)`,
		userID, mode, scopeKey, models.AttemptCompleted,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completed attempt: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertAttempt(ctx context.Context, a *models.Attempt) (*models.Attempt, bool, error) {
	results, err := json.Marshal(a.QuestionResults)
	if err != nil {
		return nil, false, fmt.Errorf("encode question results: %w", err)
	}

	stored, err := scanAttempt(s.db.QueryRowContext(ctx,
		`INSERT INTO attempts (id, user_id, mode, scope_key, score, current_streak, max_streak,
		                       correct_answers, question_results, status, started_at)
		 VALUES ($1, $2, $3, $4, 0, 0, 0, 0, $5, $6, $7)
		 ON CONFLICT (user_id, mode, scope_key) WHERE status = 'in_progress' DO NOTHING
		 RETURNING `+attemptCols,
		a.ID, a.UserID, a.Mode, a.ScopeKey, results, models.AttemptInProgress, a.StartedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert attempt: %w", err)
	}

	existing, err := s.FindOpenAttempt(ctx, a.UserID, a.Mode, a.ScopeKey)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) SaveResults(ctx context.Context, a *models.Attempt, expectedCount int) (bool, error) {
	results, err := json.Marshal(a.QuestionResults)
	if err != nil {
		return false, fmt.Errorf("encode question results: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE attempts
		 SET question_results = $2, score = $3, current_streak = $4, max_streak = $5, correct_answers = $6
		 WHERE id = $1 AND status = 'in_progress' AND jsonb_array_length(question_results) = $7`,
		a.ID, results, a.Score, a.CurrentStreak, a.MaxStreak, a.CorrectAnswers, expectedCount,
	)
	if err != nil {
		return false, fmt.Errorf("save question results: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("save question results: %w", err)
	}
	return n == 1, nil
}

// Complete runs the status transition and its folds in one transaction.
func (s *Store) Complete(ctx context.Context, c Completion) (*CompletionResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE attempts SET status = $2, completed_at = $3
		 WHERE id = $1 AND status = 'in_progress'`,
		c.Attempt.ID, models.AttemptCompleted, c.At,
	)
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &CompletionResult{Won: false}, nil
	}

	out := &CompletionResult{Won: true}
	a := c.Attempt

	if c.Progress != nil {
		var p models.ProgressRecord
		err := tx.QueryRowContext(ctx,
			`INSERT INTO progress_records (user_id, mode, scope_key, high_score, games_played,
			                               questions_answered, correct_answers, updated_at)
			 VALUES ($1, $2, $3, $4, 1, $5, $6, $7)
			 ON CONFLICT (user_id, mode, scope_key) DO UPDATE SET
			    high_score = GREATEST(progress_records.high_score, EXCLUDED.high_score),
			    games_played = progress_records.games_played + 1,
			    questions_answered = progress_records.questions_answered + EXCLUDED.questions_answered,
			    correct_answers = progress_records.correct_answers + EXCLUDED.correct_answers,
			    updated_at = EXCLUDED.updated_at
			 RETURNING user_id, mode, scope_key, high_score, games_played, questions_answered, correct_answers, updated_at`,
			a.UserID, a.Mode, a.ScopeKey, c.Progress.Score, c.Progress.QuestionsAnswered, c.Progress.CorrectAnswers, c.At,
		).Scan(&p.UserID, &p.Mode, &p.ScopeKey, &p.HighScore, &p.GamesPlayed,
			&p.QuestionsAnswered, &p.CorrectAnswers, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("fold progress: %w", err)
		}
		out.Progress = &p
	}

	if c.UpdateDayStreak {
		prev := models.DayStreak{UserID: a.UserID}
		err := tx.QueryRowContext(ctx,
			`SELECT current_streak, longest_streak, last_played_date
			 FROM user_day_streaks WHERE user_id = $1 FOR UPDATE`,
			a.UserID,
		).Scan(&prev.CurrentStreak, &prev.LongestStreak, &prev.LastPlayedDate)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get day streak: %w", err)
		}

		next := NextDayStreak(prev, c.At)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_day_streaks (user_id, current_streak, longest_streak, last_played_date, updated_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (user_id) DO UPDATE SET
			    current_streak = EXCLUDED.current_streak,
			    longest_streak = EXCLUDED.longest_streak,
			    last_played_date = EXCLUDED.last_played_date,
			    updated_at = NOW()`,
			a.UserID, next.CurrentStreak, next.LongestStreak, next.LastPlayedDate,
		)
		if err != nil {
			return nil, fmt.Errorf("update day streak: %w", err)
		}
		out.DayStreak = &next
	}

	if c.Daily != nil {
		if err := daily.FoldResult(ctx, tx, c.Daily.Date, c.Daily.Score, c.Daily.Perfect); err != nil {
			return nil, fmt.Errorf("fold daily result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return out, nil
}

// ── Progress ────────────────────────────────────────────

const progressCols = `user_id, mode, scope_key, high_score, games_played, questions_answered, correct_answers, updated_at`

func (s *Store) GetProgressRecord(ctx context.Context, userID string, mode models.Mode, scopeKey string) (*models.ProgressRecord, error) {
	var p models.ProgressRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT `+progressCols+` FROM progress_records WHERE user_id = $1 AND mode = $2 AND scope_key = $3`,
		userID, mode, scopeKey,
	).Scan(&p.UserID, &p.Mode, &p.ScopeKey, &p.HighScore, &p.GamesPlayed,
		&p.QuestionsAnswered, &p.CorrectAnswers, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.ErrNotFound, "no progress for scope")
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProgress(ctx context.Context, userID string, mode models.Mode) ([]models.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+progressCols+` FROM progress_records WHERE user_id = $1 AND mode = $2 ORDER BY scope_key`,
		userID, mode,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []models.ProgressRecord
	for rows.Next() {
		var p models.ProgressRecord
		if err := rows.Scan(&p.UserID, &p.Mode, &p.ScopeKey, &p.HighScore, &p.GamesPlayed,
			&p.QuestionsAnswered, &p.CorrectAnswers, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ── Day streak ──────────────────────────────────────────

// GetDayStreak returns a zero streak for users who never finished a daily.
func (s *Store) GetDayStreak(ctx context.Context, userID string) (*models.DayStreak, error) {
	ds := models.DayStreak{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT current_streak, longest_streak, last_played_date FROM user_day_streaks WHERE user_id = $1`,
		userID,
	).Scan(&ds.CurrentStreak, &ds.LongestStreak, &ds.LastPlayedDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get day streak: %w", err)
	}
	return &ds, nil
}

package questions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/models"
	"github.com/lib/pq"
)

// Repository is the question cache. Insert is atomic insert-if-absent on the
// (title, content type, difficulty) key: when a row already exists it returns
// that row and inserted=false.
type Repository interface {
	Get(ctx context.Context, key models.CacheKey) (*models.CachedQuestion, error)
	Insert(ctx context.Context, q *models.CachedQuestion) (stored *models.CachedQuestion, inserted bool, err error)
	IncrementUsage(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CacheFilter) ([]models.CachedQuestion, error)
	Delete(ctx context.Context, filter models.CacheFilter) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*models.CacheStats, error)
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const questionCols = `id, title, content_type, difficulty, genre, question, options, answer,
	plot, creator, year, image_url, learning, usage_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*models.CachedQuestion, error) {
	var (
		q        models.CachedQuestion
		learning []byte
	)
	if err := row.Scan(&q.ID, &q.Title, &q.ContentType, &q.Difficulty, &q.Genre,
		&q.Question, pq.Array(&q.Options), &q.Answer,
		&q.Plot, &q.Creator, &q.Year, &q.ImageURL, &learning, &q.UsageCount, &q.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(learning, &q.Learning); err != nil {
		return nil, fmt.Errorf("decode learning: %w", err)
	}
	return &q, nil
}

func (s *Store) Get(ctx context.Context, key models.CacheKey) (*models.CachedQuestion, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM cached_questions
		 WHERE title = $1 AND content_type = $2 AND difficulty = $3`,
		key.Title, key.ContentType, key.Difficulty,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Newf(apperr.ErrNotFound, "no cached question for %s", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get cached question: %w", err)
	}
	return q, nil
}

func (s *Store) Insert(ctx context.Context, q *models.CachedQuestion) (*models.CachedQuestion, bool, error) {
	learning, err := json.Marshal(q.Learning)
	if err != nil {
		return nil, false, fmt.Errorf("encode learning: %w", err)
	}

	stored, err := scanQuestion(s.db.QueryRowContext(ctx,
		`INSERT INTO cached_questions (id, title, content_type, difficulty, genre, question, options, answer,
		                               plot, creator, year, image_url, learning, usage_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (title, content_type, difficulty) DO NOTHING
		 RETURNING `+questionCols,
		q.ID, q.Title, q.ContentType, q.Difficulty, q.Genre, q.Question, pq.Array(q.Options), q.Answer,
		q.Plot, q.Creator, q.Year, q.ImageURL, learning, q.UsageCount, q.CreatedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert cached question: %w", err)
	}

	// Another writer got there first; converge on its row.
	existing, err := s.Get(ctx, q.Key())
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Store) IncrementUsage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cached_questions SET usage_count = usage_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "cached question %s", id)
	}
	return nil
}

// filterClause builds a WHERE clause for the admin filter. Placeholders start at $1.
func filterClause(f models.CacheFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Title != nil {
		args = append(args, *f.Title)
		conds = append(conds, fmt.Sprintf("title = $%d", len(args)))
	}
	if f.ContentType != nil {
		args = append(args, *f.ContentType)
		conds = append(conds, fmt.Sprintf("content_type = $%d", len(args)))
	}
	if f.Difficulty != nil {
		args = append(args, *f.Difficulty)
		conds = append(conds, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f models.CacheFilter) ([]models.CachedQuestion, error) {
	where, args := filterClause(f)
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM cached_questions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			questionCols, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list cached questions: %w", err)
	}
	defer rows.Close()

	var out []models.CachedQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cached question: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, f models.CacheFilter) (int64, error) {
	where, args := filterClause(f)
	if where == "" {
		return 0, apperr.New(apperr.ErrInvalidArgument, "delete requires at least one filter")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM cached_questions`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete cached questions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cached_questions`)
	if err != nil {
		return 0, fmt.Errorf("purge cached questions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Stats(ctx context.Context) (*models.CacheStats, error) {
	stats := &models.CacheStats{
		ByContentType: map[models.ContentType]int{},
		ByDifficulty:  map[models.Difficulty]int{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT content_type, difficulty, COUNT(*), COALESCE(SUM(usage_count), 0)
		 FROM cached_questions GROUP BY content_type, difficulty`)
	if err != nil {
		return nil, fmt.Errorf("cache stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ct    models.ContentType
			d     models.Difficulty
			count int
			usage int64
		)
		if err := rows.Scan(&ct, &d, &count, &usage); err != nil {
			return nil, fmt.Errorf("scan cache stats: %w", err)
		}
		stats.Total += count
		stats.TotalUsage += usage
		stats.ByContentType[ct] += count
		stats.ByDifficulty[d] += count
	}
	return stats, rows.Err()
}

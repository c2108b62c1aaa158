package daily

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
	"github.com/gorilla/mux"
)

// memRepo enforces the same unique date and number keys as the table.
type memRepo struct {
	mu        sync.Mutex
	byDate    map[string]*models.DailyChallenge
	numbers   map[int]bool
	stealNext int
	inserts   int
}

func newMemRepo() *memRepo {
	return &memRepo{byDate: map[string]*models.DailyChallenge{}, numbers: map[int]bool{}}
}

func (m *memRepo) Get(ctx context.Context, date string) (*models.DailyChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byDate[date]
	if !ok {
		return nil, apperr.Newf(apperr.ErrNotFound, "no daily challenge for %s", date)
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) MaxNumber(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := 0
	for n := range m.numbers {
		if n > last {
			last = n
		}
	}
	return last, nil
}

func (m *memRepo) Insert(ctx context.Context, c *models.DailyChallenge) (*models.DailyChallenge, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byDate[c.ChallengeDate]; ok {
		cp := *existing
		return &cp, false, nil
	}
	if m.stealNext > 0 {
		// Simulate another date's writer claiming the number first.
		m.stealNext--
		m.numbers[c.ChallengeNumber] = true
		return nil, false, errNumberTaken
	}
	if m.numbers[c.ChallengeNumber] {
		return nil, false, errNumberTaken
	}
	m.inserts++
	cp := *c
	m.byDate[c.ChallengeDate] = &cp
	m.numbers[c.ChallengeNumber] = true
	out := cp
	return &out, true, nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, testPools(), logger.Nop())
	now := time.Date(2026, 3, 10, 21, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc
}

func TestEnsureChallenge_Idempotent(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.EnsureChallenge(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := svc.EnsureChallenge(ctx, "2026-03-10")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	if first.ID != second.ID || first.ChallengeNumber != 1 {
		t.Errorf("expected one challenge numbered 1, got %+v and %+v", first, second)
	}
	if len(first.Questions) != models.DailyQuestionCount {
		t.Errorf("expected %d questions, got %d", models.DailyQuestionCount, len(first.Questions))
	}
	if repo.inserts != 1 {
		t.Errorf("expected one insert, got %d", repo.inserts)
	}
}

func TestEnsureChallenge_NumbersIncrease(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	for i, date := range []string{"2026-03-08", "2026-03-09", "2026-03-10"} {
		c, err := svc.EnsureChallenge(ctx, date)
		if err != nil {
			t.Fatalf("ensure %s: %v", date, err)
		}
		if c.ChallengeNumber != i+1 {
			t.Errorf("%s: expected number %d, got %d", date, i+1, c.ChallengeNumber)
		}
	}
}

func TestEnsureChallenge_SameDateSameLineup(t *testing.T) {
	a, _ := newTestService(newMemRepo()).EnsureChallenge(context.Background(), "2026-03-10")
	b, _ := newTestService(newMemRepo()).EnsureChallenge(context.Background(), "2026-03-10")

	for i := range a.Questions {
		if a.Questions[i] != b.Questions[i] {
			t.Fatalf("expected reproducible lineups, differ at %d: %v vs %v", i, a.Questions[i], b.Questions[i])
		}
	}
}

func TestEnsureChallenge_ConcurrentCallersConverge(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.EnsureChallenge(context.Background(), "2026-03-11")
			if err == nil {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id == "" || id != ids[0] {
			t.Fatalf("expected all callers to get one challenge, got %v", ids)
		}
	}
	if repo.inserts != 1 {
		t.Errorf("expected one insert, got %d", repo.inserts)
	}
}

func TestEnsureChallenge_RetriesTakenNumber(t *testing.T) {
	repo := newMemRepo()
	repo.stealNext = 1
	svc := newTestService(repo)

	c, err := svc.EnsureChallenge(context.Background(), "2026-03-10")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if c.ChallengeNumber != 2 {
		t.Errorf("expected the retry to take number 2, got %d", c.ChallengeNumber)
	}

	repo.stealNext = numberRetries
	if _, err := svc.EnsureChallenge(context.Background(), "2026-03-11"); err == nil {
		t.Error("expected failure once every retry loses")
	}
}

func TestEnsureChallenge_InvalidDate(t *testing.T) {
	svc := newTestService(newMemRepo())
	if _, err := svc.EnsureChallenge(context.Background(), "10/03/2026"); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got: %v", err)
	}
}

func TestEnsureTomorrowAndToday(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	tomorrow, err := svc.EnsureTomorrow(ctx)
	if err != nil {
		t.Fatalf("tomorrow: %v", err)
	}
	if tomorrow.ChallengeDate != "2026-03-11" {
		t.Errorf("expected 2026-03-11, got %s", tomorrow.ChallengeDate)
	}

	today, err := svc.EnsureToday(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today.ChallengeDate != "2026-03-10" || today.ChallengeNumber != 2 {
		t.Errorf("unexpected today challenge: %+v", today)
	}
}

func TestGet_HidesFutureChallenges(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()
	if _, err := svc.EnsureTomorrow(ctx); err != nil {
		t.Fatalf("tomorrow: %v", err)
	}

	if _, err := svc.Get(ctx, "2026-03-11"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for tomorrow, got: %v", err)
	}
	if _, err := svc.Get(ctx, "2026-03-01"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing date, got: %v", err)
	}
}

// execRecorder captures the statement FoldResult sends and reports a fixed
// number of affected rows.
type execRecorder struct {
	query string
	args  []any
	rows  int64
	err   error
}

func (e *execRecorder) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	e.query, e.args = query, args
	if e.err != nil {
		return nil, e.err
	}
	return driver.RowsAffected(e.rows), nil
}

func TestFoldResult(t *testing.T) {
	ctx := context.Background()

	ex := &execRecorder{rows: 1}
	if err := FoldResult(ctx, ex, "2026-03-10", 70, false); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if !strings.Contains(ex.query, "(average_score * total_attempts + $2) / (total_attempts + 1)") {
		t.Errorf("expected an incremental mean update, got %q", ex.query)
	}
	if len(ex.args) != 3 || ex.args[0] != "2026-03-10" || ex.args[1] != 70 || ex.args[2] != false {
		t.Errorf("unexpected args: %v", ex.args)
	}

	if err := FoldResult(ctx, &execRecorder{rows: 0}, "2026-01-01", 10, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing challenge, got: %v", err)
	}

	dbErr := errors.New("connection reset")
	if err := FoldResult(ctx, &execRecorder{err: dbErr}, "2026-03-10", 10, false); !errors.Is(err, dbErr) {
		t.Errorf("expected the driver error wrapped, got: %v", err)
	}
}

func TestHandler_Routes(t *testing.T) {
	svc := newTestService(newMemRepo())
	h := NewHandler(svc, logger.Nop())
	r := mux.NewRouter()
	r.HandleFunc("/daily/today", h.Today).Methods(http.MethodGet)
	r.HandleFunc("/daily/{date}", h.ByDate).Methods(http.MethodGet)
	r.HandleFunc("/internal/daily/ensure-tomorrow", h.EnsureTomorrow).Methods(http.MethodPost)

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/daily/2026-03-10", http.StatusNotFound},
		{http.MethodGet, "/daily/today", http.StatusOK},
		{http.MethodGet, "/daily/2026-03-10", http.StatusOK},
		{http.MethodGet, "/daily/not-a-date", http.StatusBadRequest},
		{http.MethodPost, "/internal/daily/ensure-tomorrow", http.StatusOK},
		{http.MethodGet, "/daily/2026-03-11", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("%s %s: expected %d, got %d: %s", tt.method, tt.path, tt.status, rec.Code, rec.Body.String())
		}
	}
}

package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/culturequiz/backend/internal/daily"
	"github.com/culturequiz/backend/internal/models"
)

func TestDefault_Loads(t *testing.T) {
	c := Default()

	if len(c.Films) < models.DailyFilmCount || len(c.Books) < models.DailyBookCount || len(c.Music) < models.DailyMusicCount {
		t.Fatalf("default pools too small: %d films, %d books, %d music", len(c.Films), len(c.Books), len(c.Music))
	}
	if !c.HasEra("1990s") || c.HasEra("1890s") {
		t.Error("unexpected era lookup result")
	}
	if !c.HasGenre("jazz") || c.HasGenre("polka") {
		t.Error("unexpected genre lookup result")
	}
	if Default() != c {
		t.Error("expected Default to return one shared catalog")
	}
}

func TestDefault_FeedsRotation(t *testing.T) {
	lineup, err := daily.SelectQuestions(Default().Pools(), 20522)
	if err != nil {
		t.Fatalf("select from default pools: %v", err)
	}
	if len(lineup) != models.DailyQuestionCount {
		t.Errorf("expected %d questions, got %d", models.DailyQuestionCount, len(lineup))
	}
}

func TestItems(t *testing.T) {
	c := Default()

	all := c.Items(nil)
	if len(all) != len(c.Films)+len(c.Books)+len(c.Music) {
		t.Errorf("expected every title, got %d", len(all))
	}

	books := models.ContentBook
	only := c.Items(&books)
	if len(only) != len(c.Books) {
		t.Fatalf("expected %d books, got %d", len(c.Books), len(only))
	}
	for _, ref := range only {
		if ref.Type != models.ContentBook {
			t.Errorf("expected only books, got %v", ref)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"films": [`,
		"empty era id":   `{"eras": [{"id": ""}]}`,
		"bad genre type": `{"genres": [{"id": "x", "contentType": "podcast"}]}`,
		"empty genre id": `{"genres": [{"id": "", "contentType": "film"}]}`,
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestScopesHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	ScopesHandler(Default()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/scopes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp scopesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Eras) == 0 || len(resp.Genres) == 0 {
		t.Errorf("expected eras and genres, got %+v", resp)
	}
}

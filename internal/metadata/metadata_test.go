package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
)

func jsonServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

// ── Film ────────────────────────────────────────────────

func TestFilmClient_Lookup(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "Moonlight" || r.URL.Query().Get("apikey") != "k" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"Response":"True","Director":"Barry Jenkins","Year":"2016","Poster":"https://img/moonlight.jpg"}`))
	})

	md, err := NewFilmClient(srv.URL, "k", srv.Client()).Lookup(context.Background(), "Moonlight")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if deref(md.Creator) != "Barry Jenkins" || deref(md.Year) != "2016" || deref(md.ImageURL) != "https://img/moonlight.jpg" {
		t.Errorf("unexpected metadata: %s %s %s", deref(md.Creator), deref(md.Year), deref(md.ImageURL))
	}
}

func TestFilmClient_PosterNA(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"True","Director":"N/A","Year":"2011–2019","Poster":"N/A"}`))
	})

	md, err := NewFilmClient(srv.URL, "k", srv.Client()).Lookup(context.Background(), "Some Series")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if md.ImageURL != nil || md.Creator != nil {
		t.Errorf("expected N/A fields to be absent, got creator=%s image=%s", deref(md.Creator), deref(md.ImageURL))
	}
	if deref(md.Year) != "2011" {
		t.Errorf("expected year 2011, got %s", deref(md.Year))
	}
}

func TestFilmClient_NotFoundIsEmpty(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})

	md, err := NewFilmClient(srv.URL, "k", srv.Client()).Lookup(context.Background(), "Nope")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !md.IsEmpty() {
		t.Errorf("expected empty metadata, got %+v", md)
	}
}

func TestFilmClient_MissingKeySkipsRequest(t *testing.T) {
	called := false
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	md, err := NewFilmClient(srv.URL, "", srv.Client()).Lookup(context.Background(), "Moonlight")
	if err != nil || !md.IsEmpty() {
		t.Errorf("expected empty metadata and no error, got %+v, %v", md, err)
	}
	if called {
		t.Error("expected no request without an API key")
	}
}

func TestFilmClient_UpstreamError(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := NewFilmClient(srv.URL, "bad", srv.Client()).Lookup(context.Background(), "Moonlight")
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got: %v", err)
	}
	var ue *apperr.UpstreamError
	if !errors.As(err, &ue) || ue.StatusCode != http.StatusUnauthorized || ue.Provider != "omdb" {
		t.Errorf("unexpected upstream error: %+v", ue)
	}
}

// ── Book ────────────────────────────────────────────────

func TestBookClient_CoverID(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"docs":[{"author_name":["Toni Morrison"],"first_publish_year":1987,"cover_i":42,"isbn":["111"]}]}`))
	})

	md, err := NewBookClient(srv.URL, "https://covers.test", srv.Client()).Lookup(context.Background(), "Beloved")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if deref(md.Creator) != "Toni Morrison" || deref(md.Year) != "1987" {
		t.Errorf("unexpected metadata: %s %s", deref(md.Creator), deref(md.Year))
	}
	if deref(md.ImageURL) != "https://covers.test/b/id/42-L.jpg" {
		t.Errorf("expected cover id URL, got %s", deref(md.ImageURL))
	}
}

func TestBookClient_ISBNFallback(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"docs":[{"author_name":["Louis Sachar"],"isbn":["0440414806"]}]}`))
	})

	md, err := NewBookClient(srv.URL, "https://covers.test", srv.Client()).Lookup(context.Background(), "Holes")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if deref(md.ImageURL) != "https://covers.test/b/isbn/0440414806-L.jpg" {
		t.Errorf("expected ISBN cover URL, got %s", deref(md.ImageURL))
	}
	if md.Year != nil {
		t.Errorf("expected no year, got %s", deref(md.Year))
	}
}

func TestBookClient_NoDocs(t *testing.T) {
	srv := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"docs":[]}`))
	})

	md, err := NewBookClient(srv.URL, "https://covers.test", srv.Client()).Lookup(context.Background(), "Nope")
	if err != nil || !md.IsEmpty() {
		t.Errorf("expected empty metadata, got %+v, %v", md, err)
	}
}

// ── Music ───────────────────────────────────────────────

func newSpotifyServer(t *testing.T, search http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", search)
	return jsonServer(t, mux.ServeHTTP)
}

func TestMusicClient_DeezerPrimary(t *testing.T) {
	deezer := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Nina Simone jazz" {
			t.Errorf("expected genre in query, got %q", got)
		}
		w.Write([]byte(`{"data":[{"name":"Nina Simone","picture_xl":"https://img/nina.jpg"}]}`))
	})

	music := NewMusicClient(NewDeezerClient(deezer.URL, deezer.Client()), nil, logger.Nop())
	md := music.Lookup(context.Background(), "Nina Simone", "jazz")

	if deref(md.Creator) != "Nina Simone" || deref(md.ImageURL) != "https://img/nina.jpg" {
		t.Errorf("unexpected metadata: %s %s", deref(md.Creator), deref(md.ImageURL))
	}
}

func TestMusicClient_SpotifyFallback(t *testing.T) {
	deezer := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	spotify := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		if got := r.URL.Query().Get("q"); got != "artist:Nina Simone genre:jazz" {
			t.Errorf("unexpected spotify query %q", got)
		}
		w.Write([]byte(`{"artists":{"items":[{"name":"Nina Simone","images":[{"url":"https://sp/nina.jpg"}]}]}}`))
	})

	secondary := NewSpotifyClient(spotify.URL, spotify.URL+"/api/token", "id", "secret", spotify.Client())
	music := NewMusicClient(NewDeezerClient(deezer.URL, deezer.Client()), secondary, logger.Nop())
	md := music.Lookup(context.Background(), "Nina Simone", "jazz")

	if deref(md.ImageURL) != "https://sp/nina.jpg" {
		t.Errorf("expected spotify image, got %s", deref(md.ImageURL))
	}
}

func TestMusicClient_EmptyPrimaryFallsBack(t *testing.T) {
	deezer := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	spotify := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"artists":{"items":[{"name":"Fela Kuti","images":[]}]}}`))
	})

	secondary := NewSpotifyClient(spotify.URL, spotify.URL+"/api/token", "id", "secret", spotify.Client())
	md := NewMusicClient(NewDeezerClient(deezer.URL, deezer.Client()), secondary, logger.Nop()).
		Lookup(context.Background(), "Fela Kuti", "")

	if deref(md.Creator) != "Fela Kuti" || md.ImageURL != nil {
		t.Errorf("unexpected metadata: %s %s", deref(md.Creator), deref(md.ImageURL))
	}
}

func TestMusicClient_BothFailKeepsName(t *testing.T) {
	down := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	deezerQuota := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"type":"Exception","message":"Quota limit exceeded","code":4}}`))
	})

	secondary := NewSpotifyClient(down.URL, down.URL+"/api/token", "id", "secret", down.Client())
	md := NewMusicClient(NewDeezerClient(deezerQuota.URL, deezerQuota.Client()), secondary, logger.Nop()).
		Lookup(context.Background(), "Nina Simone", "")

	if deref(md.Creator) != "Nina Simone" || md.ImageURL != nil || md.Year != nil {
		t.Errorf("expected name-only metadata, got %+v", md)
	}
}

// ── Enricher ────────────────────────────────────────────

func TestEnricher_NeverFails(t *testing.T) {
	down := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	e := NewEnricher(
		NewFilmClient(down.URL, "k", down.Client()),
		NewBookClient(down.URL, down.URL, down.Client()),
		NewMusicClient(NewDeezerClient(down.URL, down.Client()), nil, logger.Nop()),
		time.Second,
		logger.Nop(),
	)

	if md := e.Enrich(context.Background(), "Moonlight", models.ContentFilm, nil); !md.IsEmpty() {
		t.Errorf("expected empty film metadata, got %+v", md)
	}
	if md := e.Enrich(context.Background(), "Beloved", models.ContentBook, nil); !md.IsEmpty() {
		t.Errorf("expected empty book metadata, got %+v", md)
	}
	if md := e.Enrich(context.Background(), "Nina Simone", models.ContentMusic, nil); md.CreatorName() != "Nina Simone" {
		t.Errorf("expected artist name to survive, got %+v", md)
	}
}

func TestEnricher_Timeout(t *testing.T) {
	slow := jsonServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	e := NewEnricher(
		NewFilmClient(slow.URL, "k", slow.Client()),
		NewBookClient(slow.URL, slow.URL, slow.Client()),
		NewMusicClient(NewDeezerClient(slow.URL, slow.Client()), nil, logger.Nop()),
		50*time.Millisecond,
		logger.Nop(),
	)

	start := time.Now()
	md := e.Enrich(context.Background(), "Moonlight", models.ContentFilm, nil)
	if !md.IsEmpty() {
		t.Errorf("expected empty metadata on timeout, got %+v", md)
	}
	if time.Since(start) > time.Second {
		t.Error("expected enrichment to give up at the timeout")
	}
}

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/config"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
)

// Metadata is the enrichment record for one piece of content. Any field may
// be absent; an entirely empty record is a valid "no metadata" answer.
type Metadata struct {
	Creator  *string `json:"creator,omitempty"`
	Year     *string `json:"year,omitempty"`
	ImageURL *string `json:"imageUrl,omitempty"`
}

func (m Metadata) IsEmpty() bool {
	return m.Creator == nil && m.Year == nil && m.ImageURL == nil
}

// CreatorName returns the creator or "" when unknown.
func (m Metadata) CreatorName() string {
	if m.Creator == nil {
		return ""
	}
	return *m.Creator
}

// Enricher dispatches a lookup to the client for the content type. It never
// returns an error: every provider failure degrades to a partial record.
type Enricher struct {
	film    *FilmClient
	book    *BookClient
	music   *MusicClient
	timeout time.Duration
	log     *logger.Logger
}

func NewEnricher(film *FilmClient, book *BookClient, music *MusicClient, timeout time.Duration, log *logger.Logger) *Enricher {
	return &Enricher{film: film, book: book, music: music, timeout: timeout, log: log}
}

// NewEnricherFromConfig builds all three clients against their public endpoints.
func NewEnricherFromConfig(cfg *config.Config, log *logger.Logger) *Enricher {
	httpClient := &http.Client{Timeout: cfg.MetadataTimeout}

	var spotify ArtistSource
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		spotify = NewSpotifyClient(SpotifyAPIBaseURL, SpotifyTokenURL, cfg.SpotifyClientID, cfg.SpotifyClientSecret, httpClient)
	} else {
		log.Info("spotify credentials not set, music enrichment uses deezer only")
	}

	return NewEnricher(
		NewFilmClient(OMDbBaseURL, cfg.OMDbAPIKey, httpClient),
		NewBookClient(OpenLibraryBaseURL, OpenLibraryCoversURL, httpClient),
		NewMusicClient(NewDeezerClient(DeezerBaseURL, httpClient), spotify, log),
		cfg.MetadataTimeout,
		log,
	)
}

func (e *Enricher) Enrich(ctx context.Context, title string, contentType models.ContentType, genre *string) Metadata {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var (
		md  Metadata
		err error
	)
	switch contentType {
	case models.ContentFilm:
		md, err = e.film.Lookup(ctx, title)
	case models.ContentBook:
		md, err = e.book.Lookup(ctx, title)
	case models.ContentMusic:
		g := ""
		if genre != nil {
			g = *genre
		}
		// MusicClient absorbs its own provider failures.
		return e.music.Lookup(ctx, title, g)
	default:
		e.log.Warn("no metadata client for content type", "content_type", contentType, "title", title)
		return Metadata{}
	}

	if err != nil {
		e.log.Warn("metadata enrichment failed", "content_type", contentType, "title", title, "error", err)
		return Metadata{}
	}
	return md
}

// getJSON performs a GET and decodes a 2xx JSON body into out. Non-2xx
// answers become an UpstreamError for the named provider.
func getJSON(ctx context.Context, client *http.Client, provider, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", provider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apperr.UpstreamError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

func stringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

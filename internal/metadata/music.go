package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/culturequiz/backend/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DeezerBaseURL     = "https://api.deezer.com"
	SpotifyAPIBaseURL = "https://api.spotify.com"
	SpotifyTokenURL   = "https://accounts.spotify.com/api/token"
)

var errNoArtist = errors.New("no matching artist")

// ArtistSource is one music provider.
type ArtistSource interface {
	SearchArtist(ctx context.Context, name, genre string) (Metadata, error)
}

// MusicClient asks the primary provider first and the secondary only when the
// primary fails or finds nothing. If both fail the artist name is still returned.
type MusicClient struct {
	primary   ArtistSource
	secondary ArtistSource
	log       *logger.Logger
}

// NewMusicClient accepts a nil secondary (no credentials configured).
func NewMusicClient(primary, secondary ArtistSource, log *logger.Logger) *MusicClient {
	return &MusicClient{primary: primary, secondary: secondary, log: log}
}

func (c *MusicClient) Lookup(ctx context.Context, name, genre string) Metadata {
	md, err := c.primary.SearchArtist(ctx, name, genre)
	if err == nil {
		return md
	}
	c.log.Warn("primary music lookup failed", "artist", name, "error", err)

	if c.secondary != nil {
		md, err = c.secondary.SearchArtist(ctx, name, genre)
		if err == nil {
			return md
		}
		c.log.Warn("secondary music lookup failed", "artist", name, "error", err)
	}

	return Metadata{Creator: stringPtr(name)}
}

// ── Deezer ──────────────────────────────────────────────

type DeezerClient struct {
	baseURL string
	http    *http.Client
}

func NewDeezerClient(baseURL string, httpClient *http.Client) *DeezerClient {
	return &DeezerClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type deezerSearch struct {
	Data []struct {
		Name      string `json:"name"`
		PictureXL string `json:"picture_xl"`
	} `json:"data"`
	// Deezer reports quota and query errors with a 200 and this object.
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *DeezerClient) SearchArtist(ctx context.Context, name, genre string) (Metadata, error) {
	query := name
	if genre != "" {
		query = name + " " + genre
	}
	q := url.Values{}
	q.Set("q", query)

	var body deezerSearch
	if err := getJSON(ctx, c.http, "deezer", c.baseURL+"/search/artist?"+q.Encode(), &body); err != nil {
		return Metadata{}, err
	}
	if body.Error != nil {
		return Metadata{}, fmt.Errorf("deezer %s (%d): %s", body.Error.Type, body.Error.Code, body.Error.Message)
	}
	if len(body.Data) == 0 {
		return Metadata{}, errNoArtist
	}

	artist := body.Data[0]
	creator := stringPtr(artist.Name)
	if creator == nil {
		creator = stringPtr(name)
	}
	return Metadata{Creator: creator, ImageURL: stringPtr(artist.PictureXL)}, nil
}

// ── Spotify ─────────────────────────────────────────────

// SpotifyClient searches the Spotify Web API. Tokens come from the client
// credentials flow and are cached and refreshed by the oauth2 transport.
type SpotifyClient struct {
	baseURL string
	http    *http.Client
}

func NewSpotifyClient(baseURL, tokenURL, clientID, clientSecret string, base *http.Client) *SpotifyClient {
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	return &SpotifyClient{baseURL: strings.TrimRight(baseURL, "/"), http: cc.Client(ctx)}
}

type spotifySearch struct {
	Artists struct {
		Items []struct {
			Name   string `json:"name"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"items"`
	} `json:"artists"`
}

func (c *SpotifyClient) SearchArtist(ctx context.Context, name, genre string) (Metadata, error) {
	query := "artist:" + name
	if genre != "" {
		query += " genre:" + genre
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "artist")
	q.Set("limit", "1")

	var body spotifySearch
	if err := getJSON(ctx, c.http, "spotify", c.baseURL+"/v1/search?"+q.Encode(), &body); err != nil {
		return Metadata{}, err
	}
	if len(body.Artists.Items) == 0 {
		return Metadata{}, errNoArtist
	}

	artist := body.Artists.Items[0]
	md := Metadata{Creator: stringPtr(artist.Name)}
	if md.Creator == nil {
		md.Creator = stringPtr(name)
	}
	if len(artist.Images) > 0 {
		md.ImageURL = stringPtr(artist.Images[0].URL)
	}
	return md, nil
}

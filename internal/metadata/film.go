package metadata

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const OMDbBaseURL = "https://www.omdbapi.com"

// FilmClient looks films up in OMDb.
type FilmClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewFilmClient(baseURL, apiKey string, httpClient *http.Client) *FilmClient {
	return &FilmClient{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, http: httpClient}
}

type omdbResponse struct {
	Response string `json:"Response"`
	Director string `json:"Director"`
	Year     string `json:"Year"`
	Poster   string `json:"Poster"`
}

// Lookup returns director, year and poster. Without an API key it returns an
// empty record rather than an error.
func (c *FilmClient) Lookup(ctx context.Context, title string) (Metadata, error) {
	if c.apiKey == "" {
		return Metadata{}, nil
	}

	q := url.Values{}
	q.Set("t", title)
	q.Set("apikey", c.apiKey)

	var body omdbResponse
	if err := getJSON(ctx, c.http, "omdb", c.baseURL+"/?"+q.Encode(), &body); err != nil {
		return Metadata{}, err
	}
	if strings.EqualFold(body.Response, "False") {
		return Metadata{}, nil
	}

	return Metadata{
		Creator:  omdbValue(body.Director),
		Year:     omdbYear(body.Year),
		ImageURL: omdbValue(body.Poster),
	}, nil
}

// OMDb reports missing fields as "N/A".
func omdbValue(v string) *string {
	if strings.EqualFold(strings.TrimSpace(v), "N/A") {
		return nil
	}
	return stringPtr(v)
}

// omdbYear keeps the first four digits; series come back as "2011–2019".
func omdbYear(v string) *string {
	v = strings.TrimSpace(v)
	if len(v) < 4 {
		return nil
	}
	for _, r := range v[:4] {
		if r < '0' || r > '9' {
			return nil
		}
	}
	return stringPtr(v[:4])
}

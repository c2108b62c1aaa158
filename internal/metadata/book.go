package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	OpenLibraryBaseURL   = "https://openlibrary.org"
	OpenLibraryCoversURL = "https://covers.openlibrary.org"
)

// BookClient looks books up in the Open Library search API.
type BookClient struct {
	baseURL   string
	coversURL string
	http      *http.Client
}

func NewBookClient(baseURL, coversURL string, httpClient *http.Client) *BookClient {
	return &BookClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		coversURL: strings.TrimRight(coversURL, "/"),
		http:      httpClient,
	}
}

type openLibrarySearch struct {
	Docs []struct {
		AuthorName       []string `json:"author_name"`
		FirstPublishYear int      `json:"first_publish_year"`
		CoverID          int      `json:"cover_i"`
		ISBN             []string `json:"isbn"`
	} `json:"docs"`
}

func (c *BookClient) Lookup(ctx context.Context, title string) (Metadata, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("limit", "1")

	var body openLibrarySearch
	if err := getJSON(ctx, c.http, "openlibrary", c.baseURL+"/search.json?"+q.Encode(), &body); err != nil {
		return Metadata{}, err
	}
	if len(body.Docs) == 0 {
		return Metadata{}, nil
	}

	doc := body.Docs[0]
	var md Metadata
	if len(doc.AuthorName) > 0 {
		md.Creator = stringPtr(doc.AuthorName[0])
	}
	if doc.FirstPublishYear > 0 {
		md.Year = stringPtr(strconv.Itoa(doc.FirstPublishYear))
	}
	switch {
	case doc.CoverID > 0:
		md.ImageURL = stringPtr(fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, doc.CoverID))
	case len(doc.ISBN) > 0 && doc.ISBN[0] != "":
		md.ImageURL = stringPtr(fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, url.PathEscape(doc.ISBN[0])))
	}
	return md, nil
}

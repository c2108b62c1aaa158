// Package catalog holds the static content lists the rotation and the bulk
// pre-generation job draw from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/culturequiz/backend/internal/models"
)

//go:embed catalog.json
var defaultCatalog []byte

type Era struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartYear int    `json:"startYear"`
	EndYear   int    `json:"endYear"`
}

type Genre struct {
	ID          string             `json:"id"`
	Label       string             `json:"label"`
	ContentType models.ContentType `json:"contentType"`
}

type Catalog struct {
	Films  []string `json:"films"`
	Books  []string `json:"books"`
	Music  []string `json:"music"`
	Eras   []Era    `json:"eras"`
	Genres []Genre  `json:"genres"`

	eras   map[string]bool
	genres map[string]bool
}

// Parse decodes a catalog document and indexes its scope ids.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c.eras = make(map[string]bool, len(c.Eras))
	for _, e := range c.Eras {
		if e.ID == "" {
			return nil, fmt.Errorf("parse catalog: era with empty id")
		}
		c.eras[e.ID] = true
	}
	c.genres = make(map[string]bool, len(c.Genres))
	for _, g := range c.Genres {
		if g.ID == "" {
			return nil, fmt.Errorf("parse catalog: genre with empty id")
		}
		if !g.ContentType.Valid() {
			return nil, fmt.Errorf("parse catalog: genre %q has unknown content type %q", g.ID, g.ContentType)
		}
		c.genres[g.ID] = true
	}
	return &c, nil
}

var loadDefault = sync.OnceValue(func() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the embedded catalog.
func Default() *Catalog {
	return loadDefault()
}

func (c *Catalog) HasEra(id string) bool   { return c.eras[id] }
func (c *Catalog) HasGenre(id string) bool { return c.genres[id] }

// Pools returns the daily rotation pools.
func (c *Catalog) Pools() models.ContentPools {
	return models.ContentPools{Films: c.Films, Books: c.Books, Music: c.Music}
}

// Items lists every title as a ContentRef, optionally limited to one type.
func (c *Catalog) Items(only *models.ContentType) []models.ContentRef {
	var out []models.ContentRef
	add := func(t models.ContentType, titles []string) {
		if only != nil && *only != t {
			return
		}
		for _, title := range titles {
			out = append(out, models.ContentRef{Title: title, Type: t})
		}
	}
	add(models.ContentFilm, c.Films)
	add(models.ContentBook, c.Books)
	add(models.ContentMusic, c.Music)
	return out
}

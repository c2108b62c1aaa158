package catalog

import (
	"encoding/json"
	"net/http"
)

type scopesResponse struct {
	Eras   []Era   `json:"eras"`
	Genres []Genre `json:"genres"`
}

// ScopesHandler serves the era and genre ids themed sessions accept.
func ScopesHandler(c *Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scopesResponse{Eras: c.Eras, Genres: c.Genres})
	}
}

package questions

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/logger"
	"github.com/culturequiz/backend/internal/models"
)

type Handler struct {
	service *Service
	log     *logger.Logger
}

func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.service.GenerateQuestion(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ── Admin ───────────────────────────────────────────────

func (h *Handler) ListCached(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.List(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if questions == nil {
		questions = []models.CachedQuestion{}
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) DeleteCached(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Delete(r.Context(), filterFromQuery(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) DeleteAllCached(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.DeleteAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func filterFromQuery(query url.Values) models.CacheFilter {
	f := models.CacheFilter{
		Limit:  intQueryParam(query, "limit", 50),
		Offset: intQueryParam(query, "offset", 0),
	}
	if t := query.Get("title"); t != "" {
		f.Title = &t
	}
	if ct := query.Get("contentType"); ct != "" {
		c := models.ContentType(ct)
		f.ContentType = &c
	}
	if d := query.Get("difficulty"); d != "" {
		diff := models.Difficulty(d)
		f.Difficulty = &diff
	}
	return f
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError && !errors.Is(err, apperr.ErrConfiguration) {
			msg = "Internal server error"
		}
	}
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func intQueryParam(query url.Values, key string, defaultVal int) int {
	s := query.Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	return v
}

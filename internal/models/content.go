package models

import (
	"fmt"
	"strings"
	"time"
)

type ContentType string

const (
	ContentFilm  ContentType = "film"
	ContentBook  ContentType = "book"
	ContentMusic ContentType = "music"
)

var ValidContentTypes = map[ContentType]bool{
	ContentFilm:  true,
	ContentBook:  true,
	ContentMusic: true,
}

func (c ContentType) Valid() bool {
	return ValidContentTypes[c]
}

// Noun returns the word prompts and fallback copy use for this content type.
func (c ContentType) Noun() string {
	switch c {
	case ContentFilm:
		return "film"
	case ContentBook:
		return "book"
	case ContentMusic:
		return "music artist"
	default:
		return string(c)
	}
}

// CreatorRole names who "creator" refers to for this content type.
func (c ContentType) CreatorRole() string {
	switch c {
	case ContentFilm:
		return "director"
	case ContentBook:
		return "author"
	default:
		return "artist"
	}
}

type Difficulty string

const (
	DifficultyMiddleSchool Difficulty = "middle_school"
	DifficultyHighSchool   Difficulty = "high_school"
	DifficultyEasy         Difficulty = "easy"
	DifficultyMedium       Difficulty = "medium"
	DifficultyHard         Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyMiddleSchool: true,
	DifficultyHighSchool:   true,
	DifficultyEasy:         true,
	DifficultyMedium:       true,
	DifficultyHard:         true,
}

func (d Difficulty) Valid() bool {
	return ValidDifficulties[d]
}

// IsStudent reports whether the level targets a classroom audience.
func (d Difficulty) IsStudent() bool {
	return d == DifficultyMiddleSchool || d == DifficultyHighSchool
}

// ContentRef identifies a piece of content from a static catalog.
type ContentRef struct {
	Title string      `json:"title"`
	Type  ContentType `json:"type"`
}

// ── Questions ─────────────────────────────────────────

type LearningContent struct {
	DidYouKnow       string   `json:"didYouKnow"`
	CulturalContext  string   `json:"culturalContext"`
	CreatorSpotlight string   `json:"creatorSpotlight"`
	Awards           []string `json:"awards"`
	Legacy           string   `json:"legacy"`
}

// IsComplete reports whether every field carries copy.
func (l *LearningContent) IsComplete() bool {
	if l == nil {
		return false
	}
	if strings.TrimSpace(l.DidYouKnow) == "" || strings.TrimSpace(l.CulturalContext) == "" ||
		strings.TrimSpace(l.CreatorSpotlight) == "" || strings.TrimSpace(l.Legacy) == "" {
		return false
	}
	if len(l.Awards) == 0 {
		return false
	}
	for _, a := range l.Awards {
		if strings.TrimSpace(a) == "" {
			return false
		}
	}
	return true
}

// CacheKey is the content-derived identity of a cached question.
type CacheKey struct {
	Title       string
	ContentType ContentType
	Difficulty  Difficulty
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.ContentType, k.Difficulty, k.Title)
}

type CachedQuestion struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	ContentType ContentType     `json:"contentType"`
	Difficulty  Difficulty      `json:"difficulty"`
	Genre       *string         `json:"genre,omitempty"`
	Question    string          `json:"question"`
	Options     []string        `json:"options"`
	Answer      string          `json:"answer"`
	Plot        *string         `json:"plot,omitempty"`
	Creator     *string         `json:"creator,omitempty"`
	Year        *string         `json:"year,omitempty"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Learning    LearningContent `json:"learning"`
	CreatedAt   time.Time       `json:"createdAt"`
	UsageCount  int             `json:"usageCount"`
}

func (q *CachedQuestion) Key() CacheKey {
	return CacheKey{Title: q.Title, ContentType: q.ContentType, Difficulty: q.Difficulty}
}

type GenerateRequest struct {
	Title       string      `json:"title"`
	ContentType ContentType `json:"contentType"`
	Difficulty  Difficulty  `json:"difficulty"`
	Genre       *string     `json:"genre,omitempty"`
}

func (r GenerateRequest) Key() CacheKey {
	return CacheKey{Title: strings.TrimSpace(r.Title), ContentType: r.ContentType, Difficulty: r.Difficulty}
}

type GenerateResult struct {
	ID        string          `json:"id"`
	Question  string          `json:"question"`
	Options   []string        `json:"options"`
	Answer    string          `json:"answer"`
	Plot      *string         `json:"plot,omitempty"`
	Creator   *string         `json:"creator,omitempty"`
	Year      *string         `json:"year,omitempty"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
	Learning  LearningContent `json:"learning"`
	FromCache bool            `json:"fromCache"`
}

func NewGenerateResult(q *CachedQuestion, fromCache bool) *GenerateResult {
	return &GenerateResult{
		ID:        q.ID,
		Question:  q.Question,
		Options:   q.Options,
		Answer:    q.Answer,
		Plot:      q.Plot,
		Creator:   q.Creator,
		Year:      q.Year,
		ImageURL:  q.ImageURL,
		Learning:  q.Learning,
		FromCache: fromCache,
	}
}

// ── Admin ─────────────────────────────────────────────

type CacheFilter struct {
	Title       *string      `json:"title,omitempty"`
	ContentType *ContentType `json:"contentType,omitempty"`
	Difficulty  *Difficulty  `json:"difficulty,omitempty"`
	Limit       int          `json:"limit,omitempty"`
	Offset      int          `json:"offset,omitempty"`
}

type CacheStats struct {
	Total         int                 `json:"total"`
	TotalUsage    int64               `json:"totalUsage"`
	ByContentType map[ContentType]int `json:"byContentType"`
	ByDifficulty  map[Difficulty]int  `json:"byDifficulty"`
}

// ── Bulk pre-generation ───────────────────────────────

type PregenerateStatus string

const (
	PregenerateCached    PregenerateStatus = "cached"
	PregenerateGenerated PregenerateStatus = "generated"
	PregenerateError     PregenerateStatus = "error"
)

type PregenerateResult struct {
	Title       string            `json:"title"`
	ContentType ContentType       `json:"contentType"`
	Difficulty  Difficulty        `json:"difficulty"`
	Status      PregenerateStatus `json:"status"`
	QuestionID  string            `json:"questionId,omitempty"`
	Error       string            `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

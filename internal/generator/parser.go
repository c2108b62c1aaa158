package generator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/culturequiz/backend/internal/apperr"
	"github.com/culturequiz/backend/internal/models"
)

// OptionCount is how many options every question carries.
const OptionCount = 4

// ParsedQuestion is the decoded model payload before answer normalization.
type ParsedQuestion struct {
	Plot     string
	Question string
	Options  []string
	Answer   string
	Learning *models.LearningContent
}

type generatedQuestion struct {
	Plot     string             `json:"plot"`
	Question string             `json:"question"`
	Options  []string           `json:"options"`
	Answer   string             `json:"answer"`
	Learning *generatedLearning `json:"learning"`
}

type generatedLearning struct {
	DidYouKnow       string          `json:"didYouKnow"`
	CulturalContext  string          `json:"culturalContext"`
	CreatorSpotlight string          `json:"creatorSpotlight"`
	Awards           flexibleStrings `json:"awards"`
	Legacy           string          `json:"legacy"`
}

// flexibleStrings accepts either a JSON array of strings or a single string.
type flexibleStrings []string

func (f *flexibleStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if strings.TrimSpace(single) != "" {
		*f = []string{single}
	}
	return nil
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ExtractJSON returns the candidate JSON documents found in a model response,
// most specific first: a fenced block, the whole body, then the outermost braces.
func ExtractJSON(body string) []string {
	body = strings.TrimSpace(body)
	var candidates []string

	if m := fencedBlock.FindStringSubmatch(body); m != nil {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if strings.HasPrefix(body, "{") {
		candidates = append(candidates, body)
	}
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		candidates = append(candidates, body[start:end+1])
	}
	return candidates
}

// ParseSynthesis decodes and validates a model response. Any failure is a
// GenerationFailed error.
func ParseSynthesis(responseBody string) (*ParsedQuestion, error) {
	candidates := ExtractJSON(responseBody)
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.ErrGenerationFailed, "response contains no JSON object")
	}

	var (
		gq      generatedQuestion
		lastErr error
		decoded bool
	)
	for _, c := range candidates {
		gq = generatedQuestion{}
		if err := json.Unmarshal([]byte(c), &gq); err != nil {
			lastErr = err
			continue
		}
		decoded = true
		break
	}
	if !decoded {
		return nil, apperr.Wrap(apperr.ErrGenerationFailed, "failed to parse JSON response", lastErr)
	}

	if err := validateQuestion(&gq); err != nil {
		return nil, apperr.Wrap(apperr.ErrGenerationFailed, "invalid question payload", err)
	}

	options := make([]string, len(gq.Options))
	for i, o := range gq.Options {
		options[i] = strings.TrimSpace(o)
	}

	return &ParsedQuestion{
		Plot:     strings.TrimSpace(gq.Plot),
		Question: strings.TrimSpace(gq.Question),
		Options:  options,
		Answer:   gq.Answer,
		Learning: gq.Learning.toModel(),
	}, nil
}

func validateQuestion(q *generatedQuestion) error {
	var errs []string

	if strings.TrimSpace(q.Question) == "" {
		errs = append(errs, "empty question")
	}
	if len(q.Options) != OptionCount {
		errs = append(errs, fmt.Sprintf("expected %d options, got %d", OptionCount, len(q.Options)))
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			errs = append(errs, fmt.Sprintf("option %d is empty", i+1))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (l *generatedLearning) toModel() *models.LearningContent {
	if l == nil {
		return nil
	}
	awards := make([]string, 0, len(l.Awards))
	for _, a := range l.Awards {
		if a = strings.TrimSpace(a); a != "" {
			awards = append(awards, a)
		}
	}
	return &models.LearningContent{
		DidYouKnow:       strings.TrimSpace(l.DidYouKnow),
		CulturalContext:  strings.TrimSpace(l.CulturalContext),
		CreatorSpotlight: strings.TrimSpace(l.CreatorSpotlight),
		Awards:           awards,
		Legacy:           strings.TrimSpace(l.Legacy),
	}
}

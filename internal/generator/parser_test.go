package generator

import (
	"errors"
	"strings"
	"testing"

	"github.com/culturequiz/backend/internal/apperr"
)

const validQuestionJSON = `{
  "plot": "A young man grows up in Miami across three chapters of his life.",
  "question": "Which object does Juan teach Chiron to do in the ocean?",
  "options": ["Swim", "Fish", "Surf", "Sail"],
  "answer": "Swim",
  "learning": {
    "didYouKnow": "It was shot in 25 days.",
    "culturalContext": "A landmark of queer Black cinema.",
    "creatorSpotlight": "Adapted from a semi-autobiographical play.",
    "awards": ["Academy Award for Best Picture"],
    "legacy": "Frequently cited among the best films of its decade."
  }
}`

func TestParseSynthesis_ValidJSON(t *testing.T) {
	q, err := ParseSynthesis(validQuestionJSON)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if len(q.Options) != 4 {
		t.Errorf("expected 4 options, got %d", len(q.Options))
	}
	if q.Answer != "Swim" {
		t.Errorf("expected answer Swim, got %q", q.Answer)
	}
	if q.Learning == nil || len(q.Learning.Awards) != 1 {
		t.Errorf("expected learning with one award, got %+v", q.Learning)
	}
}

func TestParseSynthesis_MarkdownFences(t *testing.T) {
	for _, input := range []string{
		"```json\n" + validQuestionJSON + "\n```",
		"```\n" + validQuestionJSON + "\n```",
		"Here is your question:\n```json\n" + validQuestionJSON + "\n```\nEnjoy!",
	} {
		q, err := ParseSynthesis(input)
		if err != nil {
			t.Fatalf("expected no error with markdown fences, got: %v", err)
		}
		if q.Question == "" {
			t.Error("expected question text")
		}
	}
}

func TestParseSynthesis_BareJSONInProse(t *testing.T) {
	input := "Sure! " + validQuestionJSON + " Let me know if you want another."

	q, err := ParseSynthesis(input)
	if err != nil {
		t.Fatalf("expected bare JSON to be extracted, got: %v", err)
	}
	if q.Options[0] != "Swim" {
		t.Errorf("expected first option Swim, got %q", q.Options[0])
	}
}

func TestParseSynthesis_MalformedJSON(t *testing.T) {
	for _, input := range []string{
		"this is not json at all",
		"```json\n{ not valid }\n```",
		"",
	} {
		_, err := ParseSynthesis(input)
		if err == nil {
			t.Fatalf("expected error for %q", input)
		}
		if !errors.Is(err, apperr.ErrGenerationFailed) {
			t.Errorf("expected ErrGenerationFailed for %q, got: %v", input, err)
		}
	}
}

func TestParseSynthesis_WrongOptionCount(t *testing.T) {
	input := `{"question": "Q?", "options": ["a", "b", "c"], "answer": "a"}`

	_, err := ParseSynthesis(input)
	if err == nil {
		t.Fatal("expected validation error for three options")
	}
	if !errors.Is(err, apperr.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got: %v", err)
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError in chain, got: %T", err)
	}
	found := false
	for _, e := range ve.Errors {
		if strings.Contains(e, "expected 4 options") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected error about 4 options, got: %v", ve.Errors)
	}
}

func TestParseSynthesis_EmptyQuestion(t *testing.T) {
	_, err := ParseSynthesis(`{"question": "  ", "options": ["a", "b", "c", "d"], "answer": "a"}`)
	if !errors.Is(err, apperr.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed for empty question, got: %v", err)
	}
}

func TestParseSynthesis_MissingLearning(t *testing.T) {
	q, err := ParseSynthesis(`{"question": "Q?", "options": ["a", "b", "c", "d"], "answer": "b"}`)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if q.Learning != nil {
		t.Errorf("expected nil learning when omitted, got %+v", q.Learning)
	}
}

func TestParseSynthesis_AwardsAsString(t *testing.T) {
	input := `{"question": "Q?", "options": ["a", "b", "c", "d"], "answer": "a",
	  "learning": {"didYouKnow": "x", "awards": "Booker Prize"}}`

	q, err := ParseSynthesis(input)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(q.Learning.Awards) != 1 || q.Learning.Awards[0] != "Booker Prize" {
		t.Errorf("expected single award from string, got %v", q.Learning.Awards)
	}
}

func TestParseSynthesis_TrimsOptions(t *testing.T) {
	q, err := ParseSynthesis(`{"question": "Q?", "options": [" a ", "b", "c", "d"], "answer": "a"}`)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if q.Options[0] != "a" {
		t.Errorf("expected trimmed option, got %q", q.Options[0])
	}
}

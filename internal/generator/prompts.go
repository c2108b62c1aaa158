package generator

import (
	"fmt"
	"strings"

	"github.com/culturequiz/backend/internal/models"
)

var difficultyGuidance = map[models.Difficulty]string{
	models.DifficultyMiddleSchool: `Audience: middle school students (ages 11-14).
- Ask about the central story, main characters, or the most famous song or theme
- Use short sentences and everyday vocabulary
- Distractors should be clearly wrong to someone who knows the work`,

	models.DifficultyHighSchool: `Audience: high school students (ages 14-18).
- Ask about themes, symbolism, character motivation, or historical setting
- Vocabulary can match a high school literature or music class
- Distractors should be plausible but distinguishable with a basic reading or listening`,

	models.DifficultyEasy: `Audience: casual general audience.
- Ask about well-known facts most people who have heard of the work would know
- Distractors should be plausible but not tricky`,

	models.DifficultyMedium: `Audience: engaged fans.
- Ask about notable plot points, characters, recurring motifs, or signature works
- Distractors should come from the same world or genre so guessing is hard`,

	models.DifficultyHard: `Audience: dedicated enthusiasts and critics.
- Ask about deep cuts: minor characters, production history, influences, or lesser-known works
- Distractors should be closely related and require real expertise to rule out`,
}

// DifficultyGuidance returns the audience guidance block for a level.
func DifficultyGuidance(d models.Difficulty) string {
	if g, ok := difficultyGuidance[d]; ok {
		return g
	}
	return difficultyGuidance[models.DifficultyMedium]
}

func BuildSystemPrompt() string {
	return `You are a trivia writer for a cultural quiz game covering films, books, and music artists.

You write exactly ONE multiple-choice question per request, with exactly 4 options and exactly one correct answer.

RULES:
- NEVER ask who created, directed, wrote, or performed the work. The creator is shown to the player separately.
- NEVER ask about the release date or year. The year is shown to the player separately.
- The correct answer must be one of the 4 options, copied verbatim.
- Options must be distinct from one another.
- Do not reveal the answer in the question text.

OUTPUT FORMAT:
Respond with a single JSON object and nothing else.`
}

func BuildUserPrompt(title string, contentType models.ContentType, difficulty models.Difficulty) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a trivia question about the %s %q.\n\n", contentType.Noun(), title)
	fmt.Fprintf(&b, "DIFFICULTY: %s\n%s\n\n", difficulty, DifficultyGuidance(difficulty))
	if difficulty.IsStudent() {
		b.WriteString("This question is used in a classroom. Keep every field suitable for that age group.\n\n")
	}

	if contentType == models.ContentMusic {
		b.WriteString("For a music artist, \"plot\" is a one-paragraph career summary.\n\n")
	}

	b.WriteString(`Return JSON with exactly these fields:
{
  "plot": "one-paragraph spoiler-free summary",
  "question": "the question text",
  "options": ["option 1", "option 2", "option 3", "option 4"],
  "answer": "the correct option, copied exactly",
  "learning": {
    "didYouKnow": "one surprising fact",
    "culturalContext": "how the work fits its time and place",
    "creatorSpotlight": "a note about the creator's career",
    "awards": ["notable awards or honors"],
    "legacy": "the work's lasting influence"
  }
}`)

	return b.String()
}

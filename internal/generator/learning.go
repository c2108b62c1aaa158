package generator

import (
	"fmt"
	"strings"

	"github.com/culturequiz/backend/internal/models"
)

// FallbackLearning builds generic learning copy for when the model omitted it.
func FallbackLearning(title string, contentType models.ContentType, creator string) models.LearningContent {
	noun := contentType.Noun()
	creator = strings.TrimSpace(creator)

	spotlight := fmt.Sprintf("Look into the career behind %q to see how it shaped the %s's style.", title, noun)
	if creator != "" {
		spotlight = fmt.Sprintf("%s is the %s behind %q; exploring their other work adds context to this one.",
			creator, contentType.CreatorRole(), title)
	}

	return models.LearningContent{
		DidYouKnow:       fmt.Sprintf("%q is part of our trivia catalog because it left a mark on %s culture.", title, noun),
		CulturalContext:  fmt.Sprintf("Consider when %q appeared and what else audiences were engaging with at the time.", title),
		CreatorSpotlight: spotlight,
		Awards:           []string{fmt.Sprintf("Check award archives for recognition %q has received.", title)},
		Legacy:           fmt.Sprintf("%q continues to be discussed and revisited by new audiences.", title),
	}
}

// CompleteLearning fills every empty field of l from fallback.
func CompleteLearning(l *models.LearningContent, fallback models.LearningContent) models.LearningContent {
	if l == nil {
		return fallback
	}
	out := *l
	if strings.TrimSpace(out.DidYouKnow) == "" {
		out.DidYouKnow = fallback.DidYouKnow
	}
	if strings.TrimSpace(out.CulturalContext) == "" {
		out.CulturalContext = fallback.CulturalContext
	}
	if strings.TrimSpace(out.CreatorSpotlight) == "" {
		out.CreatorSpotlight = fallback.CreatorSpotlight
	}
	if strings.TrimSpace(out.Legacy) == "" {
		out.Legacy = fallback.Legacy
	}

	awards := make([]string, 0, len(out.Awards))
	for _, a := range out.Awards {
		if strings.TrimSpace(a) != "" {
			awards = append(awards, a)
		}
	}
	if len(awards) == 0 {
		awards = append(awards, fallback.Awards...)
	}
	out.Awards = awards

	return out
}

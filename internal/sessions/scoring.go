package sessions

import (
	"time"

	"github.com/culturequiz/backend/internal/models"
)

// ── Answer streaks ──────────────────────────────────────

// CurrentStreak is the length of the trailing run of correct answers.
func CurrentStreak(results []models.QuestionResult) int {
	n := 0
	for i := len(results) - 1; i >= 0; i-- {
		if !results[i].Correct {
			break
		}
		n++
	}
	return n
}

// applyAnswer appends one result and recomputes the derived counters.
func applyAnswer(a *models.Attempt, r models.QuestionResult) {
	a.QuestionResults = append(a.QuestionResults, r)
	if r.Correct {
		a.Score += models.PointsPerCorrect
		a.CorrectAnswers++
	}
	a.CurrentStreak = CurrentStreak(a.QuestionResults)
	if a.CurrentStreak > a.MaxStreak {
		a.MaxStreak = a.CurrentStreak
	}
}

// ── Mastery ─────────────────────────────────────────────

type masteryTier struct {
	level       models.MasteryLevel
	minAccuracy float64
	minGames    int
}

// Ordered from highest to lowest.
var masteryTiers = []masteryTier{
	{models.MasteryScholar, 0.90, 5},
	{models.MasteryExpert, 0.75, 3},
	{models.MasteryFan, 0.50, 2},
}

// ComputeMastery derives the tier from lifetime totals for a scope.
func ComputeMastery(correct, answered, games int) models.MasteryLevel {
	if answered <= 0 {
		return models.MasteryNovice
	}
	accuracy := float64(correct) / float64(answered)
	for _, t := range masteryTiers {
		if accuracy >= t.minAccuracy && games >= t.minGames {
			return t.level
		}
	}
	return models.MasteryNovice
}

func withMastery(p *models.ProgressRecord) *models.ProgressRecord {
	if p == nil {
		return nil
	}
	p.MasteryLevel = ComputeMastery(p.CorrectAnswers, p.QuestionsAnswered, p.GamesPlayed)
	return p
}

// ── Day streaks ─────────────────────────────────────────

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDayStreak folds a daily completion on today into prev. Playing twice on
// one day changes nothing; a gap of more than one day restarts at 1.
func NextDayStreak(prev models.DayStreak, today time.Time) models.DayStreak {
	today = truncateDay(today.UTC())
	next := prev

	if prev.LastPlayedDate != nil {
		last := truncateDay(prev.LastPlayedDate.UTC())
		if last.Equal(today) {
			return prev
		}
		if last.AddDate(0, 0, 1).Equal(today) {
			next.CurrentStreak = prev.CurrentStreak + 1
		} else {
			next.CurrentStreak = 1
		}
	} else {
		next.CurrentStreak = 1
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastPlayedDate = &today
	return next
}

package models

import "time"

// DateLayout is the calendar-date format used for daily scope keys.
const DateLayout = "2006-01-02"

const (
	DailyFilmCount  = 4
	DailyBookCount  = 3
	DailyMusicCount = 3

	DailyQuestionCount = DailyFilmCount + DailyBookCount + DailyMusicCount
)

type DailyChallenge struct {
	ID              string       `json:"id"`
	ChallengeDate   string       `json:"challengeDate"`
	ChallengeNumber int          `json:"challengeNumber"`
	Questions       []ContentRef `json:"questions"`
	Difficulty      Difficulty   `json:"difficulty"`
	TotalAttempts   int          `json:"totalAttempts"`
	AverageScore    float64      `json:"averageScore"`
	PerfectScores   int          `json:"perfectScores"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// ContentPools are the three rotation pools a daily challenge draws from.
type ContentPools struct {
	Films []string
	Books []string
	Music []string
}

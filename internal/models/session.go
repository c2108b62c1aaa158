package models

import "time"

// ── Game Modes ────────────────────────────────────────

type Mode string

const (
	ModeFreePlay Mode = "free_play"
	ModeDaily    Mode = "daily"
	ModeEra      Mode = "era"
	ModeGenre    Mode = "genre"
)

var ValidModes = map[Mode]bool{
	ModeFreePlay: true,
	ModeDaily:    true,
	ModeEra:      true,
	ModeGenre:    true,
}

func (m Mode) Valid() bool {
	return ValidModes[m]
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// PointsPerCorrect is the score awarded for each correct answer.
const PointsPerCorrect = 10

type QuestionResult struct {
	Index      int       `json:"index"`
	Correct    bool      `json:"correct"`
	TimeSpent  *float64  `json:"timeSpent,omitempty"`
	AnsweredAt time.Time `json:"answeredAt"`
}

type Attempt struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	Mode            Mode             `json:"mode"`
	ScopeKey        string           `json:"scopeKey"`
	Score           int              `json:"score"`
	CurrentStreak   int              `json:"currentStreak"`
	MaxStreak       int              `json:"maxStreak"`
	CorrectAnswers  int              `json:"correctAnswers"`
	QuestionResults []QuestionResult `json:"questionResults"`
	Status          AttemptStatus    `json:"status"`
	StartedAt       time.Time        `json:"startedAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
}

func (a *Attempt) IsCompleted() bool {
	return a.Status == AttemptCompleted
}

// HasResult reports whether an answer for the given question index was recorded.
func (a *Attempt) HasResult(index int) bool {
	for _, r := range a.QuestionResults {
		if r.Index == index {
			return true
		}
	}
	return false
}

// ── Progress ──────────────────────────────────────────

type MasteryLevel string

const (
	MasteryNovice  MasteryLevel = "novice"
	MasteryFan     MasteryLevel = "fan"
	MasteryExpert  MasteryLevel = "expert"
	MasteryScholar MasteryLevel = "scholar"
)

type ProgressRecord struct {
	UserID            string       `json:"userId"`
	Mode              Mode         `json:"mode"`
	ScopeKey          string       `json:"scopeKey"`
	HighScore         int          `json:"highScore"`
	GamesPlayed       int          `json:"gamesPlayed"`
	QuestionsAnswered int          `json:"questionsAnswered"`
	CorrectAnswers    int          `json:"correctAnswers"`
	MasteryLevel      MasteryLevel `json:"masteryLevel"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// ProgressDelta is one completed attempt folded into a ProgressRecord.
type ProgressDelta struct {
	Score             int
	QuestionsAnswered int
	CorrectAnswers    int
}

type DayStreak struct {
	UserID         string     `json:"userId"`
	CurrentStreak  int        `json:"currentStreak"`
	LongestStreak  int        `json:"longestStreak"`
	LastPlayedDate *time.Time `json:"lastPlayedDate,omitempty"`
}

// ── Requests / Responses ──────────────────────────────

type StartSessionRequest struct {
	ScopeKey string `json:"scopeKey"`
}

type SubmitAnswerRequest struct {
	Index     int      `json:"index"`
	Correct   bool     `json:"correct"`
	TimeSpent *float64 `json:"timeSpent,omitempty"`
}

type StartSessionResponse struct {
	Attempt   *Attempt        `json:"attempt"`
	Challenge *DailyChallenge `json:"challenge,omitempty"`
}

type CompleteSessionResponse struct {
	Attempt   *Attempt        `json:"attempt"`
	Progress  *ProgressRecord `json:"progress,omitempty"`
	DayStreak *DayStreak      `json:"dayStreak,omitempty"`
}

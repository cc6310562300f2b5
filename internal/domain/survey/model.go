// Package survey tracks each user's answers to the onboarding questionnaire
// and verifies users whose submission reaches the pass score.
package survey

// PassScore is the minimum score that verifies a user. Each answer scores one.
const PassScore = 60

// Progress states reported by Service.Status.
const (
	StatusPassed     = "passed"
	StatusInProgress = "in_progress"
	StatusNotStarted = "not_started"
)

// Response is one stored set of answers.
type Response struct {
	UserID   int64
	Answers  []any
	Score    int
	Complete bool
	Passed   bool
}

// Draft is a user's incomplete response.
type Draft struct {
	ID      int64
	Answers []any
}

// SaveResult is returned when a draft is stored.
type SaveResult struct {
	ResponseID int64 `json:"responseId"`
}

// SubmitResult is the score of a completed response.
type SubmitResult struct {
	Score    int  `json:"score"`
	IsPassed bool `json:"isPassed"`
}

// Progress describes where a user stands.
type Progress struct {
	IsVerified  bool   `json:"isVerified"`
	Status      string `json:"status"`
	LastAnswers []any  `json:"lastAnswers,omitempty"`
}

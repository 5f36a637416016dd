package models

import "time"

// QuizQuestion is a normalised multiple-choice question. CorrectIndex is
// kept server-side until the session is submitted.
type QuizQuestion struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation,omitempty"`
	Category     string   `json:"category,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
}

// QuizSession is stored in Redis between generate and submit.
type QuizSession struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Category    string         `json:"category,omitempty"`
	Difficulty  string         `json:"difficulty,omitempty"`
	Questions   []QuizQuestion `json:"questions"`
	CreatedAt   time.Time      `json:"createdAt"`
	Deadline    time.Time      `json:"deadline"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
}

// PublicQuestion omits the answer key.
type PublicQuestion struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// QuizView is returned by generate.
type QuizView struct {
	SessionID          string           `json:"sessionId"`
	Questions          []PublicQuestion `json:"questions"`
	SecondsPerQuestion int              `json:"secondsPerQuestion"`
	Deadline           time.Time        `json:"deadline"`
}

// QuizAnswerResult grades one question.
type QuizAnswerResult struct {
	QuestionID   string `json:"questionId"`
	Selected     int    `json:"selected"`
	CorrectIndex int    `json:"correctIndex"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation,omitempty"`
}

// QuizResult is returned by submit.
type QuizResult struct {
	SessionID string             `json:"sessionId"`
	Score     int                `json:"score"`
	Total     int                `json:"total"`
	TimedOut  bool               `json:"timedOut"`
	Results   []QuizAnswerResult `json:"results"`
}

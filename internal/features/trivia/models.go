// Package trivia runs timed trivia sessions and tracks player progress.
// models.go describes sessions, answers and progress.
package trivia

import (
	"time"

	"github.com/islandbitcoin/island-bitcoin-community-sub000/internal/questions"
)

// Status is the session lifecycle state.
//
//	active → completed  every assigned question answered
//	active → expired    touched after ExpiresAt (checked lazily, never swept)
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Answer is one recorded answer inside a session.
type Answer struct {
	QuestionID   string
	ChosenOption int
	Correct      bool
	AnsweredAt   time.Time
}

// Session is one timed round for a single player and level.
// UserID is 0 for guest sessions.
type Session struct {
	ID          string
	UserID      int64
	Level       int
	QuestionIDs []string // assigned order
	Answers     []Answer // answer order
	Status      Status
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
}

// IsTerminal reports whether the session can no longer be answered.
func (s *Session) IsTerminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusExpired
}

// ExpiredAt reports whether the session is past its horizon at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasQuestion reports whether questionID was assigned to the session.
func (s *Session) HasQuestion(questionID string) bool {
	return s.QuestionIndex(questionID) >= 0
}

// QuestionIndex returns the position of questionID, or -1.
func (s *Session) QuestionIndex(questionID string) int {
	for i, id := range s.QuestionIDs {
		if id == questionID {
			return i
		}
	}
	return -1
}

// Answered reports whether questionID already has an answer.
func (s *Session) Answered(questionID string) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// LastAnswerAt returns the time of the latest answer, if any.
func (s *Session) LastAnswerAt() (time.Time, bool) {
	var last time.Time
	for _, a := range s.Answers {
		if a.AnsweredAt.After(last) {
			last = a.AnsweredAt
		}
	}
	return last, len(s.Answers) > 0
}

// NextQuestion returns the first assigned question without an answer.
func (s *Session) NextQuestion() (string, bool) {
	for _, id := range s.QuestionIDs {
		if !s.Answered(id) {
			return id, true
		}
	}
	return "", false
}

// Score counts correct answers.
func (s *Session) Score() int {
	n := 0
	for _, a := range s.Answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// Progress is a player's lifetime trivia state.
type Progress struct {
	UserID         int64
	CurrentLevel   int // highest unlocked level, starts at 1
	CorrectCount   int
	Streak         int // consecutive correct answers across sessions
	BestStreak     int
	SatsEarned     int64 // trivia rewards only
	LastPlayedOn   *time.Time
	LevelCompleted bool // final level fully answered
}

// NewProgress is the state of a user who never played.
func NewProgress(userID int64) *Progress {
	return &Progress{UserID: userID, CurrentLevel: 1}
}

// AppendResult is what the store reports after recording an answer.
type AppendResult struct {
	Answered  int  // answers in the session, this one included
	Completed bool // this answer completed the session
}

// StartResult is returned by StartSession.
type StartResult struct {
	SessionID string
	Level     int
	Questions []questions.Public // answer keys stripped
	ExpiresAt time.Time
	TTL       time.Duration // time left when the session started
}

// AnswerResult is returned by SubmitAnswer.
type AnswerResult struct {
	Correct       bool
	CorrectOption int
	Explanation   string
	Streak        int   // 0 for guests
	SatsEarned    int64 // reward for this answer, 0 for guests and wrong answers
	LevelUnlocked bool
	NewLevel      int

	SessionCompleted bool
	Score            int // correct answers in the session so far
	Total            int // questions in the session
}

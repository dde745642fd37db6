package domain

import "time"

// AttemptState is the lifecycle position of an attempt.
type AttemptState string

const (
	StateUnopened        AttemptState = "UNOPENED"
	StateOpen            AttemptState = "OPEN"
	StateAnsweredWrong   AttemptState = "ANSWERED_WRONG"
	StateAnsweredCorrect AttemptState = "ANSWERED_CORRECT"
)

// AttemptKey identifies the single attempt a student may hold for a question.
type AttemptKey struct {
	StudentID  string
	QuizID     int64
	QuestionID string
}

// Attempt tracks one student's interaction with one question of one quiz.
type Attempt struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"studentId"`
	QuizID         int64      `json:"quizId"`
	QuestionID     string     `json:"questionId"`
	OpenedAt       *time.Time `json:"openedAt,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	Answer         *string    `json:"answer,omitempty"`
	IsCorrect      *bool      `json:"isCorrect,omitempty"`
	ElapsedSeconds *int       `json:"elapsedSeconds,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Key returns the composite key of the attempt.
func (a Attempt) Key() AttemptKey {
	return AttemptKey{StudentID: a.StudentID, QuizID: a.QuizID, QuestionID: a.QuestionID}
}

// Locked reports whether the attempt holds a correct answer. Locked attempts
// accept no further submissions and are never re-opened.
func (a Attempt) Locked() bool {
	return a.IsCorrect != nil && *a.IsCorrect
}

// Submitted reports whether a scored submission has been recorded.
func (a Attempt) Submitted() bool {
	return a.SubmittedAt != nil
}

// State derives the lifecycle state from the recorded fields.
//
// A wrong attempt that was opened again after the wrong submission is OPEN.
func (a Attempt) State() AttemptState {
	switch {
	case a.Locked():
		return StateAnsweredCorrect
	case a.IsCorrect != nil && a.SubmittedAt != nil:
		if a.OpenedAt != nil && a.OpenedAt.After(*a.SubmittedAt) {
			return StateOpen
		}
		return StateAnsweredWrong
	case a.OpenedAt != nil:
		return StateOpen
	default:
		return StateUnopened
	}
}

// Clone returns a deep copy so stores never share pointers with callers.
func (a Attempt) Clone() Attempt {
	out := a
	if a.OpenedAt != nil {
		t := *a.OpenedAt
		out.OpenedAt = &t
	}
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		out.SubmittedAt = &t
	}
	if a.Answer != nil {
		s := *a.Answer
		out.Answer = &s
	}
	if a.IsCorrect != nil {
		b := *a.IsCorrect
		out.IsCorrect = &b
	}
	if a.ElapsedSeconds != nil {
		n := *a.ElapsedSeconds
		out.ElapsedSeconds = &n
	}
	return out
}

// SubmitResult is the outcome of a scored submission.
type SubmitResult struct {
	Attempt   Attempt `json:"attempt"`
	IsCorrect bool    `json:"isCorrect"`
}

// Question is the read-only view of a question the core needs for scoring.
type Question struct {
	ID            string `json:"id"`
	QuizID        int64  `json:"quizId"`
	CorrectOption string `json:"correctOption"`
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        int64      `json:"id"`
	Questions []Question `json:"questions"`
}

// User is the display identity of a student.
type User struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	SchoolFacingID string `json:"schoolFacingId"`
	School         string `json:"school"`
}

// StandingsEntry is a derived per-student aggregate for one quiz. It is never persisted.
type StandingsEntry struct {
	Rank              int       `json:"rank"`
	StudentID         string    `json:"studentId"`
	DisplayName       *string   `json:"displayName"`
	SchoolFacingID    string    `json:"schoolFacingId"`
	CorrectCount      int       `json:"correctCount"`
	CorrectPercentage float64   `json:"correctPercentage"`
	CompletionTime    time.Time `json:"completionTime"`
	TotalElapsed      int       `json:"totalElapsed"`
	Attempts          int       `json:"attempts"`
}

// MemberScore is one student's contribution to a school standing.
type MemberScore struct {
	StudentID   string  `json:"studentId"`
	DisplayName *string `json:"displayName"`
	Score       int     `json:"score"`
}

// SchoolStanding aggregates correct answers per school for one quiz.
type SchoolStanding struct {
	Rank       int           `json:"rank"`
	School     string        `json:"school"`
	TotalScore int           `json:"totalScore"`
	Members    []MemberScore `json:"members"`
}

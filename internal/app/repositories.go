package app

import (
	"context"
	"time"

	"rextro-quiz-service/internal/domain"
)

// AttemptStore abstracts durable attempt storage (in-memory, Postgres).
//
// Implementations must keep at most one attempt per domain.AttemptKey and make
// each create/update atomic for a single record.
type AttemptStore interface {
	// FindAttempt returns domain.ErrAttemptNotFound when no record exists for key.
	FindAttempt(ctx context.Context, key domain.AttemptKey) (domain.Attempt, error)
	// CreateAttempt assigns an ID and persists a new record. It returns
	// domain.ErrAttemptExists if another record already holds the key.
	CreateAttempt(ctx context.Context, attempt *domain.Attempt) error
	// UpdateAttempt overwrites the mutable fields of the record with attempt.ID.
	// It returns domain.ErrAttemptLocked if the stored record is already correct.
	UpdateAttempt(ctx context.Context, attempt domain.Attempt) error
	// ListAttempts returns every record a student holds for a quiz.
	ListAttempts(ctx context.Context, studentID string, quizID int64) ([]domain.Attempt, error)
	// ListSubmitted returns every record of a quiz with a non-null submission time.
	ListSubmitted(ctx context.Context, quizID int64) ([]domain.Attempt, error)
}

// QuestionRepository resolves question content (from cache/backing store).
type QuestionRepository interface {
	// FindQuestion returns domain.ErrQuestionNotFound when the question does not
	// exist within quizID.
	FindQuestion(ctx context.Context, quizID int64, questionID string) (domain.Question, error)
	// CountQuestions returns domain.ErrQuizNotFound for unknown quizzes.
	CountQuestions(ctx context.Context, quizID int64) (int, error)
}

// UserDirectory resolves display identities of students.
type UserDirectory interface {
	// FindUser returns domain.ErrUserNotFound for unknown students.
	FindUser(ctx context.Context, studentID string) (domain.User, error)
}

// Recorder receives lifecycle outcomes for instrumentation.
type Recorder interface {
	AttemptOpened(outcome string)
	AnswerSubmitted(outcome string)
	LeaderboardBuilt(d time.Duration)
}

// Outcomes passed to Recorder.
const (
	OutcomeCreated   = "created"
	OutcomeRefreshed = "refreshed"
	OutcomeLocked    = "locked"
	OutcomeCorrect   = "correct"
	OutcomeWrong     = "wrong"
	OutcomeConflict  = "conflict"
)

type nopRecorder struct{}

func (nopRecorder) AttemptOpened(string)           {}
func (nopRecorder) AnswerSubmitted(string)         {}
func (nopRecorder) LeaderboardBuilt(time.Duration) {}

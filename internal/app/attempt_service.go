package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"rextro-quiz-service/internal/domain"
)

// Option configures the services in this package.
type Option func(*options)

type options struct {
	now      func() time.Time
	recorder Recorder
	log      zerolog.Logger
}

func defaultOptions() options {
	return options{now: time.Now, recorder: nopRecorder{}, log: zerolog.Nop()}
}

// WithClock replaces the wall clock; tests use it for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithRecorder attaches instrumentation.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger services derive their component logger from.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// AttemptService owns the attempt lifecycle: UNOPENED -> OPEN -> ANSWERED_WRONG
// -> OPEN ... -> ANSWERED_CORRECT. A correct answer is terminal.
type AttemptService struct {
	attempts  AttemptStore
	questions QuestionRepository
	now       func() time.Time
	recorder  Recorder
	log       zerolog.Logger
}

func NewAttemptService(attempts AttemptStore, questions QuestionRepository, opts ...Option) *AttemptService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &AttemptService{
		attempts:  attempts,
		questions: questions,
		now:       o.now,
		recorder:  o.recorder,
		log:       o.log.With().Str("component", "attempt_service").Logger(),
	}
}

// Open records that a student is viewing a question. The first open creates
// the attempt; later opens refresh OpenedAt unless the attempt is locked, in
// which case the stored record is returned without a write.
func (s *AttemptService) Open(ctx context.Context, key domain.AttemptKey) (domain.Attempt, error) {
	if err := validateKey(key); err != nil {
		return domain.Attempt{}, err
	}
	if _, err := s.lookupQuestion(ctx, "open attempt", key); err != nil {
		return domain.Attempt{}, err
	}

	attempt, err := s.attempts.FindAttempt(ctx, key)
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound):
		now := s.now()
		created := domain.Attempt{
			StudentID:  key.StudentID,
			QuizID:     key.QuizID,
			QuestionID: key.QuestionID,
			OpenedAt:   &now,
		}
		err = s.attempts.CreateAttempt(ctx, &created)
		if err == nil {
			s.recorder.AttemptOpened(OutcomeCreated)
			return created, nil
		}
		if !errors.Is(err, domain.ErrAttemptExists) {
			return domain.Attempt{}, storeErr("open attempt: create", key, err)
		}
		// Lost a create race; continue with whatever the winner stored.
		attempt, err = s.attempts.FindAttempt(ctx, key)
		if err != nil {
			return domain.Attempt{}, storeErr("open attempt: reload", key, err)
		}
	case err != nil:
		return domain.Attempt{}, storeErr("open attempt: find", key, err)
	}

	if attempt.Locked() {
		s.recorder.AttemptOpened(OutcomeLocked)
		return attempt, nil
	}

	now := s.now()
	attempt.OpenedAt = &now
	attempt.UpdatedAt = now
	if err := s.attempts.UpdateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, domain.ErrAttemptLocked) {
			// A correct submission committed between our read and write.
			locked, ferr := s.attempts.FindAttempt(ctx, key)
			if ferr != nil {
				return domain.Attempt{}, storeErr("open attempt: reload", key, ferr)
			}
			s.recorder.AttemptOpened(OutcomeLocked)
			return locked, nil
		}
		return domain.Attempt{}, storeErr("open attempt: update", key, err)
	}
	s.recorder.AttemptOpened(OutcomeRefreshed)
	return attempt, nil
}

// Submit scores answer against the question's correct option and records it.
// Submitting to a locked attempt fails with domain.ErrAttemptLocked and returns
// the stored record unchanged alongside the error.
func (s *AttemptService) Submit(ctx context.Context, key domain.AttemptKey, answer string) (domain.SubmitResult, error) {
	if err := validateKey(key); err != nil {
		return domain.SubmitResult{}, err
	}
	if strings.TrimSpace(answer) == "" {
		return domain.SubmitResult{}, domain.Invalid("answer", "must not be empty")
	}
	question, err := s.lookupQuestion(ctx, "submit attempt", key)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	correct := Evaluate(answer, question.CorrectOption)

	attempt, err := s.attempts.FindAttempt(ctx, key)
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound):
		created := domain.Attempt{StudentID: key.StudentID, QuizID: key.QuizID, QuestionID: key.QuestionID}
		s.applySubmission(&created, answer, correct)
		err = s.attempts.CreateAttempt(ctx, &created)
		if err == nil {
			s.recordSubmission(correct)
			return domain.SubmitResult{Attempt: created, IsCorrect: correct}, nil
		}
		if !errors.Is(err, domain.ErrAttemptExists) {
			return domain.SubmitResult{}, storeErr("submit attempt: create", key, err)
		}
		attempt, err = s.attempts.FindAttempt(ctx, key)
		if err != nil {
			return domain.SubmitResult{}, storeErr("submit attempt: reload", key, err)
		}
	case err != nil:
		return domain.SubmitResult{}, storeErr("submit attempt: find", key, err)
	}

	if attempt.Locked() {
		return s.rejectLocked(attempt, key)
	}

	s.applySubmission(&attempt, answer, correct)
	if err := s.attempts.UpdateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, domain.ErrAttemptLocked) {
			locked, ferr := s.attempts.FindAttempt(ctx, key)
			if ferr != nil {
				return domain.SubmitResult{}, storeErr("submit attempt: reload", key, ferr)
			}
			return s.rejectLocked(locked, key)
		}
		return domain.SubmitResult{}, storeErr("submit attempt: update", key, err)
	}
	s.recordSubmission(correct)
	return domain.SubmitResult{Attempt: attempt, IsCorrect: correct}, nil
}

// List returns the raw attempts a student holds for a quiz, without ranking.
func (s *AttemptService) List(ctx context.Context, studentID string, quizID int64) ([]domain.Attempt, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, domain.Invalid("student", "must not be empty")
	}
	if quizID <= 0 {
		return nil, domain.Invalid("quiz", "must be positive")
	}
	attempts, err := s.attempts.ListAttempts(ctx, studentID, quizID)
	if err != nil {
		return nil, fmt.Errorf("list attempts student=%s quiz=%d: %w: %w", studentID, quizID, domain.ErrInternal, err)
	}
	return attempts, nil
}

func (s *AttemptService) applySubmission(attempt *domain.Attempt, answer string, correct bool) {
	now := s.now()
	attempt.Answer = &answer
	attempt.IsCorrect = &correct
	attempt.SubmittedAt = &now
	attempt.UpdatedAt = now
	attempt.ElapsedSeconds = nil
	if attempt.OpenedAt != nil {
		elapsed := ElapsedSeconds(*attempt.OpenedAt, now)
		attempt.ElapsedSeconds = &elapsed
	}
}

func (s *AttemptService) rejectLocked(attempt domain.Attempt, key domain.AttemptKey) (domain.SubmitResult, error) {
	s.recorder.AnswerSubmitted(OutcomeConflict)
	s.log.Debug().
		Str("student", key.StudentID).
		Int64("quiz", key.QuizID).
		Str("question", key.QuestionID).
		Msg("submission rejected: attempt locked")
	return domain.SubmitResult{Attempt: attempt, IsCorrect: true}, fmt.Errorf("submit attempt student=%s quiz=%d question=%s: %w",
		key.StudentID, key.QuizID, key.QuestionID, domain.ErrAttemptLocked)
}

func (s *AttemptService) recordSubmission(correct bool) {
	if correct {
		s.recorder.AnswerSubmitted(OutcomeCorrect)
		return
	}
	s.recorder.AnswerSubmitted(OutcomeWrong)
}

func (s *AttemptService) lookupQuestion(ctx context.Context, op string, key domain.AttemptKey) (domain.Question, error) {
	question, err := s.questions.FindQuestion(ctx, key.QuizID, key.QuestionID)
	if err == nil {
		return question, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Question{}, fmt.Errorf("%s quiz=%d question=%s: %w", op, key.QuizID, key.QuestionID, err)
	}
	return domain.Question{}, storeErr(op+": find question", key, err)
}

// ElapsedSeconds is the whole number of seconds between opened and submitted,
// rounded half up and clamped at zero for clock skew.
func ElapsedSeconds(opened, submitted time.Time) int {
	ms := submitted.Sub(opened).Milliseconds()
	secs := int(math.Floor(float64(ms)/1000 + 0.5))
	if secs < 0 {
		return 0
	}
	return secs
}

func validateKey(key domain.AttemptKey) error {
	switch {
	case strings.TrimSpace(key.StudentID) == "":
		return domain.Invalid("student", "must not be empty")
	case key.QuizID <= 0:
		return domain.Invalid("quiz", "must be positive")
	case strings.TrimSpace(key.QuestionID) == "":
		return domain.Invalid("question", "must not be empty")
	}
	return nil
}

func storeErr(op string, key domain.AttemptKey, err error) error {
	return fmt.Errorf("%s student=%s quiz=%d question=%s: %w: %w",
		op, key.StudentID, key.QuizID, key.QuestionID, domain.ErrInternal, err)
}

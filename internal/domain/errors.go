package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the app layer matches exactly one of
// these with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrQuestionNotFound indicates the question does not exist or belongs to another quiz.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrUserNotFound is returned by user directories for unknown students.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrAttemptNotFound is returned by attempt stores when no record exists for a key.
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	// ErrAttemptLocked is returned when a submission targets an already-correct attempt.
	ErrAttemptLocked = fmt.Errorf("%w: attempt already answered correctly", ErrConflict)
	// ErrAttemptExists is returned by attempt stores when a create races another create for the same key.
	ErrAttemptExists = fmt.Errorf("%w: attempt already exists", ErrConflict)
)

// Kind reports which error kind err belongs to. Unclassified errors are internal.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInternal):
		return ErrInternal
	case errors.Is(err, ErrInvalidArgument):
		return ErrInvalidArgument
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict):
		return ErrConflict
	default:
		return ErrInternal
	}
}

// Invalid builds an ErrInvalidArgument with a field-level reason.
func Invalid(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, field, reason)
}

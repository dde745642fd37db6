package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAttemptState(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	later := t0.Add(time.Minute)
	yes, no := true, false

	cases := []struct {
		name    string
		attempt Attempt
		want    AttemptState
	}{
		{"fresh", Attempt{}, StateUnopened},
		{"opened", Attempt{OpenedAt: &t0}, StateOpen},
		{"wrong", Attempt{OpenedAt: &t0, SubmittedAt: &later, IsCorrect: &no}, StateAnsweredWrong},
		{"reopened after wrong", Attempt{OpenedAt: &later, SubmittedAt: &t0, IsCorrect: &no}, StateOpen},
		{"correct", Attempt{OpenedAt: &t0, SubmittedAt: &later, IsCorrect: &yes}, StateAnsweredCorrect},
		{"correct without open", Attempt{SubmittedAt: &t0, IsCorrect: &yes}, StateAnsweredCorrect},
	}
	for _, tc := range cases {
		if got := tc.attempt.State(); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestCloneDoesNotShareFields(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	answer, correct, elapsed := "B", true, 4
	orig := Attempt{OpenedAt: &t0, SubmittedAt: &t0, Answer: &answer, IsCorrect: &correct, ElapsedSeconds: &elapsed}

	clone := orig.Clone()
	*clone.Answer = "C"
	*clone.IsCorrect = false
	*clone.ElapsedSeconds = 9
	*clone.OpenedAt = t0.Add(time.Hour)

	if *orig.Answer != "B" || !*orig.IsCorrect || *orig.ElapsedSeconds != 4 || !orig.OpenedAt.Equal(t0) {
		t.Fatalf("clone mutated original: %+v", orig)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{nil, nil},
		{Invalid("answer", "empty"), ErrInvalidArgument},
		{ErrQuestionNotFound, ErrNotFound},
		{fmt.Errorf("open: %w", ErrAttemptLocked), ErrConflict},
		{ErrAttemptExists, ErrConflict},
		{fmt.Errorf("%w: %w", ErrInternal, ErrAttemptNotFound), ErrInternal},
		{errors.New("connection reset"), ErrInternal},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestSubmitted(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	no := false

	if (Attempt{OpenedAt: &t0}).Submitted() {
		t.Fatalf("opened attempt must not count as submitted")
	}
	if !(Attempt{OpenedAt: &t0, SubmittedAt: &t0, IsCorrect: &no}).Submitted() {
		t.Fatalf("wrong answer must count as submitted")
	}
}

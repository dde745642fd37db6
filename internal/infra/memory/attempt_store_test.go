package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"rextro-quiz-service/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	opened := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	attempt := domain.Attempt{StudentID: "s1", QuizID: 1, QuestionID: "q1", OpenedAt: &opened}
	if err := store.CreateAttempt(ctx, &attempt); err != nil {
		t.Fatalf("create: %v", err)
	}
	if attempt.ID == "" {
		t.Fatalf("expected id to be assigned")
	}

	dup := domain.Attempt{StudentID: "s1", QuizID: 1, QuestionID: "q1"}
	if err := store.CreateAttempt(ctx, &dup); !errors.Is(err, domain.ErrAttemptExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one attempt, got %d", store.Len())
	}

	found, err := store.FindAttempt(ctx, attempt.Key())
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != attempt.ID || !found.OpenedAt.Equal(opened) {
		t.Fatalf("unexpected attempt %+v", found)
	}

	if _, err := store.FindAttempt(ctx, domain.AttemptKey{StudentID: "s2", QuizID: 1, QuestionID: "q1"}); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttemptStoreRejectsUpdateOfLockedAttempt(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	attempt := domain.Attempt{StudentID: "s1", QuizID: 1, QuestionID: "q1"}
	if err := store.CreateAttempt(ctx, &attempt); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now()
	answer, correct := "b", true
	attempt.Answer, attempt.IsCorrect, attempt.SubmittedAt = &answer, &correct, &now
	if err := store.UpdateAttempt(ctx, attempt); err != nil {
		t.Fatalf("update: %v", err)
	}

	wrong, incorrect := "a", false
	attempt.Answer, attempt.IsCorrect = &wrong, &incorrect
	if err := store.UpdateAttempt(ctx, attempt); !errors.Is(err, domain.ErrAttemptLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}

	found, _ := store.FindAttempt(ctx, attempt.Key())
	if *found.Answer != "b" || !found.Locked() {
		t.Fatalf("locked attempt was modified: %+v", found)
	}
}

func TestAttemptStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	answer := "a"
	attempt := domain.Attempt{StudentID: "s1", QuizID: 1, QuestionID: "q1", Answer: &answer}
	_ = store.CreateAttempt(ctx, &attempt)

	answer = "mutated"
	found, _ := store.FindAttempt(ctx, attempt.Key())
	if *found.Answer != "a" {
		t.Fatalf("store shares memory with caller: %q", *found.Answer)
	}
}

func TestAttemptStoreListing(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	submitted := time.Now()
	for _, a := range []domain.Attempt{
		{StudentID: "s1", QuizID: 1, QuestionID: "q1", SubmittedAt: &submitted},
		{StudentID: "s1", QuizID: 1, QuestionID: "q2"},
		{StudentID: "s2", QuizID: 1, QuestionID: "q1", SubmittedAt: &submitted},
		{StudentID: "s1", QuizID: 2, QuestionID: "q1", SubmittedAt: &submitted},
	} {
		a := a
		if err := store.CreateAttempt(ctx, &a); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	mine, _ := store.ListAttempts(ctx, "s1", 1)
	if len(mine) != 2 {
		t.Fatalf("expected 2 attempts for s1 in quiz 1, got %d", len(mine))
	}
	done, _ := store.ListSubmitted(ctx, 1)
	if len(done) != 2 {
		t.Fatalf("expected 2 submitted attempts in quiz 1, got %d", len(done))
	}
	for _, a := range done {
		if a.SubmittedAt == nil {
			t.Fatalf("unsubmitted attempt listed: %+v", a)
		}
	}
}

func TestUserDirectory(t *testing.T) {
	dir := NewUserDirectory(domain.User{ID: "s1", DisplayName: "Alice"})
	if u, err := dir.FindUser(context.Background(), "s1"); err != nil || u.DisplayName != "Alice" {
		t.Fatalf("expected Alice, got %+v (%v)", u, err)
	}
	if _, err := dir.FindUser(context.Background(), "s2"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
	dir.Put(domain.User{ID: "s2", DisplayName: "Bob"})
	if _, err := dir.FindUser(context.Background(), "s2"); err != nil {
		t.Fatalf("expected Bob after put: %v", err)
	}
}

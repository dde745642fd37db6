package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"rextro-quiz-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[int64]domain.Quiz{
			1: sampleQuiz(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.FindQuestion(context.Background(), 1, "q1"); err != nil {
		t.Fatalf("find question: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	n, err := repo.CountQuestions(context.Background(), 1)
	if err != nil {
		t.Fatalf("count questions: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 questions, got %d", n)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
}

func TestQuestionRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[int64]domain.Quiz{1: sampleQuiz()})}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.CountQuestions(context.Background(), 1)
	now = now.Add(2 * time.Minute)
	_, _ = repo.CountQuestions(context.Background(), 1)

	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}

	repo.Invalidate(1)
	_, _ = repo.CountQuestions(context.Background(), 1)
	if loader.calls.Load() != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls.Load())
	}
}

func TestQuestionRepositoryNotFound(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuizLoader(map[int64]domain.Quiz{1: sampleQuiz()}), time.Minute)

	if _, err := repo.FindQuestion(context.Background(), 1, "missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, err := repo.FindQuestion(context.Background(), 42, "q1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found for unknown quiz, got %v", err)
	}
	if _, err := repo.CountQuestions(context.Background(), 42); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestQuestionRepositoryStampsQuizID(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuizLoader(map[int64]domain.Quiz{1: sampleQuiz()}), time.Minute)

	q, err := repo.FindQuestion(context.Background(), 1, "q2")
	if err != nil {
		t.Fatalf("find question: %v", err)
	}
	if q.QuizID != 1 || q.CorrectOption != "C" {
		t.Fatalf("unexpected question %+v", q)
	}
}

type countingLoader struct {
	QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: 1,
		Questions: []domain.Question{
			{ID: "q1", CorrectOption: "B"},
			{ID: "q2", CorrectOption: "C"},
		},
	}
}

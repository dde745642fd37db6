package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"rextro-quiz-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu    sync.RWMutex
	byKey map[domain.AttemptKey]string
	byID  map[string]domain.Attempt
	clock func() time.Time
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		byKey: make(map[domain.AttemptKey]string),
		byID:  make(map[string]domain.Attempt),
		clock: time.Now,
	}
}

func (s *AttemptStore) FindAttempt(_ context.Context, key domain.AttemptKey) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *AttemptStore) CreateAttempt(_ context.Context, attempt *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attempt.Key()
	if _, ok := s.byKey[key]; ok {
		return domain.ErrAttemptExists
	}
	now := s.clock()
	attempt.ID = uuid.NewString()
	attempt.CreatedAt = now
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = now
	}
	s.byKey[key] = attempt.ID
	s.byID[attempt.ID] = attempt.Clone()
	return nil
}

func (s *AttemptStore) UpdateAttempt(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[attempt.ID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if stored.Locked() {
		return domain.ErrAttemptLocked
	}
	// Identity fields are immutable.
	updated := attempt.Clone()
	updated.StudentID = stored.StudentID
	updated.QuizID = stored.QuizID
	updated.QuestionID = stored.QuestionID
	updated.CreatedAt = stored.CreatedAt
	s.byID[attempt.ID] = updated
	return nil
}

func (s *AttemptStore) ListAttempts(_ context.Context, studentID string, quizID int64) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool {
		return a.StudentID == studentID && a.QuizID == quizID
	}), nil
}

func (s *AttemptStore) ListSubmitted(_ context.Context, quizID int64) ([]domain.Attempt, error) {
	return s.filter(func(a domain.Attempt) bool {
		return a.QuizID == quizID && a.Submitted()
	}), nil
}

// Len reports how many attempts are stored.
func (s *AttemptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *AttemptStore) filter(match func(domain.Attempt) bool) []domain.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.byID {
		if match(attempt) {
			out = append(out, attempt.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

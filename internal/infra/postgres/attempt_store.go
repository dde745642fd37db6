package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"rextro-quiz-service/internal/domain"
)

const attemptColumns = `id::text, student_id, quiz_id, question_id, opened_at, submitted_at, answer, is_correct, elapsed_seconds, created_at, updated_at`

// AttemptStore persists attempts in the attempts table. The unique key on
// (student_id, quiz_id, question_id) keeps one row per attempt key.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) FindAttempt(ctx context.Context, key domain.AttemptKey) (domain.Attempt, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE student_id = $1 AND quiz_id = $2 AND question_id = $3`,
		key.StudentID, key.QuizID, key.QuestionID)
	attempt, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("find attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) CreateAttempt(ctx context.Context, attempt *domain.Attempt) error {
	id := uuid.NewString()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attempts (id, student_id, quiz_id, question_id, opened_at, submitted_at, answer, is_correct, elapsed_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (student_id, quiz_id, question_id) DO NOTHING
		 RETURNING created_at, updated_at`,
		id, attempt.StudentID, attempt.QuizID, attempt.QuestionID,
		attempt.OpenedAt, attempt.SubmittedAt, attempt.Answer, attempt.IsCorrect, attempt.ElapsedSeconds,
	).Scan(&attempt.CreatedAt, &attempt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAttemptExists
	}
	if err != nil {
		return fmt.Errorf("create attempt: %w", err)
	}
	attempt.ID = id
	return nil
}

// UpdateAttempt refuses to touch a row that already holds a correct answer.
func (s *AttemptStore) UpdateAttempt(ctx context.Context, attempt domain.Attempt) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE attempts
		 SET opened_at = $2, submitted_at = $3, answer = $4, is_correct = $5, elapsed_seconds = $6, updated_at = NOW()
		 WHERE id = $1 AND is_correct IS NOT TRUE`,
		attempt.ID, attempt.OpenedAt, attempt.SubmittedAt, attempt.Answer, attempt.IsCorrect, attempt.ElapsedSeconds)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM attempts WHERE id = $1)`, attempt.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if !exists {
		return domain.ErrAttemptNotFound
	}
	return domain.ErrAttemptLocked
}

func (s *AttemptStore) ListAttempts(ctx context.Context, studentID string, quizID int64) ([]domain.Attempt, error) {
	return s.query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE student_id = $1 AND quiz_id = $2
		 ORDER BY created_at, id`, studentID, quizID)
}

func (s *AttemptStore) ListSubmitted(ctx context.Context, quizID int64) ([]domain.Attempt, error) {
	return s.query(ctx,
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE quiz_id = $1 AND submitted_at IS NOT NULL
		 ORDER BY created_at, id`, quizID)
}

func (s *AttemptStore) query(ctx context.Context, sql string, args ...interface{}) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func scanAttempt(row pgx.Row) (domain.Attempt, error) {
	var a domain.Attempt
	err := row.Scan(&a.ID, &a.StudentID, &a.QuizID, &a.QuestionID,
		&a.OpenedAt, &a.SubmittedAt, &a.Answer, &a.IsCorrect, &a.ElapsedSeconds,
		&a.CreatedAt, &a.UpdatedAt)
	return a, err
}

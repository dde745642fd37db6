package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"rextro-quiz-service/internal/domain"
)

// UserDirectory reads student identities from the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) FindUser(ctx context.Context, studentID string) (domain.User, error) {
	var u domain.User
	err := d.pool.QueryRow(ctx,
		`SELECT id, display_name, school_facing_id, school FROM users WHERE id = $1`, studentID,
	).Scan(&u.ID, &u.DisplayName, &u.SchoolFacingID, &u.School)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

package memory

import (
	"context"
	"sync"

	"rextro-quiz-service/internal/domain"
)

// UserDirectory is a map-backed app.UserDirectory.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserDirectory(users ...domain.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]domain.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *UserDirectory) FindUser(_ context.Context, studentID string) (domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if u, ok := d.users[studentID]; ok {
		return u, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}

// Put adds or replaces a user.
func (d *UserDirectory) Put(u domain.User) {
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
}

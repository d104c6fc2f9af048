package repository

import (
	"context"
	"sync"

	"meaktask-api/internal/entities"
)

// memoryUserRepository keeps users in process memory. Uniqueness is checked
// and the record inserted under the same write lock.
type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entities.User
	byEmail map[string]string // normalized email -> id
}

// NewMemoryUserRepository creates an in-memory user repository for development and tests
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[string]*entities.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return ErrDuplicateEmail
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[key] = user.ID
	return nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string, includePasswordHash bool) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.copyOf(id, includePasswordHash), nil
}

func (r *memoryUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.byID[id]; !ok {
		return nil, ErrUserNotFound
	}
	return r.copyOf(id, false), nil
}

func (r *memoryUserRepository) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[id]
	return ok, nil
}

func (r *memoryUserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(r.byEmail, NormalizeEmail(user.Email))
	delete(r.byID, id)
	return nil
}

// copyOf must be called with the lock held
func (r *memoryUserRepository) copyOf(id string, includePasswordHash bool) *entities.User {
	user := *r.byID[id]
	if !includePasswordHash {
		user.PasswordHash = ""
	}
	return &user
}

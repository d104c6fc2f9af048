package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/samber/oops"

	"meaktask-api/internal/entities"
)

//go:generate mockgen -source=user_repository.go -destination=mocks/user_repository_mock.go -package=mocks

// UserRepository defines the persistence operations behind the credential store.
// Implementations must reject a second account with the same email at write
// time; the returned ErrDuplicateEmail is the authoritative uniqueness signal.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	FindByEmail(ctx context.Context, email string, includePasswordHash bool) (*entities.User, error)
	FindByID(ctx context.Context, id string) (*entities.User, error)
	// Exists always consults the backing store, never a cache
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a PostgreSQL user repository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. The users_email_lower_key index enforces uniqueness.
func (r *userRepository) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateEmail
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("id", user.ID).
			Wrap(err)
	}

	return nil
}

// FindByEmail finds a user by email (case-insensitive)
func (r *userRepository) FindByEmail(ctx context.Context, email string, includePasswordHash bool) (*entities.User, error) {
	var user entities.User
	var err error

	if includePasswordHash {
		err = r.db.QueryRowContext(ctx, `
			SELECT id, name, email, password_hash, created_at
			FROM users
			WHERE LOWER(email) = LOWER($1)
		`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, `
			SELECT id, name, email, created_at
			FROM users
			WHERE LOWER(email) = LOWER($1)
		`, email).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_EMAIL_FAILED").
			With("operation", "select user by email").
			Wrap(err)
	}

	return &user, nil
}

// FindByID finds a user by ID (UUID). The password hash is never selected.
func (r *userRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	query := `
		SELECT id, name, email, created_at
		FROM users
		WHERE id = $1
	`

	var user entities.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").
			With("operation", "select user by id").
			With("id", id).
			Wrap(err)
	}

	return &user, nil
}

func (r *userRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, oops.Code("USER_EXISTS_FAILED").
			With("operation", "check user exists").
			With("id", id).
			Wrap(err)
	}
	return exists, nil
}

// Delete removes a user by ID
func (r *userRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id).
			Wrap(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").
			With("operation", "rows affected").
			With("id", id).
			Wrap(err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

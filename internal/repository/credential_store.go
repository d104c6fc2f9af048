package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meaktask-api/internal/entities"
	"meaktask-api/internal/password"
)

// DefaultStoreTimeout bounds every backend call made by the credential store
const DefaultStoreTimeout = 5 * time.Second

//go:generate mockgen -source=credential_store.go -destination=mocks/credential_store_mock.go -package=mocks

// CredentialStore owns account records: it validates and normalizes input,
// hashes passwords, and keeps email addresses unique.
type CredentialStore interface {
	Create(ctx context.Context, name, email, plaintextPassword string) (*entities.User, error)
	FindByEmail(ctx context.Context, email string, includePasswordHash bool) (*entities.User, error)
	FindByID(ctx context.Context, id string) (*entities.User, error)
	Delete(ctx context.Context, id string) error
}

type credentialStore struct {
	repo    UserRepository
	hasher  password.Hasher
	timeout time.Duration
	now     func() time.Time
}

// NewCredentialStore creates a credential store over repo
func NewCredentialStore(repo UserRepository, hasher password.Hasher, timeout time.Duration) CredentialStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &credentialStore{
		repo:    repo,
		hasher:  hasher,
		timeout: timeout,
		now:     time.Now,
	}
}

// Create validates, hashes and inserts a new account. The hash is computed
// once, after validation and before the insert.
func (s *credentialStore) Create(ctx context.Context, name, email, plaintextPassword string) (*entities.User, error) {
	name = NormalizeName(name)
	email = NormalizeEmail(email)

	if err := ValidateNewUser(name, email, plaintextPassword); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(plaintextPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, classify(err)
	}

	created := *user
	created.PasswordHash = ""
	return &created, nil
}

func (s *credentialStore) FindByEmail(ctx context.Context, email string, includePasswordHash bool) (*entities.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email), includePasswordHash)
	if err != nil {
		return nil, classify(err)
	}
	if !includePasswordHash {
		user.PasswordHash = ""
	}
	return user, nil
}

// FindByID never returns the password hash. Ids that are not UUIDs cannot exist.
func (s *credentialStore) FindByID(ctx context.Context, id string) (*entities.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *credentialStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return classify(err)
	}
	return nil
}

// classify keeps domain outcomes and folds everything else into ErrStoreUnavailable
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrDuplicateEmail):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"

	"meaktask-api/internal/entities"
	"meaktask-api/internal/jwt"
	"meaktask-api/internal/models"
	"meaktask-api/internal/password"
	"meaktask-api/internal/repository"
)

// Auth backends selectable through configuration
const (
	BackendLocal    = "local"
	BackendIdentity = "identity"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	// Authenticate resolves a bearer token to a live identity
	Authenticate(ctx context.Context, token string) (*entities.Identity, error)
}

// dummyPassword is hashed once at startup so unknown-email logins cost a real verification
const dummyPassword = "meaktask-timing-equalizer"

type authService struct {
	store      repository.CredentialStore
	hasher     password.Hasher
	jwtService *jwt.JWTService
	dummyHash  string
}

// NewAuthService creates the local auth service backed by the credential store
func NewAuthService(store repository.CredentialStore, hasher password.Hasher, jwtService *jwt.JWTService) (AuthService, error) {
	if store == nil || hasher == nil || jwtService == nil {
		return nil, fmt.Errorf("%w: store, hasher and token issuer are required", ErrConfiguration)
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &authService{
		store:      store,
		hasher:     hasher,
		jwtService: jwtService,
		dummyHash:  dummyHash,
	}, nil
}

// Register creates a new account and returns a token for it
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	// Best-effort; the store's unique index is authoritative
	_, err := s.store.FindByEmail(ctx, req.Email, false)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user, err := s.store.Create(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) || errors.Is(err, ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issue(user.ID)
}

// Login authenticates a user and returns a JWT token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.store.FindByEmail(ctx, req.Email, true)
	if errors.Is(err, repository.ErrUserNotFound) {
		_, _ = s.hasher.Verify(req.Password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ok, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to verify password: %w", ErrInternal, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user.ID)
}

// Authenticate validates the token and loads the account it names
func (s *authService) Authenticate(ctx context.Context, token string) (*entities.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	subject, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	user, err := s.store.FindByID(ctx, subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrUnknownSubject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return user.Identity(), nil
}

func (s *authService) issue(userID string) (*models.AuthResponse, error) {
	token, err := s.jwtService.GenerateToken(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate token: %w", ErrInternal, err)
	}
	return &models.AuthResponse{Success: true, Token: token}, nil
}

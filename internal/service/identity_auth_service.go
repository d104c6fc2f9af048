package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"meaktask-api/internal/entities"
	"meaktask-api/internal/identity"
	"meaktask-api/internal/models"
	"meaktask-api/internal/repository"
)

// IdentityProvider is the subset of the provider client the identity backend uses
type IdentityProvider interface {
	SignUp(ctx context.Context, name, email, password string) (*identity.Session, error)
	PasswordGrant(ctx context.Context, email, password string) (*identity.Session, error)
	GetUser(ctx context.Context, accessToken string) (*identity.User, error)
}

var _ IdentityProvider = (*identity.Client)(nil)

type identityAuthService struct {
	provider IdentityProvider
}

// NewIdentityAuthService creates an auth service that delegates accounts and
// tokens to an external identity provider. Issued tokens are the provider's.
func NewIdentityAuthService(provider IdentityProvider) (AuthService, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: identity provider is required", ErrConfiguration)
	}
	return &identityAuthService{provider: provider}, nil
}

func (s *identityAuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	name := repository.NormalizeName(req.Name)
	email := repository.NormalizeEmail(req.Email)
	if err := repository.ValidateNewUser(name, email, req.Password); err != nil {
		return nil, err
	}

	session, err := s.provider.SignUp(ctx, name, email, req.Password)
	if err != nil {
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) && apiErr.IsAlreadyRegistered() {
			return nil, ErrDuplicateEmail
		}
		return nil, providerFailure("sign up", err)
	}

	if session.AccessToken == "" {
		// Accounts that are not auto-confirmed need a separate password grant
		session, err = s.provider.PasswordGrant(ctx, email, req.Password)
		if err != nil {
			return nil, fmt.Errorf("%w: no session after sign up: %w", ErrInternal, err)
		}
	}

	return &models.AuthResponse{Success: true, Token: session.AccessToken}, nil
}

func (s *identityAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	session, err := s.provider.PasswordGrant(ctx, repository.NormalizeEmail(req.Email), req.Password)
	if err != nil {
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusTooManyRequests {
			return nil, ErrInvalidCredentials
		}
		return nil, providerFailure("password grant", err)
	}
	if session.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider returned an empty access token", ErrInternal)
	}

	return &models.AuthResponse{Success: true, Token: session.AccessToken}, nil
}

func (s *identityAuthService) Authenticate(ctx context.Context, token string) (*entities.Identity, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.provider.GetUser(ctx, token)
	if err != nil {
		var apiErr *identity.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
			case http.StatusNotFound:
				return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrUnknownSubject)
			}
		}
		return nil, providerFailure("get user", err)
	}

	return &entities.Identity{
		ID:        user.ID,
		Name:      user.Name(),
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC(),
	}, nil
}

// providerFailure reports transport errors and unexpected answers as an unavailable store
func providerFailure(op string, err error) error {
	return fmt.Errorf("%w: identity provider %s: %w", ErrStoreUnavailable, op, err)
}

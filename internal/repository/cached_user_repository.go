package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"meaktask-api/internal/cache"
	"meaktask-api/internal/entities"
)

// DefaultCacheTTL bounds how long cached profile fields may lag a change to the record
const DefaultCacheTTL = 60 * time.Second

type cachedUserRepository struct {
	UserRepository // Create, FindByEmail and Exists pass through

	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// cachedUser is the cached projection of a user; the password hash never enters the cache
type cachedUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCachedUserRepository wraps next with a read-through cache on FindByID.
// Cache failures are logged and fall back to next.
func NewCachedUserRepository(next UserRepository, c cache.Cache, ttl time.Duration, logger *slog.Logger) UserRepository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cachedUserRepository{UserRepository: next, cache: c, ttl: ttl, logger: logger}
}

func userCacheKey(id string) string {
	return "user:id:" + id
}

// FindByID serves profile fields from the cache, but every hit is confirmed
// against the backing store so a removed account is never returned.
func (r *cachedUserRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	key := userCacheKey(id)

	var cached cachedUser
	err := r.cache.GetJSON(ctx, key, &cached)
	if err == nil {
		exists, err := r.UserRepository.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			r.invalidate(ctx, key)
			return nil, ErrUserNotFound
		}
		return &entities.User{ID: cached.ID, Name: cached.Name, Email: cached.Email, CreatedAt: cached.CreatedAt}, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.WarnContext(ctx, "user cache read failed", "error", err)
	}

	user, err := r.UserRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entry := cachedUser{ID: user.ID, Name: user.Name, Email: user.Email, CreatedAt: user.CreatedAt}
	if err := r.cache.SetJSON(ctx, key, entry, r.ttl); err != nil {
		r.logger.WarnContext(ctx, "user cache write failed", "error", err)
	}

	return user, nil
}

// Delete removes the record first, then drops the cache entry
func (r *cachedUserRepository) Delete(ctx context.Context, id string) error {
	err := r.UserRepository.Delete(ctx, id)
	r.invalidate(ctx, userCacheKey(id))
	return err
}

func (r *cachedUserRepository) invalidate(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.WarnContext(ctx, "user cache invalidation failed", "error", err)
	}
}

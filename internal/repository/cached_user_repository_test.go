package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meaktask-api/internal/cache"
	"meaktask-api/internal/entities"
	"meaktask-api/internal/repository/mocks"
)

func newCachedRepo(t *testing.T, next UserRepository) (UserRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedUserRepository(next, cache.NewRedisCache(client), time.Minute, logger), mr
}

func TestCachedUserRepository_ReadThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockUserRepository(ctrl)
	repo, mr := newCachedRepo(t, next)
	ctx := context.Background()
	u := testUser()
	u.PasswordHash = ""

	next.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil).Times(1)
	next.EXPECT().Exists(gomock.Any(), u.ID).Return(true, nil).Times(1)

	first, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Email, second.Email)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, mr.Exists("user:id:"+u.ID))
	assert.Equal(t, time.Minute, mr.TTL("user:id:"+u.ID))
}

func TestCachedUserRepository_NeverCachesHash(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockUserRepository(ctrl)
	repo, mr := newCachedRepo(t, next)
	u := testUser()

	next.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

	_, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)

	raw, err := mr.Get("user:id:" + u.ID)
	require.NoError(t, err)
	assert.NotContains(t, raw, u.PasswordHash)
	assert.NotContains(t, raw, "password")
}

func TestCachedUserRepository_DeleteInvalidates(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockUserRepository(ctrl)
	repo, mr := newCachedRepo(t, next)
	ctx := context.Background()
	u := testUser()

	next.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
	next.EXPECT().Delete(gomock.Any(), u.ID).Return(nil)
	next.EXPECT().FindByID(gomock.Any(), u.ID).Return(nil, ErrUserNotFound)

	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID))
	assert.False(t, mr.Exists("user:id:"+u.ID))

	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCachedUserRepository_CacheDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockUserRepository(ctrl)
	repo, mr := newCachedRepo(t, next)
	u := testUser()

	mr.Close()
	next.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)

	got, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestCachedUserRepository_PassThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockUserRepository(ctrl)
	repo, _ := newCachedRepo(t, next)
	u := testUser()

	next.EXPECT().Create(gomock.Any(), u).Return(ErrDuplicateEmail)
	assert.ErrorIs(t, repo.Create(context.Background(), u), ErrDuplicateEmail)
}

func TestCachedUserRepository_RemovedBehindCacheIsNotServed(t *testing.T) {
	mem := NewMemoryUserRepository()
	repo, mr := newCachedRepo(t, mem)
	ctx := context.Background()
	u := testUser()
	require.NoError(t, mem.Create(ctx, u))

	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("user:id:"+u.ID))

	// removed directly in the store, bypassing the cache
	require.NoError(t, mem.Delete(ctx, u.ID))

	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.False(t, mr.Exists("user:id:"+u.ID))
}

// pausingRepository holds the first FindByID after it has read the record
type pausingRepository struct {
	UserRepository

	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (r *pausingRepository) FindByID(ctx context.Context, id string) (*entities.User, error) {
	user, err := r.UserRepository.FindByID(ctx, id)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return user, err
}

func TestCachedUserRepository_DeleteDuringReadThrough(t *testing.T) {
	mem := NewMemoryUserRepository()
	paused := &pausingRepository{UserRepository: mem, read: make(chan struct{}), release: make(chan struct{})}
	repo, mr := newCachedRepo(t, paused)
	ctx := context.Background()
	u := testUser()
	require.NoError(t, mem.Create(ctx, u))

	done := make(chan error, 1)
	go func() {
		_, err := repo.FindByID(ctx, u.ID)
		done <- err
	}()

	<-paused.read
	require.NoError(t, repo.Delete(ctx, u.ID))
	close(paused.release)
	require.NoError(t, <-done)

	// the in-flight reader repopulated the cache after the delete
	require.True(t, mr.Exists("user:id:"+u.ID))

	_, err := repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCachedUserRepository_ExistsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockUserRepository(ctrl)
	repo, _ := newCachedRepo(t, next)
	ctx := context.Background()
	u := testUser()
	boom := errors.New("connection refused")

	next.EXPECT().FindByID(gomock.Any(), u.ID).Return(u, nil)
	next.EXPECT().Exists(gomock.Any(), u.ID).Return(false, boom)

	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, u.ID)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}

package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"meaktask-api/internal/entities"
	"meaktask-api/internal/password"
	"meaktask-api/internal/repository/mocks"
)

// countingHasher records how many times Hash ran
type countingHasher struct {
	mu    sync.Mutex
	calls int
	inner password.Hasher
}

func (h *countingHasher) Hash(p string) (string, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()
	return h.inner.Hash(p)
}

func (h *countingHasher) Verify(p, hash string) (bool, error) {
	return h.inner.Verify(p, hash)
}

func newTestHasher(t *testing.T) *countingHasher {
	t.Helper()
	b, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	return &countingHasher{inner: b}
}

func TestCredentialStore_Create(t *testing.T) {
	hasher := newTestHasher(t)
	store := NewCredentialStore(NewMemoryUserRepository(), hasher, time.Second)
	ctx := context.Background()

	user, err := store.Create(ctx, "  Ann ", " ANN@x.com ", "secret123")
	require.NoError(t, err)

	_, err = uuid.Parse(user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, "ann@x.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, time.UTC, user.CreatedAt.Location())
	assert.Equal(t, 1, hasher.calls)

	stored, err := store.FindByEmail(ctx, "Ann@X.com", true)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$"))

	ok, err := hasher.Verify("secret123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCredentialStore_Create_Validation(t *testing.T) {
	hasher := newTestHasher(t)
	store := NewCredentialStore(NewMemoryUserRepository(), hasher, time.Second)

	_, err := store.Create(context.Background(), "Ann", "not-an-email", "short")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"Please provide a valid email", "Password must be at least 8 characters"}, vErr.Messages)
	assert.Zero(t, hasher.calls)
}

func TestCredentialStore_Create_Duplicate(t *testing.T) {
	store := NewCredentialStore(NewMemoryUserRepository(), newTestHasher(t), time.Second)
	ctx := context.Background()

	_, err := store.Create(ctx, "Ann", "ann@x.com", "secret123")
	require.NoError(t, err)

	_, err = store.Create(ctx, "Other", "ANN@X.COM", "different1")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCredentialStore_ConcurrentDuplicate(t *testing.T) {
	store := NewCredentialStore(NewMemoryUserRepository(), newTestHasher(t), time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Create(ctx, "Ann", "ann@x.com", "secret123")
		}()
	}
	wg.Wait()

	var succeeded, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDuplicateEmail):
			duplicates++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, duplicates)
}

func TestCredentialStore_FindByEmail_HidesHash(t *testing.T) {
	store := NewCredentialStore(NewMemoryUserRepository(), newTestHasher(t), time.Second)
	ctx := context.Background()

	_, err := store.Create(ctx, "Ann", "ann@x.com", "secret123")
	require.NoError(t, err)

	user, err := store.FindByEmail(ctx, "ann@x.com", false)
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)

	_, err = store.FindByEmail(ctx, "nobody@x.com", false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCredentialStore_FindByID(t *testing.T) {
	store := NewCredentialStore(NewMemoryUserRepository(), newTestHasher(t), time.Second)
	ctx := context.Background()

	created, err := store.Create(ctx, "Ann", "ann@x.com", "secret123")
	require.NoError(t, err)

	got, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)

	_, err = store.FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCredentialStore_BackendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	store := NewCredentialStore(repo, newTestHasher(t), time.Second)
	ctx := context.Background()

	backendErr := errors.New("connection refused")

	repo.EXPECT().FindByEmail(gomock.Any(), "ann@x.com", true).Return(nil, backendErr)
	_, err := store.FindByEmail(ctx, "ann@x.com", true)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, backendErr)

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(backendErr)
	_, err = store.Create(ctx, "Ann", "ann@x.com", "secret123")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCredentialStore_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockUserRepository(ctrl)
	store := NewCredentialStore(repo, newTestHasher(t), 10*time.Millisecond)

	repo.EXPECT().FindByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (*entities.User, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	_, err := store.FindByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

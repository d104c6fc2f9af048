package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService(t *testing.T, ttl time.Duration) *JWTService {
	t.Helper()
	s, err := NewJWTService(testSecret, ttl)
	require.NoError(t, err)
	return s
}

func TestNewJWTService_Configuration(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		ttl    time.Duration
	}{
		{name: "missing secret", secret: "", ttl: time.Hour},
		{name: "short secret", secret: "short", ttl: time.Hour},
		{name: "zero ttl", secret: testSecret, ttl: 0},
		{name: "negative ttl", secret: testSecret, ttl: -time.Minute},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			_, err := NewJWTService(test.secret, test.ttl)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestGenerateAndValidate_Success(t *testing.T) {
	t.Parallel()
	s := newTestService(t, time.Hour)

	tok, err := s.GenerateToken("user-123")
	require.NoError(t, err)

	subject, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", subject)
}

func TestGenerateToken_RequiresSubject(t *testing.T) {
	s := newTestService(t, time.Hour)
	_, err := s.GenerateToken("")
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	t.Parallel()
	s := newTestService(t, time.Minute)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	tok, err := s.GenerateToken("u1")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestWithClock(t *testing.T) {
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	past, err := NewJWTService(testSecret, time.Hour, WithClock(func() time.Time { return issued }))
	require.NoError(t, err)

	tok, err := past.GenerateToken("u1")
	require.NoError(t, err)

	subject, err := past.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	_, err = newTestService(t, time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Parallel()
	other, err := NewJWTService(strings.Repeat("x", MinSecretLength), time.Hour)
	require.NoError(t, err)

	tok, err := other.GenerateToken("u2")
	require.NoError(t, err)

	_, err = newTestService(t, time.Hour).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestValidateToken_Malformed(t *testing.T) {
	t.Parallel()
	s := newTestService(t, time.Hour)

	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := s.ValidateToken(tok)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
	}
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	s := newTestService(t, time.Hour)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u3",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = s.ValidateToken(signed)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenExpired)
}

func TestValidateToken_RequiresExpiryAndSubject(t *testing.T) {
	t.Parallel()
	s := newTestService(t, time.Hour)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u4"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateToken(noExp)
	assert.ErrorIs(t, err, ErrTokenMalformed)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.ValidateToken(noSub)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

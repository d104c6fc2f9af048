package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/auth/v1", "anon-key", srv.Client())
	require.NoError(t, err)
	return c
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient("", "k", nil)
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com", "k", nil)
	assert.Error(t, err)
}

func TestClient_SignUp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@x.com", body["email"])
		assert.Equal(t, map[string]any{"name": "Ann"}, body["data"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"bearer","expires_in":3600,"user":{"id":"u1","email":"ann@x.com"}}`))
	})

	session, err := c.SignUp(context.Background(), "Ann", "ann@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, "u1", session.User.ID)
}

func TestClient_SignUp_BareUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"u1","email":"ann@x.com","user_metadata":{"name":"Ann"}}`))
	})

	session, err := c.SignUp(context.Background(), "Ann", "ann@x.com", "longenough1")
	require.NoError(t, err)
	assert.Empty(t, session.AccessToken)
	require.NotNil(t, session.User)
	assert.Equal(t, "Ann", session.User.Name())
}

func TestClient_SignUp_AlreadyRegistered(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"error code", http.StatusUnprocessableEntity, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`},
		{"legacy message", http.StatusBadRequest, `{"code":400,"msg":"User already registered"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.SignUp(context.Background(), "Ann", "ann@x.com", "longenough1")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.True(t, apiErr.IsAlreadyRegistered())
		})
	}
}

func TestClient_PasswordGrant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"bearer"}`))
	})

	session, err := c.PasswordGrant(context.Background(), "ann@x.com", "longenough1")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
}

func TestClient_PasswordGrant_Invalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
	})

	_, err := c.PasswordGrant(context.Background(), "ann@x.com", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.False(t, apiErr.IsAlreadyRegistered())
}

func TestClient_GetUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","email":"ann@x.com","created_at":"2026-01-02T03:04:05Z","user_metadata":{"name":"Ann"}}`))
	})

	user, err := c.GetUser(context.Background(), "at")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Ann", user.Name())
	assert.Equal(t, 2026, user.CreatedAt.Year())

	_, err = c.GetUser(context.Background(), "other")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewClient(srv.URL, "", srv.Client())
	require.NoError(t, err)
	srv.Close()

	_, err = c.GetUser(context.Background(), "at")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

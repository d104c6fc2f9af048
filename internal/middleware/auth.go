package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"meaktask-api/internal/entities"
	"meaktask-api/internal/logging"
	"meaktask-api/internal/metrics"
	"meaktask-api/internal/models"
	"meaktask-api/internal/service"
)

// Authenticator resolves a bearer token to the identity it belongs to
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entities.Identity, error)
}

type identityKey struct{}

// identityContextKey is the gin.Context key holding the caller identity
const identityContextKey = "meaktask.identity"

// WithIdentity returns a context carrying the authenticated identity
func WithIdentity(ctx context.Context, identity *entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity attached by AuthMiddleware
func IdentityFromContext(ctx context.Context) (*entities.Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*entities.Identity)
	return identity, ok && identity != nil
}

// GetIdentity returns the identity attached to a gin request by AuthMiddleware
func GetIdentity(c *gin.Context) (*entities.Identity, bool) {
	if v, ok := c.Get(identityContextKey); ok {
		identity, ok := v.(*entities.Identity)
		return identity, ok && identity != nil
	}
	return IdentityFromContext(c.Request.Context())
}

const notAuthorized = "Not authorized to access this route"

// AuthMiddleware admits requests carrying a valid bearer token and attaches
// the caller identity. Every rejected token gets the same 401 body.
func AuthMiddleware(auth Authenticator, logger *slog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			reject(c, logger, m, service.ReasonMissing)
			return
		}

		identity, err := auth.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				reject(c, logger, m, service.UnauthenticatedReason(err))
				return
			}
			m.RecordAuth(metrics.OpAuthenticate, metrics.OutcomeError)
			logging.LogError(ctx, logger, "authenticate request failed", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewErrorResponse("Server error"))
			return
		}

		m.RecordAuth(metrics.OpAuthenticate, metrics.OutcomeSuccess)
		c.Set(identityContextKey, identity)
		c.Request = c.Request.WithContext(WithIdentity(ctx, identity))
		c.Next()
	}
}

func reject(c *gin.Context, logger *slog.Logger, m *metrics.Metrics, reason string) {
	m.RecordAuth(metrics.OpAuthenticate, metrics.OutcomeRejected)
	logger.InfoContext(c.Request.Context(), "request not authenticated", "reason", reason, "route", c.FullPath())
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(notAuthorized))
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

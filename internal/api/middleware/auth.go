package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ortaieb/a-hunt-game/internal/core/domain"
	"github.com/ortaieb/a-hunt-game/internal/core/service"
	"github.com/ortaieb/a-hunt-game/internal/observability"
	"github.com/sirupsen/logrus"
)

const (
	TokenHeaderKey = "user-auth-token"
	AuthHeaderKey  = "Authorization"
	AuthContextKey = "auth"
	bearerPrefix   = "Bearer "
)

// TokenVerifier is the part of the credential engine the middleware needs.
type TokenVerifier interface {
	VerifyToken(token string) (*service.Identity, error)
}

// extractToken reads the user-auth-token header, falling back to an
// Authorization bearer header. ok is false when the Authorization header is
// present but not a bearer token.
func extractToken(c *gin.Context) (token string, ok bool) {
	if token = c.GetHeader(TokenHeaderKey); token != "" {
		return token, true
	}

	authHeader := c.GetHeader(AuthHeaderKey)
	if authHeader == "" {
		return "", true
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix)), true
}

// AuthMiddleware verifies the bearer token and stores the caller's identity.
func AuthMiddleware(verifier TokenVerifier, logger *logrus.Logger, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)

		var (
			identity *service.Identity
			err      error
		)
		switch {
		case !ok:
			err = domain.Unauthorized(domain.MsgWrongToken)
		default:
			identity, err = verifier.VerifyToken(token)
		}

		if metrics != nil {
			outcome := "valid"
			if err != nil {
				outcome = "rejected"
			}
			metrics.TokenVerificationTotal.WithLabelValues(outcome).Inc()
		}
		if err != nil {
			RespondError(c, logger, err)
			return
		}

		c.Set(AuthContextKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose verified identity lacks role. It runs
// before the handler, so a rejected request never reaches storage.
func RequireRole(role string, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			RespondError(c, nil, domain.Unauthorized(domain.MsgMissingToken))
			return
		}

		if err := service.RequireRole(identity.Roles, role); err != nil {
			if metrics != nil {
				metrics.AuthorizationDenied.WithLabelValues(role).Inc()
			}
			RespondError(c, nil, err)
			return
		}

		c.Next()
	}
}

// GetIdentity retrieves the verified identity from context
func GetIdentity(c *gin.Context) (*service.Identity, bool) {
	value, exists := c.Get(AuthContextKey)
	if !exists {
		return nil, false
	}

	identity, ok := value.(*service.Identity)
	return identity, ok && identity != nil
}

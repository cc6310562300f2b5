package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	appctx "pomegranate/internal/core/context"
)

// JWTValidator validates access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*appctx.Principal, error)
}

// Auth requires a valid bearer token and injects the principal.
func Auth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		token, ok := bearerToken(authHeader)
		if !ok {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		principal, err := validator.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuth injects the principal when a valid token is present.
func OptionalAuth(validator JWTValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if principal, err := validator.ValidateToken(token); err == nil && principal != nil {
				setPrincipal(c, principal)
			}
		}
		c.Next()
	}
}

// RequireKind admits principals of the given kinds.
func RequireKind(kinds ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if appctx.GetPrincipal(c.Request.Context()) == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if !appctx.HasKind(c.Request.Context(), kinds...) {
			_ = c.Error(
				apperror.NewForbidden("insufficient permissions").
					WithDetail("required_kinds", kinds),
			)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func setPrincipal(c *gin.Context, p *appctx.Principal) {
	c.Request = c.Request.WithContext(appctx.WithPrincipal(c.Request.Context(), p))
	c.Set("principal_id", p.ID)
	c.Set("principal_kind", p.Kind)
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}

// Package session carries the authenticated user through the request
// lifecycle as an explicit session object on the request context, with
// middleware that derives it from a bearer token. Session state lives only
// for the duration of a request; nothing is kept in process-global storage.
package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const sessionKey contextKey = "session"

// Session identifies the acting user for the duration of one request.
type Session struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// Claims is the JWT claim set issued to application users.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

// FromContext returns the session stored on ctx, or a zero session when none
// is present.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(sessionKey).(Session)
	return s
}

// WithSession returns a context carrying the given session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// publicPaths lists infrastructure endpoints (health checks, metrics
// scrapes) that must stay reachable without credentials.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// IsPublicPath reports whether the given path bypasses session resolution.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// Middleware validates the bearer token with the given HMAC signing key and
// places the resulting session on the request context. Public infrastructure
// paths pass through without a session.
func Middleware(signingKey []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IsPublicPath(c.Path()) {
				return next(c)
			}
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return signingKey, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sess := Session{UserID: claims.Subject, Name: claims.Name, Role: claims.Role}
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), sess)))
			return next(c)
		}
	}
}

// DevMiddleware is a permissive middleware for local-only mode that grants
// every request an admin session.
func DevMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := Session{UserID: "local-user", Name: "Local User", Role: "admin"}
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), sess)))
			return next(c)
		}
	}
}

// RequireRole returns middleware that rejects requests whose session role is
// not one of the given roles. The admin role always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := FromContext(c.Request().Context())
			if sess.Role == "admin" {
				return next(c)
			}
			for _, r := range roles {
				if sess.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

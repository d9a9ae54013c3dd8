package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bazaarmate/backend/internal/auth"
	"github.com/bazaarmate/backend/internal/authz"
	"github.com/bazaarmate/backend/internal/models"
)

const userContextKey = "auth.user"

type Auth struct {
	Svc *auth.Service
}

func NewAuth(svc *auth.Service) *Auth {
	return &Auth{Svc: svc}
}

// Resolve authenticates the bearer token when one is present and attaches
// the identity to the request context. A bad token does not fail the request
// here: protected handlers see no identity and answer 401 themselves. Store
// failures do fail the request, never downgrading to unauthenticated.
func (m *Auth) Resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if raw == "" {
			return next(c)
		}

		user, err := m.Svc.Authenticate(c.Request().Context(), raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "authentication backend unavailable")
		}
		if user != nil {
			c.Set(userContextKey, user)
		}
		return next(c)
	}
}

func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

func (m *Auth) RequireRole(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !authz.Allows(user.Role, required...) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

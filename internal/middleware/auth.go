package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/service"
	"github.com/iliyamo/table-order/internal/utils"
)

// Context keys set by the auth middleware.
const (
	KeyAdminID  = "admin_id"
	KeyStoreID  = "store_id"
	KeyUsername = "username"
	KeySession  = "session"
)

// SessionTokenHeader carries the customer session token.
const SessionTokenHeader = "Session-Token"

// AdminVerifier validates admin bearer tokens.
type AdminVerifier interface {
	VerifyAdminToken(raw string) (utils.AdminClaims, error)
}

// SessionResolver maps a customer session token to its open session.
type SessionResolver interface {
	ResolveToken(ctx context.Context, token string) (*model.Session, error)
}

// BearerToken returns the token of an "Authorization: Bearer" header or,
// failing that, of the token query parameter used by browser websockets.
func BearerToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.QueryParam("token")
}

// AdminAuth rejects requests without a valid admin token and stores the
// admin id, store id and username in the context.
func AdminAuth(v AdminVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := v.VerifyAdminToken(raw)
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
			case err != nil:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(KeyAdminID, claims.AdminID)
			c.Set(KeyStoreID, claims.StoreID)
			c.Set(KeyUsername, claims.Username)
			return next(c)
		}
	}
}

// SessionAuth rejects requests whose Session-Token header (or
// session_token query parameter) does not name an open session.
func SessionAuth(r SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := c.Request().Header.Get(SessionTokenHeader)
			if tok == "" {
				tok = c.QueryParam("session_token")
			}
			if tok == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session token"})
			}
			sess, err := r.ResolveToken(c.Request().Context(), tok)
			switch {
			case errors.Is(err, service.ErrSessionNotActive):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "session has ended"})
			case errors.Is(err, service.ErrSessionNotFound):
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
			case err != nil:
				c.Logger().Errorf("resolve session token: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			c.Set(KeySession, sess)
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// RequireStore compares the store id in the named path parameter with the
// store of the authenticated admin.  It must run after AdminAuth.  A
// malformed id is a 400; a different store is a 403.
func RequireStore(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			want, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil || want == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + param})
			}
			if got, ok := StoreID(c); !ok || got != want {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

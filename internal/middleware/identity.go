package middleware

// Accessors for the identities stored by AdminAuth and SessionAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/model"
)

// AdminID returns the authenticated admin id.
func AdminID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(KeyAdminID).(uint64)
	return v, ok && v != 0
}

// StoreID returns the store the authenticated admin operates on.
func StoreID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(KeyStoreID).(uint64)
	return v, ok && v != 0
}

// Session returns the customer session resolved by SessionAuth.
func Session(c echo.Context) (*model.Session, bool) {
	s, ok := c.Get(KeySession).(*model.Session)
	return s, ok && s != nil
}

// callerID identifies the caller for rate limiting: the admin, the
// customer session or "anon".
func callerID(c echo.Context) string {
	if id, ok := AdminID(c); ok {
		return "admin-" + strconv.FormatUint(id, 10)
	}
	if s, ok := Session(c); ok {
		return "session-" + strconv.FormatUint(s.ID, 10)
	}
	return "anon"
}

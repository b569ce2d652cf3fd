package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/handler"
	"github.com/iliyamo/table-order/internal/middleware"
)

// RegisterCustomer registers the table-side API under /api/customer.
// Logging in needs only a QR code; order routes need the session token
// returned by login.  Menu reads go through cache, which may be a no-op.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, sessions middleware.SessionResolver, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/api/customer", limit)
	auth := middleware.SessionAuth(sessions)

	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout, auth)

	g.GET("/menu/list", h.MenuList, cache)
	g.GET("/menu/:id", h.MenuDetail, cache)

	g.POST("/order/create", h.CreateOrder, auth)
	g.GET("/order/list", h.ListOrders, auth)
	g.GET("/order/:id", h.GetOrder, auth)
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/handler"
	"github.com/iliyamo/table-order/internal/middleware"
)

// RegisterAdmin registers the staff API under /api/admin.  Everything but
// login requires an admin bearer token.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, verifier middleware.AdminVerifier, limit echo.MiddlewareFunc) {
	e.POST("/api/admin/auth/login", h.Login, limit)

	g := e.Group("/api/admin", limit, middleware.AdminAuth(verifier))
	g.GET("/auth/me", h.Me)

	g.GET("/order/list", h.ListOrders)
	g.GET("/order/:id", h.GetOrder)
	g.GET("/order/:id/history", h.OrderHistory)
	g.PATCH("/order/:id/status", h.UpdateOrderStatus)

	g.GET("/table/list", h.ListTables)
	g.POST("/table/create", h.CreateTable)
	g.GET("/table/:id", h.GetTable)
	g.PATCH("/table/:id", h.UpdateTable)
	g.DELETE("/table/:id", h.DeleteTable)
	g.POST("/table/:id/end-session", h.EndTableSession)

	g.GET("/category/list", h.ListCategories)
	g.POST("/category/create", h.CreateCategory)
	g.GET("/category/:id", h.GetCategory)
	g.PATCH("/category/:id", h.UpdateCategory)
	g.DELETE("/category/:id", h.DeleteCategory)

	g.GET("/menu/list", h.ListMenus)
	g.POST("/menu/create", h.CreateMenu)
	g.GET("/menu/:id", h.GetMenu)
	g.PATCH("/menu/:id", h.UpdateMenu)
	g.DELETE("/menu/:id", h.DeleteMenu)
}

// RegisterRealtime registers the dashboard websocket.  Browsers cannot set
// headers on a websocket handshake, so the token may come as ?token=.
func RegisterRealtime(e *echo.Echo, h *handler.RealtimeHandler, verifier middleware.AdminVerifier) {
	e.GET("/ws/admin/:store_id", h.AdminSocket,
		middleware.AdminAuth(verifier),
		middleware.RequireStore("store_id"),
	)
}

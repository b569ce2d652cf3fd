// Package router registers the HTTP routes of the server.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/handler"
	"github.com/iliyamo/table-order/internal/metrics"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/repository"
	"github.com/iliyamo/table-order/internal/service"
)

// errStatus maps a domain error to its HTTP status and client message.
// Validation errors keep their wrapped detail, everything else gets a
// fixed message.
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidTipRate),
		errors.Is(err, service.ErrMenuNotAvailable),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrOrderTooLarge),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrSessionNotActive):
		return http.StatusBadRequest, "session is not active"
	case errors.Is(err, service.ErrSessionAlreadyEnded):
		return http.StatusBadRequest, "session already ended"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, service.ErrTableNotFound):
		return http.StatusNotFound, "table not found or inactive"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, service.ErrOrderNotFound):
		return http.StatusNotFound, "order not found"
	case errors.Is(err, repository.ErrTableNotFound):
		return http.StatusNotFound, "table not found"
	case errors.Is(err, repository.ErrCategoryNotFound):
		return http.StatusNotFound, "category not found"
	case errors.Is(err, repository.ErrMenuNotFound):
		return http.StatusNotFound, "menu not found"
	case errors.Is(err, service.ErrActiveSessionExists):
		return http.StatusConflict, "table already has an active session"
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal error"
}

// fail writes err as {"error": msg}. Unmapped errors are logged.
func fail(c echo.Context, err error) error {
	status, msg := errStatus(err)
	if status == http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

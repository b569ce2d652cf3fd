// Package service implements the table-session lifecycle, the order engine
// and admin authentication on top of the repository ports declared in
// ports.go.
package service

import (
	"errors"

	"github.com/iliyamo/table-order/internal/utils"
)

// Domain errors.  Callers match them with errors.Is; services may wrap
// them with context using %w.
var (
	ErrActiveSessionExists = errors.New("table already has an active session")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionAlreadyEnded = errors.New("session already ended")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrTableNotFound       = errors.New("table not found")

	ErrInvalidTipRate   = errors.New("invalid tip rate")
	ErrMenuNotAvailable = errors.New("menu not available")
	ErrInvalidQuantity  = errors.New("quantity out of range")
	ErrOrderTooLarge    = errors.New("order total out of range")
	ErrEmptyOrder       = errors.New("order has no items")
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidStatus    = errors.New("invalid order status")

	ErrInvalidCredentials = errors.New("invalid username or password")

	// Token errors are shared with the utils package so errors.Is works on
	// both sides.
	ErrTokenExpired = utils.ErrTokenExpired
	ErrInvalidToken = utils.ErrTokenInvalid
)

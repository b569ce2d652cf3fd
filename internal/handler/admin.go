package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/middleware"
)

// AdminHandler serves the staff dashboard.  Every call is scoped to the
// store in the admin's token.
type AdminHandler struct {
	Auth     Authenticator
	Orders   OrderAPI
	Sessions SessionAPI
	Tables   TableStore
	Catalog  CatalogStore

	// InvalidateMenus drops cached customer menu responses after a
	// catalog write.  Optional.
	InvalidateMenus func(ctx context.Context)
}

func NewAdminHandler(auth Authenticator, orders OrderAPI, sessions SessionAPI, tables TableStore, catalog CatalogStore) *AdminHandler {
	if auth == nil || orders == nil || sessions == nil || tables == nil || catalog == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Auth: auth, Orders: orders, Sessions: sessions, Tables: tables, Catalog: catalog}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminLoginResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	Expires     time.Time `json:"expires"`
	AdminID     uint64    `json:"admin_id"`
	StoreID     uint64    `json:"store_id"`
	Username    string    `json:"username"`
}

// Login exchanges a username and password for a bearer token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username/password required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	tok, a, err := h.Auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, adminLoginResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		Expires:     tok.Exp,
		AdminID:     a.ID,
		StoreID:     a.StoreID,
		Username:    a.Username,
	})
}

// Me echoes the identity carried by the token.
func (h *AdminHandler) Me(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, _ := middleware.AdminID(c)
	return c.JSON(http.StatusOK, echo.Map{"admin_id": id, "store_id": store, "username": c.Get(middleware.KeyUsername)})
}

// ListOrders lists the store's orders, newest first.  ?status= filters by
// status and ?limit= caps the result (default 100, max 500).
func (h *AdminHandler) ListOrders(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return badRequest(c, "invalid limit")
		}
		limit = n
	}
	if limit > 500 {
		limit = 500
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	orders, err := h.Orders.ListOrders(ctx, store, strings.TrimSpace(c.QueryParam("status")), limit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder returns one order with its items.
func (h *AdminHandler) GetOrder(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	o, err := h.Orders.GetStoreOrder(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// OrderHistory returns the status changes of an order.
func (h *AdminHandler) OrderHistory(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	hist, err := h.Orders.OrderHistory(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, hist)
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order to the requested status.
func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	o, err := h.Orders.UpdateStoreOrderStatus(ctx, store, id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *AdminHandler) invalidateMenus(ctx context.Context) {
	if h.InvalidateMenus != nil {
		h.InvalidateMenus(ctx)
	}
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/middleware"
	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/service"
)

// requestTimeout bounds the database work of one request.
const requestTimeout = 5 * time.Second

// DefaultStoreID is the store served when a menu request names none.
const DefaultStoreID = 1

// CustomerHandler serves the endpoints used from a table's device.
type CustomerHandler struct {
	Sessions SessionAPI
	Orders   OrderAPI
	Catalog  CatalogStore
}

func NewCustomerHandler(sessions SessionAPI, orders OrderAPI, catalog CatalogStore) *CustomerHandler {
	if sessions == nil || orders == nil || catalog == nil {
		panic("nil dependency passed to NewCustomerHandler")
	}
	return &CustomerHandler{Sessions: sessions, Orders: orders, Catalog: catalog}
}

type tableLoginReq struct {
	QRCode string `json:"qr_code"`
}

type tableLoginResp struct {
	SessionToken string    `json:"session_token"`
	SessionID    uint64    `json:"session_id"`
	TableID      uint64    `json:"table_id"`
	TableNumber  string    `json:"table_number"`
	StoreID      uint64    `json:"store_id"`
	StartedAt    time.Time `json:"started_at"`
}

// Login opens a session for the table whose QR code was scanned.  The raw
// session token is only ever returned here.
func (h *CustomerHandler) Login(c echo.Context) error {
	var req tableLoginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.QRCode = strings.TrimSpace(req.QRCode)
	if req.QRCode == "" {
		return badRequest(c, "qr_code required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	sess, tbl, err := h.Sessions.OpenByQRCode(ctx, req.QRCode)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tableLoginResp{
		SessionToken: sess.Token,
		SessionID:    sess.ID,
		TableID:      tbl.ID,
		TableNumber:  tbl.TableNumber,
		StoreID:      tbl.StoreID,
		StartedAt:    sess.StartedAt,
	})
}

// Logout ends the caller's session.
func (h *CustomerHandler) Logout(c echo.Context) error {
	sess, ok := middleware.Session(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Sessions.EndSession(ctx, sess.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Session ended successfully"})
}

type menuListResp struct {
	Categories []model.Category `json:"categories"`
	Menus      []model.Menu     `json:"menus"`
}

// storeParam reads ?store_id=, defaulting to DefaultStoreID.
func storeParam(c echo.Context) (uint64, bool) {
	raw := c.QueryParam("store_id")
	if raw == "" {
		return DefaultStoreID, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil && id > 0
}

// MenuList returns the categories in display order and every menu of the
// store, including sold-out ones so the board can grey them out.
func (h *CustomerHandler) MenuList(c echo.Context) error {
	storeID, ok := storeParam(c)
	if !ok {
		return badRequest(c, "invalid store_id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	cats, err := h.Catalog.ListCategories(ctx, storeID)
	if err != nil {
		return fail(c, err)
	}
	menus, err := h.Catalog.ListMenus(ctx, storeID, 0, false)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, menuListResp{Categories: cats, Menus: menus})
}

// MenuDetail returns one menu.
func (h *CustomerHandler) MenuDetail(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	storeID, ok := storeParam(c)
	if !ok {
		return badRequest(c, "invalid store_id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	m, err := h.Catalog.GetMenu(ctx, storeID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

type createOrderReq struct {
	Items   []service.OrderLine `json:"items"`
	TipRate int                 `json:"tip_rate"`
}

// CreateOrder places an order in the caller's session.
func (h *CustomerHandler) CreateOrder(c echo.Context) error {
	sess, ok := middleware.Session(c)
	if !ok {
		return unauthorized(c)
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, sess.ID, req.Items, req.TipRate)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// ListOrders returns the orders placed in the caller's session.
func (h *CustomerHandler) ListOrders(c echo.Context) error {
	sess, ok := middleware.Session(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	orders, err := h.Orders.ListSessionOrders(ctx, sess.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder returns one order of the caller's session.
func (h *CustomerHandler) GetOrder(c echo.Context) error {
	sess, ok := middleware.Session(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	o, err := h.Orders.GetSessionOrder(ctx, sess.ID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

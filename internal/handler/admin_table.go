package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/middleware"
	"github.com/iliyamo/table-order/internal/model"
)

type tableReq struct {
	TableNumber *string `json:"table_number"`
	Capacity    *uint32 `json:"capacity"`
	QRCode      *string `json:"qr_code"`
	IsActive    *bool   `json:"is_active"`
}

// tableView is a table plus its open session, if any.
type tableView struct {
	model.Table
	ActiveSession *model.Session `json:"active_session"`
}

// ListTables returns the tables of the admin's store.
func (h *AdminHandler) ListTables(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	tables, err := h.Tables.ListByStore(ctx, store)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tables)
}

// GetTable returns a table together with its active session.
func (h *AdminHandler) GetTable(c echo.Context) error {
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
	t, err := h.Tables.GetByID(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	sess, err := h.Sessions.GetActiveSession(ctx, t.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, tableView{Table: *t, ActiveSession: sess})
}

// CreateTable adds a table.  A QR code is generated when none is given.
func (h *AdminHandler) CreateTable(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t := &model.Table{StoreID: store, IsActive: true, Capacity: model.DefaultTableCapacity}
	if req.TableNumber != nil {
		t.TableNumber = strings.TrimSpace(*req.TableNumber)
	}
	if t.TableNumber == "" {
		return badRequest(c, "table_number required")
	}
	if req.Capacity != nil {
		if *req.Capacity == 0 {
			return badRequest(c, "capacity must be positive")
		}
		t.Capacity = *req.Capacity
	}
	if req.QRCode != nil {
		t.QRCode = strings.TrimSpace(*req.QRCode)
	}
	if t.QRCode == "" {
		t.QRCode = uuid.NewString()
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Tables.Create(ctx, t); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// UpdateTable applies the fields present in the body.
func (h *AdminHandler) UpdateTable(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req tableReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	t, err := h.Tables.GetByID(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	if req.TableNumber != nil {
		if t.TableNumber = strings.TrimSpace(*req.TableNumber); t.TableNumber == "" {
			return badRequest(c, "table_number cannot be empty")
		}
	}
	if req.Capacity != nil {
		if *req.Capacity == 0 {
			return badRequest(c, "capacity must be positive")
		}
		t.Capacity = *req.Capacity
	}
	if req.QRCode != nil {
		if t.QRCode = strings.TrimSpace(*req.QRCode); t.QRCode == "" {
			return badRequest(c, "qr_code cannot be empty")
		}
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if err := h.Tables.Update(ctx, t); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// DeleteTable removes a table with its sessions and their orders.
func (h *AdminHandler) DeleteTable(c echo.Context) error {
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
	if err := h.Tables.DeleteCascade(ctx, store, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EndTableSession closes the open session of a table, e.g. after payment.
func (h *AdminHandler) EndTableSession(c echo.Context) error {
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
	if _, err := h.Tables.GetByID(ctx, store, id); err != nil {
		return fail(c, err)
	}
	sess, err := h.Sessions.EndTableSession(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-order/internal/middleware"
	"github.com/iliyamo/table-order/internal/model"
)

type categoryReq struct {
	Name         *string `json:"name"`
	DisplayOrder *int    `json:"display_order"`
}

// ListCategories returns the store's categories in display order.
func (h *AdminHandler) ListCategories(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	cats, err := h.Catalog.ListCategories(ctx, store)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *AdminHandler) GetCategory(c echo.Context) error {
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
	cat, err := h.Catalog.GetCategory(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	cat := &model.Category{StoreID: store}
	if req.Name != nil {
		cat.Name = strings.TrimSpace(*req.Name)
	}
	if cat.Name == "" {
		return badRequest(c, "name required")
	}
	if req.DisplayOrder != nil {
		cat.DisplayOrder = *req.DisplayOrder
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Catalog.CreateCategory(ctx, cat); err != nil {
		return fail(c, err)
	}
	h.invalidateMenus(ctx)
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	cat, err := h.Catalog.GetCategory(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	if req.Name != nil {
		if cat.Name = strings.TrimSpace(*req.Name); cat.Name == "" {
			return badRequest(c, "name cannot be empty")
		}
	}
	if req.DisplayOrder != nil {
		cat.DisplayOrder = *req.DisplayOrder
	}
	if err := h.Catalog.UpdateCategory(ctx, cat); err != nil {
		return fail(c, err)
	}
	h.invalidateMenus(ctx)
	return c.JSON(http.StatusOK, cat)
}

// DeleteCategory removes a category; its menus move to the store's first
// remaining category.
func (h *AdminHandler) DeleteCategory(c echo.Context) error {
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
	movedTo, err := h.Catalog.DeleteCategory(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	h.invalidateMenus(ctx)
	return c.JSON(http.StatusOK, echo.Map{"deleted": id, "menus_moved_to": movedTo})
}

type menuReq struct {
	CategoryID  *uint64 `json:"category_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
	ImageURL    *string `json:"image_url"`
	Allergens   *string `json:"allergens"`
	IsAvailable *bool   `json:"is_available"`
}

// apply copies the present fields onto m and validates the result.
func (r menuReq) apply(m *model.Menu) string {
	if r.CategoryID != nil {
		m.CategoryID = *r.CategoryID
	}
	if r.Name != nil {
		m.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		m.Description = r.Description
	}
	if r.Price != nil {
		m.Price = *r.Price
	}
	if r.ImageURL != nil {
		m.ImageURL = r.ImageURL
	}
	if r.Allergens != nil {
		m.Allergens = r.Allergens
	}
	if r.IsAvailable != nil {
		m.IsAvailable = *r.IsAvailable
	}
	switch {
	case m.CategoryID == 0:
		return "category_id required"
	case m.Name == "":
		return "name required"
	case m.Price < 0:
		return "price cannot be negative"
	}
	return ""
}

// ListMenus returns all menus of the store.  ?category_id= narrows the
// list and ?available=true hides disabled menus.
func (h *AdminHandler) ListMenus(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	var category uint64
	if raw := c.QueryParam("category_id"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "invalid category_id")
		}
		category = n
	}
	availableOnly := c.QueryParam("available") == "true"
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	menus, err := h.Catalog.ListMenus(ctx, store, category, availableOnly)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, menus)
}

func (h *AdminHandler) GetMenu(c echo.Context) error {
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
	m, err := h.Catalog.GetMenu(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AdminHandler) CreateMenu(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	var req menuReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	m := &model.Menu{IsAvailable: true}
	if msg := req.apply(m); msg != "" {
		return badRequest(c, msg)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	if err := h.Catalog.CreateMenu(ctx, store, m); err != nil {
		return fail(c, err)
	}
	h.invalidateMenus(ctx)
	return c.JSON(http.StatusCreated, m)
}

// UpdateMenu applies the fields present in the body.  Price changes never
// touch existing orders, which carry their own snapshot.
func (h *AdminHandler) UpdateMenu(c echo.Context) error {
	store, ok := middleware.StoreID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req menuReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	m, err := h.Catalog.GetMenu(ctx, store, id)
	if err != nil {
		return fail(c, err)
	}
	if msg := req.apply(m); msg != "" {
		return badRequest(c, msg)
	}
	if err := h.Catalog.UpdateMenu(ctx, store, m); err != nil {
		return fail(c, err)
	}
	h.invalidateMenus(ctx)
	return c.JSON(http.StatusOK, m)
}

// DeleteMenu marks a menu unavailable.  The row stays so order items keep
// a valid reference.
func (h *AdminHandler) DeleteMenu(c echo.Context) error {
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
	if err := h.Catalog.DisableMenu(ctx, store, id); err != nil {
		return fail(c, err)
	}
	h.invalidateMenus(ctx)
	return c.NoContent(http.StatusNoContent)
}

package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/table-order/internal/handler"
	"github.com/iliyamo/table-order/internal/model"
	"github.com/iliyamo/table-order/internal/service"
	"github.com/iliyamo/table-order/internal/utils"
)

type verifier struct{}

func (verifier) VerifyAdminToken(raw string) (utils.AdminClaims, error) {
	if raw != "good" {
		return utils.AdminClaims{}, service.ErrInvalidToken
	}
	return utils.AdminClaims{AdminID: 1, StoreID: 1, Username: "admin"}, nil
}

type resolver struct{}

func (resolver) ResolveToken(context.Context, string) (*model.Session, error) {
	return nil, service.ErrSessionNotActive
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newServer(db handler.Pinger) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, db)
	RegisterCustomer(e, &handler.CustomerHandler{}, resolver{}, passthrough, passthrough)
	RegisterAdmin(e, &handler.AdminHandler{}, verifier{}, passthrough)
	RegisterRealtime(e, &handler.RealtimeHandler{}, verifier{})
	return e
}

func serve(e *echo.Echo, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := newServer(pinger{})

	for _, target := range []string{"/api/admin/order/list", "/api/admin/table/list", "/api/admin/menu/list", "/api/admin/auth/me"} {
		assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, target, "").Code, target)
		assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, target, "forged").Code, target)
	}

	rec := serve(e, http.MethodGet, "/api/admin/auth/me", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"admin_id":1,"store_id":1,"username":"admin"}`, rec.Body.String())
}

func TestCustomerOrderRoutesRequireSession(t *testing.T) {
	e := newServer(pinger{})

	rec := serve(e, http.MethodGet, "/api/customer/order/list", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing session token")

	req := httptest.NewRequest(http.MethodPost, "/api/customer/order/create", nil)
	req.Header.Set("Session-Token", "stale")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session has ended")
}

func TestRealtimeRouteScopedToStore(t *testing.T) {
	e := newServer(pinger{})

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/ws/admin/1", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/ws/admin/2?token=good", "").Code)
}

func TestHealthAndMetrics(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(newServer(pinger{}), http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(newServer(pinger{errors.New("down")}), http.MethodGet, "/healthz", "").Code)

	rec := serve(newServer(pinger{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandler_ExposesDomainCounters(t *testing.T) {
	OrderCreated(42)
	StatusChanged("ready")
	SessionsEnded("sweep", 3)
	SessionsEnded("logout", 0)

	body := scrape(t)
	assert.Contains(t, body, `table_order_orders_created_total{store_id="42"} 1`)
	assert.Contains(t, body, `table_order_orders_status_changes_total{status="ready"} 1`)
	assert.Contains(t, body, `table_order_sessions_ended_total{reason="sweep"} 3`)
	assert.NotContains(t, body, `reason="logout"`)
}

func TestObserveHTTP(t *testing.T) {
	ObserveHTTP(http.MethodGet, "/healthz", http.StatusOK, 0.01)
	assert.Contains(t, scrape(t), `table_order_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

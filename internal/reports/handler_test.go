package reports

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 3})))
		})
	})
	r.Route("/reports", h.MountRoutes)
	return r
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rr
}

func TestHandleSales(t *testing.T) {
	router := newTestRouter(newTestService(newFakeRepo()))

	rr := serve(router, http.MethodGet, "/reports/sales?start=2026-03-01&end=2026-03-31&category=tools&top=3", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report SalesReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Totals.OrderCount)
	require.Len(t, report.TopProducts, 1)
	assert.Equal(t, "Wrench", report.TopProducts[0].ProductName)

	cases := map[string]string{
		"missing window": "/reports/sales",
		"bad start":      "/reports/sales?start=yesterday&end=2026-03-31",
		"reversed":       "/reports/sales?start=2026-03-31&end=2026-03-01",
		"bad customer":   "/reports/sales?start=2026-03-01&end=2026-03-31&customer_id=x",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, target, "").Code)
		})
	}
}

func TestHandleInventoryAndCustomers(t *testing.T) {
	router := newTestRouter(newTestService(newFakeRepo()))

	rr := serve(router, http.MethodGet, "/reports/inventory?low_stock=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var inv InventoryReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &inv))
	assert.Equal(t, 1, inv.Totals.LowStock)

	rr = serve(router, http.MethodGet, "/reports/customers/top?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"customer_name":"Acme"`)

	rr = serve(router, http.MethodGet, "/reports/customers/1?start=2026-03-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cust CustomerReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cust))
	assert.Equal(t, 1, cust.Stats.OrderCount)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/reports/customers/8", "").Code)
}

func TestHandleHistory(t *testing.T) {
	router := newTestRouter(newTestService(newFakeRepo()))

	rr := serve(router, http.MethodPost, "/reports", `{"report_type": "sales", "parameters": {"start_date": "2026-03-01", "end_date": "2026-03-31"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var stored Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stored))
	assert.Equal(t, int64(3), stored.UserID)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/reports", `{"report_type": "sales", "extra": 1}`).Code)

	rr = serve(router, http.MethodGet, "/reports/history?mine=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"report_type":"sales"`)

	rr = serve(router, http.MethodGet, "/reports/history/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "result_data")

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/reports/history/1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/reports/history/1", "").Code)
}

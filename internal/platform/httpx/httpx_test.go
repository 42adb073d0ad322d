package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/shared"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		typ    string
	}{
		{shared.NewValidationError("sku", "is required"), http.StatusBadRequest, "validation"},
		{&shared.NotFoundError{Entity: "order", ID: 3}, http.StatusNotFound, ""},
		{&shared.InsufficientStockError{ProductID: 1}, http.StatusConflict, "insufficient-stock"},
		{&shared.ReferentialIntegrityError{Entity: "supplier", ID: 2, Dependents: "products"}, http.StatusConflict, "referential-integrity"},
		{&shared.ConflictError{Reason: "invalid transition"}, http.StatusConflict, "conflict"},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, nil, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.typ, body.Type)
		assert.Equal(t, tc.status, body.Status)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, nil, errors.New("dial tcp 10.0.0.3:5432: refused"))
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestValidationProblemCarriesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, nil, shared.NewValidationError("quantity", "must be greater than 0"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"quantity": "must be greater than 0"}, body.Errors)
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "a", target.Name)
}

func TestPathID(t *testing.T) {
	withParam := func(v string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", v)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	id, err := PathID(withParam("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "x"} {
		_, err := PathID(withParam(bad), "id")
		assert.ErrorIs(t, err, shared.ErrValidation, bad)
	}
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?customer_id=7&limit=&low_stock=true&end=2026-03-01&bad=x", nil)

	id, err := QueryInt64(req, "customer_id")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	limit, err := QueryInt(req, "limit", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)

	low, err := QueryBool(req, "low_stock")
	require.NoError(t, err)
	assert.True(t, *low)

	end, err := QueryDate(req, "end", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC), *end)

	_, err = QueryInt64(req, "bad")
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = QueryDate(req, "bad", false)
	assert.ErrorIs(t, err, shared.ErrValidation)

	missing, err := QueryDate(req, "start", false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

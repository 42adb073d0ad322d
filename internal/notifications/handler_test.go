package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/shared"
	"github.com/sioms/sioms/internal/testing/memstore"
)

func newTestRouter(t *testing.T) (http.Handler, *notifications.Service) {
	t.Helper()
	service := notifications.NewService(memstore.NewNotifications())
	handler := notifications.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), service)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithActor(req.Context(), shared.Actor{UserID: 7, Role: "staff"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/notifications", handler.MountRoutes)
	return r, service
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateDefaultsType(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/notifications/", `{"title":"Restock","message":"Truck arrives Friday"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got notifications.Notification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, notifications.TypeOther, got.Type)
	assert.False(t, got.IsRead)
}

func TestHandlerCreateRejectsMissingTitle(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/notifications/", `{"message":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")
}

func TestHandlerReadFlow(t *testing.T) {
	h, service := newTestRouter(t)
	ctx := context.Background()

	mine := int64(7)
	other := int64(9)
	first, err := service.Emit(ctx, notifications.Notification{UserID: &mine, Title: "a", Message: "a", Type: notifications.TypeOther})
	require.NoError(t, err)
	_, err = service.Emit(ctx, notifications.Notification{Title: "broadcast", Message: "b", Type: notifications.TypeLowStock})
	require.NoError(t, err)
	_, err = service.Emit(ctx, notifications.Notification{UserID: &other, Title: "c", Message: "c", Type: notifications.TypeOther})
	require.NoError(t, err)

	rec := do(t, h, http.MethodGet, "/notifications/unread-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":2}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/notifications/"+strconv.FormatInt(first.ID, 10)+"/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var read notifications.Notification
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&read))
	assert.True(t, read.IsRead)

	rec = do(t, h, http.MethodGet, "/notifications/?is_read=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Notifications []notifications.Notification `json:"notifications"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "broadcast", list.Notifications[0].Title)

	rec = do(t, h, http.MethodPut, "/notifications/read-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":1}`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/notifications/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":2}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/notifications/unread-count", "")
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
}

func TestHandlerErrors(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/notifications/404", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/notifications/?type=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/notifications/?is_read=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/notifications/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

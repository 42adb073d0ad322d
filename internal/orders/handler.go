package orders

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sioms/sioms/internal/platform/httpx"
	"github.com/sioms/sioms/internal/shared"
)

// IdempotencyHeader carries the client's placement key.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /orders routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Place)
	r.Get("/{id}", h.Show)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/confirm", h.transition(ActionConfirm))
	r.Post("/{id}/ship", h.transition(ActionShip))
	r.Post("/{id}/deliver", h.transition(ActionDeliver))
	r.Post("/{id}/cancel", h.transition(ActionCancel))
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	req.UserID = shared.ActorID(r.Context())
	req.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	order, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromRequest(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []Order{}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders":     items,
		"pagination": shared.NewPagination(filter.Page, min(filter.Limit, maxListLimit), total),
	})
}

func filterFromRequest(r *http.Request) (ListFilter, error) {
	var (
		filter ListFilter
		err    error
	)
	filter.Status = Status(r.URL.Query().Get("status"))
	if filter.CustomerID, err = httpx.QueryInt64(r, "customer_id"); err != nil {
		return filter, err
	}
	if filter.From, err = httpx.QueryDate(r, "start_date", false); err != nil {
		return filter, err
	}
	if filter.To, err = httpx.QueryDate(r, "end_date", true); err != nil {
		return filter, err
	}
	if filter.Page, err = httpx.QueryInt(r, "page", 1); err != nil {
		return filter, err
	}
	filter.Limit, err = httpx.QueryInt(r, "limit", defaultListLimit)
	return filter, err
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) transition(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.PathID(r, "id")
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		order, err := h.service.Transition(r.Context(), id, action)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, order)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

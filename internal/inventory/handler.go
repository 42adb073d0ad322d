package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sioms/sioms/internal/platform/httpx"
	"github.com/sioms/sioms/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountProductRoutes registers per-product stock routes under /products.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Post("/{id}/stock", h.handleAdjust)
	r.Get("/{id}/stock-logs", h.handleProductHistory)
	r.Get("/{id}/ledger", h.handleVerify)
}

// MountRoutes registers /stock-logs routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/summary", h.handleSummary)
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req AdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := shared.Validate(req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	product, err := h.service.AdjustStock(r.Context(), AdjustInput{
		ProductID:  id,
		Delta:      req.Delta,
		ActorID:    shared.ActorID(r.Context()),
		ChangeType: req.ChangeType,
		Notes:      req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleProductHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	limit, err := httpx.QueryInt(r, "limit", defaultMovementLimit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	movements, err := h.service.ProductHistory(r.Context(), id, limit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock_logs": nonNil(movements)})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	check, err := h.service.VerifyLedger(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, check)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMovementFilter(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"stock_logs": nonNil(movements)})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	from, err := httpx.QueryDate(r, "start_date", false)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	to, err := httpx.QueryDate(r, "end_date", true)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func parseMovementFilter(r *http.Request) (MovementFilter, error) {
	var (
		filter MovementFilter
		err    error
	)
	if filter.ProductID, err = httpx.QueryInt64(r, "product_id"); err != nil {
		return filter, err
	}
	if filter.UserID, err = httpx.QueryInt64(r, "user_id"); err != nil {
		return filter, err
	}
	filter.ChangeType = ChangeType(r.URL.Query().Get("change_type"))
	if filter.From, err = httpx.QueryDate(r, "start_date", false); err != nil {
		return filter, err
	}
	if filter.To, err = httpx.QueryDate(r, "end_date", true); err != nil {
		return filter, err
	}
	if filter.Limit, err = httpx.QueryInt(r, "limit", defaultMovementLimit); err != nil {
		return filter, err
	}
	return filter, nil
}

func nonNil(m []Movement) []Movement {
	if m == nil {
		return []Movement{}
	}
	return m
}

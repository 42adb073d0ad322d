package reports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sioms/sioms/internal/platform/httpx"
	"github.com/sioms/sioms/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers /reports routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.Sales)
	r.Get("/inventory", h.Inventory)
	r.Get("/customers/top", h.TopCustomers)
	r.Get("/customers/{id}", h.Customer)
	r.Post("/", h.Generate)
	r.Get("/history", h.History)
	r.Get("/history/{id}", h.Show)
	r.Delete("/history/{id}", h.Delete)
}

func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	filter, err := salesFilterFromRequest(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.Sales(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func salesFilterFromRequest(r *http.Request) (SalesFilter, error) {
	var filter SalesFilter
	start, err := httpx.QueryDate(r, "start", false)
	if err != nil {
		return filter, err
	}
	end, err := httpx.QueryDate(r, "end", true)
	if err != nil {
		return filter, err
	}
	if start != nil {
		filter.Start = *start
	}
	if end != nil {
		filter.End = *end
	}
	if filter.CustomerID, err = httpx.QueryInt64(r, "customer_id"); err != nil {
		return filter, err
	}
	if filter.ProductID, err = httpx.QueryInt64(r, "product_id"); err != nil {
		return filter, err
	}
	if filter.SupplierID, err = httpx.QueryInt64(r, "supplier_id"); err != nil {
		return filter, err
	}
	filter.Category = r.URL.Query().Get("category")
	filter.TopN, err = httpx.QueryInt(r, "top", defaultTopN)
	return filter, err
}

func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	var (
		filter InventoryFilter
		err    error
	)
	filter.Category = r.URL.Query().Get("category")
	if filter.SupplierID, err = httpx.QueryInt64(r, "supplier_id"); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	low, err := httpx.QueryBool(r, "low_stock")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	filter.LowStockOnly = low != nil && *low
	report, err := h.service.Inventory(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func windowFromRequest(r *http.Request) (Range, error) {
	start, err := httpx.QueryDate(r, "start", false)
	if err != nil {
		return Range{}, err
	}
	end, err := httpx.QueryDate(r, "end", true)
	return Range{Start: start, End: end}, err
}

func (h *Handler) TopCustomers(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromRequest(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	n, err := httpx.QueryInt(r, "limit", defaultTopN)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ranks, err := h.service.TopCustomers(r.Context(), window, n)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": ranks})
}

func (h *Handler) Customer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	window, err := windowFromRequest(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.Customer(r.Context(), id, window)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.Generate(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, report)
}

// History lists stored reports. mine=true narrows to the caller's own.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	var (
		filter ListFilter
		err    error
	)
	filter.Type = Type(r.URL.Query().Get("report_type"))
	if filter.Limit, err = httpx.QueryInt(r, "limit", defaultReportLimit); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	mine, err := httpx.QueryBool(r, "mine")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if mine != nil && *mine {
		id := shared.ActorID(r.Context())
		filter.UserID = &id
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []Report{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reports": items})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	report, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
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

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sioms/sioms/internal/catalog/customers"
	"github.com/sioms/sioms/internal/catalog/products"
	"github.com/sioms/sioms/internal/catalog/suppliers"
	"github.com/sioms/sioms/internal/dashboard"
	"github.com/sioms/sioms/internal/inventory"
	"github.com/sioms/sioms/internal/notifications"
	"github.com/sioms/sioms/internal/observability"
	"github.com/sioms/sioms/internal/orders"
	"github.com/sioms/sioms/internal/payments"
	"github.com/sioms/sioms/internal/rbac"
	"github.com/sioms/sioms/internal/reports"
	"github.com/sioms/sioms/internal/users"
	"github.com/sioms/sioms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	RBAC    rbac.Middleware

	ProductsHandler      *products.Handler
	CustomersHandler     *customers.Handler
	SuppliersHandler     *suppliers.Handler
	InventoryHandler     *inventory.Handler
	OrdersHandler        *orders.Handler
	PaymentsHandler      *payments.Handler
	ReportsHandler       *reports.Handler
	NotificationsHandler *notifications.Handler
	DashboardHandler     *dashboard.Handler
	UsersHandler         *users.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with SIOMS defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(params.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBAC.RequireAny(rbac.RoleAdmin, rbac.RoleManager))
			params.JobHandler.MountRoutes(r)
		})
	}

	r.Route("/api", func(r chi.Router) {
		if params.ProductsHandler != nil {
			r.Route("/products", func(r chi.Router) {
				params.ProductsHandler.MountRoutes(r)
				if params.InventoryHandler != nil {
					params.InventoryHandler.MountProductRoutes(r)
				}
			})
		}
		if params.InventoryHandler != nil {
			r.Route("/stock-logs", params.InventoryHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.SuppliersHandler != nil {
			r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", func(r chi.Router) {
				params.OrdersHandler.MountRoutes(r)
				if params.PaymentsHandler != nil {
					params.PaymentsHandler.MountOrderRoutes(r)
				}
			})
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", func(r chi.Router) {
				params.PaymentsHandler.MountRoutes(r)
				r.Group(func(r chi.Router) {
					r.Use(params.RBAC.RequireAny(rbac.RoleAdmin))
					params.PaymentsHandler.MountDeleteRoute(r)
				})
			})
		}
		if params.ReportsHandler != nil {
			r.Route("/reports", params.ReportsHandler.MountRoutes)
		}
		if params.NotificationsHandler != nil {
			r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
	})

	return r
}

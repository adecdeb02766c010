package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/showroom-dms/showroom/internal/audit"
	"github.com/showroom-dms/showroom/internal/auth"
	"github.com/showroom-dms/showroom/internal/credit"
	"github.com/showroom-dms/showroom/internal/customers"
	"github.com/showroom-dms/showroom/internal/dashboard"
	"github.com/showroom-dms/showroom/internal/enquiries"
	"github.com/showroom-dms/showroom/internal/inventory"
	"github.com/showroom-dms/showroom/internal/ledger"
	"github.com/showroom-dms/showroom/internal/observability"
	"github.com/showroom-dms/showroom/internal/sales"
	"github.com/showroom-dms/showroom/internal/settlement"
	"github.com/showroom-dms/showroom/internal/shared"
	"github.com/showroom-dms/showroom/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Actors         ActorLoader
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	LedgerHandler     *ledger.Handler
	SettlementHandler *settlement.Handler
	CreditHandler     *credit.Handler
	EnquiriesHandler  *enquiries.Handler
	SalesHandler      *sales.Handler
	InventoryHandler  *inventory.Handler
	CustomersHandler  *customers.Handler
	AuditHandler      *audit.Handler
	DashboardHandler  *dashboard.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with showroom defaults. Nil handlers
// leave their routes unmounted.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Actors:         params.Actors,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/users", params.AuthHandler.MountUserRoutes)
		}
		if params.LedgerHandler != nil {
			r.Route("/ledger", params.LedgerHandler.MountRoutes)
		}
		if params.SettlementHandler != nil {
			r.Route("/gatepass", params.SettlementHandler.MountRoutes)
		}
		if params.CreditHandler != nil {
			r.Route("/credit", params.CreditHandler.MountRoutes)
		}
		if params.EnquiriesHandler != nil {
			r.Route("/enquiries", params.EnquiriesHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/vehicles", params.InventoryHandler.MountVehicleRoutes)
			r.Route("/batteries", params.InventoryHandler.MountBatteryRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}

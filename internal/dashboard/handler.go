package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler serves /api/dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermDashboardView)).Get("/", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

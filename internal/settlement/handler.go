package settlement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler wires HTTP endpoints for gate passes.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs settlement handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/gatepass routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermLedgerView)).Get("/{chassis}/eligibility", h.eligibility)
	r.With(h.rbac.RequireAny(rbac.PermGatePassIssue)).Post("/{chassis}", h.issue)
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.CanIssueGatePass(r.Context(), chi.URLParam(r, "chassis"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	chassis := chi.URLParam(r, "chassis")
	pass, err := h.service.IssueGatePass(r.Context(), actor, chassis)
	if err != nil {
		h.logger.Warn("issue gate pass", slog.String("chassis", chassis), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if pass.Reprint {
		status = http.StatusOK
	}
	httpx.JSON(w, status, pass)
}

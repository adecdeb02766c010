package credit

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler wires HTTP endpoints for credit approval and recovery.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs credit handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/credit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.PermCreditApprove)).Post("/approvals", h.approve)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCreditRecovery))
		r.Get("/dues", h.dues)
		r.Post("/recovery-logs", h.logRecovery)
		r.Get("/recovery-logs/{customerID}", h.history)
		r.Get("/promises/{customerID}", h.promises)
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ApproveCreditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.ApproveCredit(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("approve credit", slog.String("chassis", req.ChassisNo), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) dues(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDues(r.Context())
	if err != nil {
		h.logger.Error("list dues", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) logRecovery(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req RecoveryLogRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.LogRecovery(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	logs, err := h.service.RecoveryHistory(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) promises(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "customerID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.ListPromises(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

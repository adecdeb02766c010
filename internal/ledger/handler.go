package ledger

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler wires HTTP endpoints for the customer ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs ledger handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermLedgerView))
		r.Get("/customers/{id}", h.customerLedger)
		r.Get("/customers/{id}/payments", h.listPayments)
		r.Get("/sales/{chassis}", h.saleLedger)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermLedgerRecord))
		r.Post("/payments", h.recordPayment)
		r.Put("/finance", h.recordFinance)
	})
}

func (h *Handler) customerLedger(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.ComputeLedger(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) saleLedger(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ComputeLedgerForSale(r.Context(), chi.URLParam(r, "chassis"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req PaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.RecordPayment(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("record payment", slog.Int64("customer_id", req.CustomerID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) recordFinance(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req FinanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.RecordFinance(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("record finance", slog.String("chassis", req.ChassisNo), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

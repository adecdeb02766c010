package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// IdempotencyHeader carries the client key that makes sale creation safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermSalesView))
		r.Get("/", h.listSales)
		r.Get("/charges/{model}", h.modelCharges)
		r.Get("/{chassis}", h.getSale)
	})
	r.With(h.rbac.RequireAny(rbac.PermSalesCreate)).Post("/", h.createSale)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermSalesEdit))
		r.Put("/{chassis}/compliance", h.updateCompliance)
		r.Put("/{chassis}/documents", h.attachDocument)
	})
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sales, err := h.service.ListSales(r.Context(), q.Get("status"), q.Get("q"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetSale(r.Context(), chi.URLParam(r, "chassis"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) modelCharges(w http.ResponseWriter, r *http.Request) {
	charges, err := h.service.ModelCharges(r.Context(), chi.URLParam(r, "model"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, charges)
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.CreateSale(r.Context(), actor, r.Header.Get(IdempotencyHeader), req)
	if err != nil {
		h.logger.Warn("create sale", slog.String("chassis", req.ChassisNo), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) updateCompliance(w http.ResponseWriter, r *http.Request) {
	var req ComplianceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sale, err := h.service.UpdateCompliance(r.Context(), chi.URLParam(r, "chassis"), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) attachDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	chassis := chi.URLParam(r, "chassis")
	if err := h.service.AttachDocument(r.Context(), chassis, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"chassis_no": chassis, "doc_type": req.DocType, "path": req.Path})
}

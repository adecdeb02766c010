package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountVehicleRoutes registers /api/vehicles routes.
func (h *Handler) MountVehicleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryView))
		r.Get("/", h.listVehicles)
		r.Get("/{chassis}", h.getVehicle)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryManage))
		r.Post("/", h.inwardVehicle)
	})
}

// MountBatteryRoutes registers /api/batteries routes.
func (h *Handler) MountBatteryRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryView))
		r.Get("/", h.listBatteries)
		r.Get("/next", h.nextBattery)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermInventoryManage))
		r.Put("/{serial}", h.updateBattery)
	})
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListVehicles(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetVehicle(r.Context(), chi.URLParam(r, "chassis"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) inwardVehicle(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req InwardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.service.InwardVehicle(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("inward vehicle", slog.String("chassis", req.ChassisNo), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) listBatteries(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBatteries(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) nextBattery(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.NextBattery(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) updateBattery(w http.ResponseWriter, r *http.Request) {
	var req BatteryUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.UpdateBattery(r.Context(), chi.URLParam(r, "serial"), req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

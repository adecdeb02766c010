package customers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler exposes customer endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCustomersView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/journey", h.journey)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCustomersEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermCustomersDelete))
		r.Delete("/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	list, err := h.service.List(r.Context(), ListFilter{Search: q.Get("q"), Limit: limit, Offset: offset})
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) journey(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	events, err := h.service.Journey(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.logger.Warn("delete customer", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

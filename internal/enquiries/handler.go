package enquiries

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Handler wires HTTP endpoints for enquiries.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs enquiries handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /api/enquiries routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermEnquiriesManage))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/stats", h.stats)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Get("/{id}/logs", h.logs)
		r.Post("/{id}/interactions", h.logInteraction)
		r.Post("/{id}/booking", h.book)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.service.ListEnquiries(r.Context(), q.Get("status"), q.Get("q"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.CreateEnquiry(r.Context(), actor, req)
	if err != nil {
		h.logger.Warn("create enquiry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("enquiry stats", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.GetEnquiry(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
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
	var patch UpdateRequest
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.UpdateEnquiry(r.Context(), actor, id, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	logs, err := h.service.ListLogs(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) logInteraction(w http.ResponseWriter, r *http.Request) {
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
	var req InteractionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.LogInteraction(r.Context(), actor, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
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
	var req BookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	booking, err := h.service.BookToken(r.Context(), actor, id, req)
	if err != nil {
		h.logger.Warn("book enquiry", slog.Int64("enquiry_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, booking)
}

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Handler wires HTTP endpoints for authentication and staff administration.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	rbac           rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		rbac:           rbacMW,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(h.rbac.RequireAuthenticated).Get("/me", h.handleMe)
}

// MountUserRoutes registers staff administration routes.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUsersView))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermUsersManage))
		r.Post("/", h.createUser)
		r.Delete("/{id}", h.deleteUser)
	})
}

type loginResponse struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Username string      `json:"username"`
	Role     shared.Role `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed", slog.String("username", req.Username))
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sess.SetUser(user.ID)
	httpx.JSON(w, http.StatusOK, loginResponse{ID: user.ID, Name: user.FullName, Username: user.Username, Role: user.Role})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":          actor.ID,
		"name":        actor.Name,
		"role":        actor.Role,
		"permissions": rbac.PermissionsFor(actor.Role),
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.CreateUser(r.Context(), actor, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.DeleteUser(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

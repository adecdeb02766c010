package rbac

import (
	"log/slog"
	"net/http"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAuthenticated rejects requests without a signed-in actor.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.ActorFromContext(r.Context()); !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current actor has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, p := range perms {
				if Allows(actor.Role, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if m.Logger != nil {
				m.Logger.Warn("rbac denied", slog.Int64("actor", actor.ID), slog.String("role", string(actor.Role)), slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, shared.Forbidden("insufficient permissions"))
		})
	}
}

// RequireAll ensures the current actor has all required permissions.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			for _, p := range perms {
				if !Allows(actor.Role, p) {
					httpx.RespondError(w, shared.Forbidden("insufficient permissions"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

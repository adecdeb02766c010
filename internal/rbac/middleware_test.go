package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/showroom-dms/showroom/internal/shared"
)

func serve(t *testing.T, h http.Handler, actor *shared.Actor) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor != nil {
		req = req.WithContext(shared.ContextWithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := Middleware{}.RequireAny(PermCreditApprove)(ok)

	assert.Equal(t, http.StatusUnauthorized, serve(t, guarded, nil))
	assert.Equal(t, http.StatusForbidden, serve(t, guarded, &shared.Actor{ID: 1, Role: shared.RoleSalesman}))
	assert.Equal(t, http.StatusForbidden, serve(t, guarded, &shared.Actor{ID: 2, Role: shared.RoleAccounts}))
	assert.Equal(t, http.StatusNoContent, serve(t, guarded, &shared.Actor{ID: 3, Role: shared.RoleManager}))
	assert.Equal(t, http.StatusNoContent, serve(t, guarded, &shared.Actor{ID: 4, Role: shared.RoleOwner}))
}

func TestRequireAll(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := Middleware{}.RequireAll(PermUsersView, PermUsersManage)(ok)

	assert.Equal(t, http.StatusForbidden, serve(t, guarded, &shared.Actor{ID: 1, Role: shared.RoleManager}))
	assert.Equal(t, http.StatusNoContent, serve(t, guarded, &shared.Actor{ID: 2, Role: shared.RoleAdmin}))
}

func TestPermissionsForSalesman(t *testing.T) {
	perms := PermissionsFor(shared.RoleSalesman)
	assert.Contains(t, perms, PermEnquiriesManage)
	assert.NotContains(t, perms, PermUsersView)
	assert.NotContains(t, perms, PermGatePassIssue)
	assert.Empty(t, PermissionsFor(shared.Role("Guest")))
}

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showroom-dms/showroom/internal/rbac"
	"github.com/showroom-dms/showroom/internal/shared"
)

type stubRepo struct {
	rows    []TimelineRow
	filters TimelineFilters
	offset  int
	limit   int
}

func (s *stubRepo) Window(_ context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	s.filters, s.offset, s.limit = f, offset, limit
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func seedRows(n int) []TimelineRow {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{
			At:       at.Add(-time.Duration(i) * time.Minute),
			ActorID:  1,
			Actor:    "admin",
			Action:   shared.AuditSaleCreated,
			Entity:   "sale",
			EntityID: fmt.Sprintf("CH%03d", i),
			Meta:     json.RawMessage(`{"payment_mode":"Cash"}`),
		}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: seedRows(25)}
	svc := NewService(repo)

	first, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, first.Rows, 20)
	assert.True(t, first.Paging.HasNext)
	assert.Equal(t, 2, first.Paging.NextPage)
	assert.Equal(t, 21, repo.limit)

	second, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, second.Paging.PageSize)
	assert.Equal(t, 50, repo.offset)
	assert.Empty(t, second.Rows)
	assert.NotNil(t, second.Rows)
	assert.Equal(t, 1, second.Paging.PrevPage)
}

func newRouter(repo *stubRepo, role shared.Role) http.Handler {
	h := NewHandler(nil, NewService(repo), rbac.Middleware{})
	h.now = func() time.Time { return time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithActor(req.Context(), shared.Actor{ID: 1, Name: "admin", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/audit", h.MountRoutes)
	return r
}

func TestTimelineDefaultWindow(t *testing.T) {
	repo := &stubRepo{rows: seedRows(2)}
	rec := httptest.NewRecorder()
	newRouter(repo, shared.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit?entity=sale", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03-08", repo.filters.From.Format(dateLayout))
	assert.Equal(t, "2026-03-16", repo.filters.To.Format(dateLayout))
	assert.Equal(t, "sale", repo.filters.Entity)

	var body Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Rows, 2)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	cases := map[string]string{
		"range":    "/api/audit?from=2025-12-01&to=2026-03-15",
		"reversed": "/api/audit?from=2026-03-15&to=2026-03-01",
		"date":     "/api/audit?to=15-03-2026",
		"page":     "/api/audit?page=0",
	}
	for name, url := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(&stubRepo{}, shared.RoleOwner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuditRequiresPermission(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubRepo{}, shared.RoleSalesman).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExportCSV(t *testing.T) {
	repo := &stubRepo{rows: seedRows(3)}
	rec := httptest.NewRecorder()
	newRouter(repo, shared.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit/export.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, maxExportRows, repo.limit)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "At,Actor ID,Actor,Action,Entity,Entity ID,Meta", lines[0])
	assert.Equal(t, `2026-03-10T09:00:00Z,1,admin,sale.created,sale,CH000,"{""payment_mode"":""Cash""}"`, lines[1])
}

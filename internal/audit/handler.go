package audit

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
	"github.com/showroom-dms/showroom/internal/shared"
)

const (
	dateLayout       = "2006-01-02"
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler serves the audit trail.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbacMW, now: time.Now}
}

// MountRoutes registers /api/audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow, httprate.WithKeyFuncs(rateLimitKey))
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.PermAuditView))
		r.Get("/", h.timeline)
		r.With(limiter).Get("/export.csv", h.export)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(actor.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write audit csv", slog.Any("error", err))
	}
}

// parseFilters reads from/to as inclusive dates; the default window is the
// last seven days.
func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	toDay := h.now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return TimelineFilters{}, shared.Invalid("to", "must be a YYYY-MM-DD date")
		}
		toDay = parsed
	}
	fromDay := toDay.Add(-defaultDateRange)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return TimelineFilters{}, shared.Invalid("from", "must be a YYYY-MM-DD date")
		}
		fromDay = parsed
	}
	if fromDay.After(toDay) {
		return TimelineFilters{}, shared.Invalid("from", "must not be after to")
	}
	if toDay.Sub(fromDay) > maxDateRange {
		return TimelineFilters{}, shared.Invalid("from", "range may not exceed 90 days")
	}
	page, err := positiveInt(q.Get("page"), "page")
	if err != nil {
		return TimelineFilters{}, err
	}
	pageSize, err := positiveInt(q.Get("page_size"), "page_size")
	if err != nil {
		return TimelineFilters{}, err
	}
	return TimelineFilters{
		From:     fromDay,
		To:       toDay.AddDate(0, 0, 1),
		Actor:    q.Get("actor"),
		Entity:   q.Get("entity"),
		EntityID: q.Get("entity_id"),
		Action:   q.Get("action"),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, shared.Invalid(field, "must be a positive integer")
	}
	return v, nil
}

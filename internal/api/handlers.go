// Package api exposes HTTP handlers for the habit tracker.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/habittracker/internal/auth"
	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/observability"
	"example.com/habittracker/internal/persistence"
)

const (
	maxListLimit      = 500
	offsetHeader      = "X-Timezone-Offset"
	activitiesPrefix  = "/v1/activities/"
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultAccessTTL  = 15 * time.Minute
)

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	service       *domain.Service
	accounts      *domain.AccountService
	logger        zerolog.Logger
	now           func() time.Time
	secureCookies bool
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger sets the logger used for unexpected failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithClock overrides the instant used to resolve IANA zone offsets.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithSecureCookies marks session cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secureCookies = secure
	}
}

// WithTokenTTLs sets the cookie lifetimes to match the issued tokens.
func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(h *Handler) {
		if access > 0 {
			h.accessTTL = access
		}
		if refresh > 0 {
			h.refreshTTL = refresh
		}
	}
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, accounts *domain.AccountService, opts ...Option) *Handler {
	h := &Handler{
		service:    service,
		accounts:   accounts,
		logger:     observability.Component("api"),
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/create", h.createOnly)
	mux.HandleFunc("/v1/activities/range", h.listByRange)
	mux.HandleFunc("/v1/activities/by-date", h.listByDate)
	mux.HandleFunc("/v1/activities/weekly-analytics", h.weeklyAnalytics)
	mux.HandleFunc("/v1/activities/weekly-summary", h.weeklySummary)
	mux.HandleFunc(activitiesPrefix, h.activityByID)

	mux.HandleFunc("/v1/users/register", h.register)
	mux.HandleFunc("/v1/users/login", h.login)
	mux.HandleFunc("/v1/users/refresh-token", h.refreshToken)
	mux.HandleFunc("/v1/users/logout", h.logout)
	mux.HandleFunc("/v1/users/me", h.me)

	mux.HandleFunc("/healthz", healthz)
	mux.Handle("/metrics", promhttp.Handler())
}

// PublicPaths lists the routes reachable without an access token.
func PublicPaths() []string {
	return []string{"/healthz", "/metrics", "/v1/users/register", "/v1/users/login", "/v1/users/refresh-token"}
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivity(w, r)
	case http.MethodGet:
		h.listActivities(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) createOnly(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	h.createActivity(w, r)
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, activitiesPrefix), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, kindNotFound, "unknown activity route")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, id)
	case http.MethodDelete:
		h.deleteActivity(w, r, id)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

// authorize returns the caller's claims when they hold scope.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthenticated, "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) && !claims.HasScope(auth.ScopeActivitiesWrite) {
		writeError(w, http.StatusForbidden, kindForbidden, fmt.Sprintf("scope %s required", scope))
		return nil, false
	}
	return claims, true
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), domain.CreateActivityInput{
		OwnerID:     claims.Subject,
		Name:        req.ActivityName,
		DurationMin: req.Duration,
		Category:    req.Category,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}

	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, kindValidation, "limit must be a positive integer")
			return
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	cursor, err := persistence.DecodeCursor(query.Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid cursor")
		return
	}

	items, next, err := h.service.ListActivities(r.Context(), claims.Subject, domain.ListActivitiesInput{
		Category: query.Get("category"),
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      toActivityViews(items),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) listByRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}

	query := r.URL.Query()
	items, err := h.service.ListActivitiesByRange(r.Context(), claims.Subject, query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Items: toActivityViews(items)})
}

func (h *Handler) listByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}

	items, err := h.service.ListActivitiesByDate(r.Context(), claims.Subject, r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListActivitiesResponse{Items: toActivityViews(items)})
}

func (h *Handler) weeklyAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}
	offset, err := h.parseOffset(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	days, err := h.service.WeeklyAnalytics(r.Context(), claims.Subject, offset)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WeeklyAnalyticsResponse{OffsetMinutes: *offset, Days: days})
}

func (h *Handler) weeklySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}
	offset, err := h.parseOffset(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	report, err := h.service.WeeklySummary(r.Context(), claims.Subject, offset)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WeeklySummaryResponse{OffsetMinutes: *offset, Days: report.Days, Summary: report.Summary})
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesRead)
	if !ok {
		return
	}

	activity, err := h.service.GetActivity(r.Context(), claims.Subject, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeActivitiesWrite)
	if !ok {
		return
	}

	if err := h.service.DeleteActivity(r.Context(), claims.Subject, id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// parseOffset resolves the observer's UTC offset in minutes, positive east.
// Sources in priority order: ?tzOffset=, the X-Timezone-Offset header, ?tz=<IANA name>.
func (h *Handler) parseOffset(r *http.Request) (*int, error) {
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("tzOffset")); raw != "" {
		return parseOffsetMinutes(raw)
	}
	if raw := strings.TrimSpace(r.Header.Get(offsetHeader)); raw != "" {
		return parseOffsetMinutes(raw)
	}
	if name := strings.TrimSpace(query.Get("tz")); name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown time zone %q", domain.ErrInvalidInput, name)
		}
		_, seconds := h.now().In(loc).Zone()
		minutes := seconds / 60
		return &minutes, nil
	}
	return nil, fmt.Errorf("%w: a UTC offset is required (tzOffset, %s or tz)", domain.ErrInvalidInput, offsetHeader)
}

func parseOffsetMinutes(raw string) (*int, error) {
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: offset %q is not a whole number of minutes", domain.ErrInvalidInput, raw)
	}
	return &minutes, nil
}

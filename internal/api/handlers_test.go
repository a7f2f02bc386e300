package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/habittracker/internal/auth"
	"example.com/habittracker/internal/domain"
	"example.com/habittracker/internal/persistence/memory"
)

type testServer struct {
	handler http.Handler
	clock   *time.Time
	issuer  *auth.Issuer
	repo    *memory.Repository
}

func newTestServer(t *testing.T, now time.Time) *testServer {
	t.Helper()
	clock := now
	nowFn := func() time.Time { return clock }

	cfg := auth.Config{Secret: "handler-secret", Issuer: "habit-tracker", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}
	issuer := auth.NewIssuer(cfg)
	repo := memory.NewRepository()
	service := domain.NewService(repo, domain.WithClock(nowFn))
	accounts := domain.NewAccountService(repo, issuer, domain.WithBcryptCost(bcrypt.MinCost))

	mux := http.NewServeMux()
	NewHandler(service, accounts, WithClock(nowFn)).RegisterRoutes(mux)
	middleware := auth.NewMiddleware(cfg, auth.PublicPaths(PublicPaths()...))

	return &testServer{handler: middleware.Wrap(mux), clock: &clock, issuer: issuer, repo: repo}
}

func (s *testServer) token(t *testing.T, owner string) string {
	t.Helper()
	token, err := s.issuer.IssueAccess(owner, owner+"@example.com", owner, auth.DefaultScopes)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

func errorKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rr, &body)
	require.NotEmpty(t, body["detail"])
	return body["type"]
}

func (s *testServer) create(t *testing.T, token, name string, duration int, category string) ActivityView {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/v1/activities/create", token, CreateActivityRequest{ActivityName: name, Duration: duration, Category: category})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var view ActivityView
	decode(t, rr, &view)
	return view
}

func TestCreateActivityUsesCallerIdentity(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC))
	token := srv.token(t, "alice")

	rr := srv.do(t, http.MethodPost, "/v1/activities", token, map[string]interface{}{
		"activityName": "Deep work",
		"duration":     90,
		"category":     "Work",
		"owner":        "mallory",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var view ActivityView
	decode(t, rr, &view)
	require.Equal(t, "alice", view.Owner)
	require.Equal(t, "Deep work", view.ActivityName)
	require.Equal(t, 90, view.Duration)
	require.Equal(t, "Work", view.Category)
	require.True(t, view.CreatedAt.Equal(*srv.clock))
}

func TestCreateActivityValidation(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())
	token := srv.token(t, "alice")

	cases := map[string]interface{}{
		"missing name":     CreateActivityRequest{Duration: 10, Category: "Work"},
		"zero duration":    CreateActivityRequest{ActivityName: "x", Duration: 0, Category: "Work"},
		"unknown category": CreateActivityRequest{ActivityName: "x", Duration: 10, Category: "Sleep"},
		"wrong type":       map[string]interface{}{"activityName": "x", "duration": "ten", "category": "Work"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := srv.do(t, http.MethodPost, "/v1/activities/create", token, body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Equal(t, kindValidation, errorKind(t, rr))
		})
	}
}

func TestActivitiesRequireAuthentication(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())

	rr := srv.do(t, http.MethodGet, "/v1/activities", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, kindUnauthenticated, errorKind(t, rr))

	rr = srv.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestListActivitiesNewestFirstWithCategoryAndPaging(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC))
	alice := srv.token(t, "alice")
	bob := srv.token(t, "bob")

	var ids []string
	for i, category := range []string{"Work", "Study", "Work"} {
		*srv.clock = srv.clock.Add(time.Duration(i+1) * time.Minute)
		ids = append(ids, srv.create(t, alice, "item", 10, category).ID)
	}
	srv.create(t, bob, "other", 10, "Work")

	rr := srv.do(t, http.MethodGet, "/v1/activities", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var all ListActivitiesResponse
	decode(t, rr, &all)
	require.Len(t, all.Items, 3)
	require.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all.Items[0].ID, all.Items[1].ID, all.Items[2].ID})
	require.Empty(t, all.NextCursor)

	rr = srv.do(t, http.MethodGet, "/v1/activities?category=Work", alice, nil)
	var work ListActivitiesResponse
	decode(t, rr, &work)
	require.Len(t, work.Items, 2)

	rr = srv.do(t, http.MethodGet, "/v1/activities?limit=2", alice, nil)
	var first ListActivitiesResponse
	decode(t, rr, &first)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	rr = srv.do(t, http.MethodGet, "/v1/activities?limit=2&cursor="+first.NextCursor, alice, nil)
	var second ListActivitiesResponse
	decode(t, rr, &second)
	require.Len(t, second.Items, 1)
	require.Equal(t, ids[0], second.Items[0].ID)

	rr = srv.do(t, http.MethodGet, "/v1/activities?category=Nap", alice, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = srv.do(t, http.MethodGet, "/v1/activities?limit=-1", alice, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListByRangeAndDate(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC))
	token := srv.token(t, "alice")

	late := srv.create(t, token, "late", 15, "Break")
	*srv.clock = time.Date(2024, time.January, 2, 0, 1, 0, 0, time.UTC)
	early := srv.create(t, token, "early", 20, "Study")

	rr := srv.do(t, http.MethodGet, "/v1/activities/range?startDate=2024-01-01&endDate=2024-01-01", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var day ListActivitiesResponse
	decode(t, rr, &day)
	require.Len(t, day.Items, 1)
	require.Equal(t, late.ID, day.Items[0].ID)

	rr = srv.do(t, http.MethodGet, "/v1/activities/by-date?date=2024-01-02", token, nil)
	var byDate ListActivitiesResponse
	decode(t, rr, &byDate)
	require.Len(t, byDate.Items, 1)
	require.Equal(t, early.ID, byDate.Items[0].ID)

	rr = srv.do(t, http.MethodGet, "/v1/activities/range?startDate=2024-01-01", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, kindValidation, errorKind(t, rr))

	rr = srv.do(t, http.MethodGet, "/v1/activities/by-date", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetAndDeleteEnforceOwnership(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())
	alice := srv.token(t, "alice")
	bob := srv.token(t, "bob")
	created := srv.create(t, alice, "Gym", 45, "Exercise")

	rr := srv.do(t, http.MethodGet, "/v1/activities/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/v1/activities/"+created.ID, bob, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, kindForbidden, errorKind(t, rr))

	rr = srv.do(t, http.MethodDelete, "/v1/activities/"+created.ID, bob, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/v1/activities/"+created.ID, alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/v1/activities/"+created.ID, alice, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, kindNotFound, errorKind(t, rr))

	rr = srv.do(t, http.MethodPut, "/v1/activities/"+created.ID, alice, nil)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestWeeklyAnalyticsBucketsByObserverOffset(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.January, 1, 23, 30, 0, 0, time.UTC))
	token := srv.token(t, "alice")
	srv.create(t, token, "Late session", 45, "Work")
	*srv.clock = time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC)

	rr := srv.do(t, http.MethodGet, "/v1/activities/weekly-analytics?tzOffset=360", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var east WeeklyAnalyticsResponse
	decode(t, rr, &east)
	require.Equal(t, 360, east.OffsetMinutes)
	require.Len(t, east.Days, 7)
	require.Equal(t, "2024-01-03", east.Days[6].Date)
	require.Equal(t, "2024-01-02", east.Days[5].Date)
	require.Equal(t, 45, east.Days[5].Categories["Work"])

	req := httptest.NewRequest(http.MethodGet, "/v1/activities/weekly-analytics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(offsetHeader, "-360")
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var west WeeklyAnalyticsResponse
	decode(t, rec, &west)
	require.Equal(t, "2024-01-01", west.Days[4].Date)
	require.Equal(t, 45, west.Days[4].TotalDayMinutes)
}

func TestWeeklyAnalyticsRequiresOffset(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())
	token := srv.token(t, "alice")

	for _, path := range []string{
		"/v1/activities/weekly-analytics",
		"/v1/activities/weekly-analytics?tzOffset=abc",
		"/v1/activities/weekly-analytics?tzOffset=900",
		"/v1/activities/weekly-analytics?tz=Mars/Olympus",
		"/v1/activities/weekly-summary",
	} {
		rr := srv.do(t, http.MethodGet, path, token, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code, path)
		require.Equal(t, kindInvalidInput, errorKind(t, rr), path)
	}
}

func TestWeeklyAnalyticsResolvesZoneName(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC))
	token := srv.token(t, "alice")

	rr := srv.do(t, http.MethodGet, "/v1/activities/weekly-analytics?tz=UTC", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp WeeklyAnalyticsResponse
	decode(t, rr, &resp)
	require.Zero(t, resp.OffsetMinutes)
	require.Equal(t, "2024-07-10", resp.Days[6].Date)
}

func TestWeeklySummary(t *testing.T) {
	srv := newTestServer(t, time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC))
	token := srv.token(t, "alice")
	srv.create(t, token, "a", 20, "Study")
	srv.create(t, token, "b", 15, "Study")
	srv.create(t, token, "c", 30, "Work")

	rr := srv.do(t, http.MethodGet, "/v1/activities/weekly-summary?tzOffset=0", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp WeeklySummaryResponse
	decode(t, rr, &resp)
	require.Len(t, resp.Days, 7)
	require.Equal(t, 65, resp.Summary.TotalMinutes)
	require.Equal(t, 3, resp.Summary.TotalEntries)
	require.Equal(t, 35, resp.Summary.CategoryTotals["Study"])
	require.NotNil(t, resp.Summary.TopCategory)
	require.Equal(t, "Study", resp.Summary.TopCategory.Name)
	require.NotNil(t, resp.Summary.BestDay)
	require.Equal(t, "2024-01-02", resp.Summary.BestDay.Date)
}

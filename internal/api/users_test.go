package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/habittracker/internal/auth"
)

func (s *testServer) login(t *testing.T, email, password string) (SessionResponse, *httptest.ResponseRecorder) {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Email: email, Password: password})
	var session SessionResponse
	if rr.Code == http.StatusOK {
		decode(t, rr, &session)
	}
	return session, rr
}

func TestRegisterLoginAndMe(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())

	rr := srv.do(t, http.MethodPost, "/v1/users/register", "", RegisterRequest{Name: "Ada", Email: "Ada@Example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var user UserView
	decode(t, rr, &user)
	require.Equal(t, "ada@example.com", user.Email)
	require.NotContains(t, rr.Body.String(), "secret1")

	rr = srv.do(t, http.MethodPost, "/v1/users/register", "", RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, kindConflict, errorKind(t, rr))

	session, rr := srv.login(t, "ada@example.com", "secret1")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	require.Equal(t, user.ID, session.User.ID)

	names := map[string]bool{}
	for _, c := range rr.Result().Cookies() {
		names[c.Name] = c.HttpOnly
	}
	require.True(t, names[auth.AccessCookie])
	require.True(t, names[auth.RefreshCookie])

	rr = srv.do(t, http.MethodGet, "/v1/users/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me UserView
	decode(t, rr, &me)
	require.Equal(t, user.ID, me.ID)

	_, rr = srv.login(t, "ada@example.com", "wrong-pass")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	_, rr = srv.login(t, "nobody@example.com", "secret1")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())

	for _, req := range []RegisterRequest{
		{Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "123"},
	} {
		rr := srv.do(t, http.MethodPost, "/v1/users/register", "", req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Equal(t, kindValidation, errorKind(t, rr))
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())
	rr := srv.do(t, http.MethodPost, "/v1/users/register", "", RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	session, _ := srv.login(t, "ada@example.com", "secret1")

	req := httptest.NewRequest(http.MethodPost, "/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: session.RefreshToken})
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rotated SessionResponse
	decode(t, rec, &rotated)
	require.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	rr = srv.do(t, http.MethodPost, "/v1/users/refresh-token", "", RefreshRequest{RefreshToken: session.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = srv.do(t, http.MethodPost, "/v1/users/logout", rotated.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := json.Marshal(RefreshRequest{RefreshToken: rotated.RefreshToken})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/v1/users/refresh-token", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rr = srv.do(t, http.MethodPost, "/v1/users/refresh-token", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutRequiresAuthentication(t *testing.T) {
	srv := newTestServer(t, time.Now().UTC())
	rr := srv.do(t, http.MethodPost, "/v1/users/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

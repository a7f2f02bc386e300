package api

import (
	"net/http"
	"strings"

	"example.com/habittracker/internal/auth"
	"example.com/habittracker/internal/domain"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req RegisterRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), domain.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req LoginRequest
	if err := decodeBody(r.Body, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	token := ""
	if cookie, err := r.Cookie(auth.RefreshCookie); err == nil {
		token = cookie.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req RefreshRequest
		if err := decodeBody(r.Body, &req); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}

	session, err := h.accounts.Refresh(r.Context(), token)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeSession(w, session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthenticated, "missing bearer token")
		return
	}

	if err := h.accounts.Logout(r.Context(), claims.Subject); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.clearCookie(w, auth.AccessCookie)
	h.clearCookie(w, auth.RefreshCookie)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, kindUnauthenticated, "missing bearer token")
		return
	}

	user, err := h.accounts.CurrentUser(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) writeSession(w http.ResponseWriter, session *domain.Session) {
	http.SetCookie(w, h.cookie(auth.AccessCookie, session.Tokens.AccessToken, int(h.accessTTL.Seconds())))
	http.SetCookie(w, h.cookie(auth.RefreshCookie, session.Tokens.RefreshToken, int(h.refreshTTL.Seconds())))
	writeJSON(w, http.StatusOK, SessionResponse{
		User:         toUserView(session.User),
		AccessToken:  session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, h.cookie(name, "", -1))
}

func (h *Handler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

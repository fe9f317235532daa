package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/eventhub/internal/auth"
	"github.com/sakif/eventhub/internal/gateway"
	"github.com/sakif/eventhub/internal/model"
)

// AuthHandler serves sign-up, login and logout.
//
// A successful sign-up or login returns the session as JSON (for API
// clients, which send it back as a bearer token) and also sets it as the
// HttpOnly "token" cookie (for browsers).
type AuthHandler struct {
	gw           gateway.AuthGateway
	logger       *slog.Logger
	secureCookie bool
}

func NewAuthHandler(gw gateway.AuthGateway, logger *slog.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{gw: gw, logger: logger, secureCookie: secureCookie}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleSignUp creates an account.
//
// HTTP: POST /auth/signup  {"email","password","full_name"} → 201 Session
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.gw.SignUp(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, session)
	writeJSON(w, http.StatusCreated, session)
}

// HandleLogin signs an existing user in.
//
// HTTP: POST /auth/login  {"email","password"} → 200 Session
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.gw.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.setTokenCookie(w, session)
	writeJSON(w, http.StatusOK, session)
}

// HandleLogout deletes the token cookie. Tokens are stateless, so a bearer
// client signs out simply by forgetting its token.
//
// HTTP: POST /auth/logout → 204
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, s *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    s.AccessToken,
		Path:     "/",
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

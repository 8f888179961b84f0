package handlers

import (
	"net/http"
	"time"

	"github.com/AbogiC/kostum-resonanz/internal/auth"
	"github.com/AbogiC/kostum-resonanz/internal/services"
)

// AuthHandler handles registration, login and the current-account lookup.
type AuthHandler struct {
	service      services.AccountServiceProvider
	tokenTTL     time.Duration
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. tokenTTL sets the lifetime of the
// login cookie; secureCookie marks it Secure.
func NewAuthHandler(service services.AccountServiceProvider, tokenTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new account registration.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err, "Invalid register body")
		return
	}

	resp, err := h.service.Register(r.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		writeError(w, r, err, "Failed to register account")
		return
	}

	h.setTokenCookie(w, resp.AccessToken)
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles authentication and token issuance.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, r, err, "Invalid login body")
		return
	}

	resp, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, r, err, "Failed authentication attempt")
		return
	}

	h.setTokenCookie(w, resp.AccessToken)
	writeJSON(w, http.StatusOK, resp)
}

// Logout clears the token cookie. Tokens already handed out stay valid until
// they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the account making the request.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := currentAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, account.View())
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokenTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
}

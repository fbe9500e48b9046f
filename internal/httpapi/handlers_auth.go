package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/domain"
)

type userResponse struct {
	ID               string     `json:"id"`
	TelegramUsername string     `json:"telegram_username"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:               u.ID,
		TelegramUsername: u.TelegramUsername,
		LastLoginAt:      u.LastLoginAt,
	}
}

type loginRequest struct {
	Username string `json:"username"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"username": "required"}))
		return
	}

	now := time.Now()
	ip := clientIP(r)
	if !a.loginLimiter.Allow("ip:"+ip, now) || !a.loginLimiter.Allow("username:"+strings.ToLower(req.Username), now) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
		return
	}

	if err := a.loginSvc.RequestLogin(r.Context(), req.Username); err != nil {
		a.logger.Warn("login request failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "login link sent via Telegram",
	})
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	User     userResponse `json:"user"`
	Verified bool         `json:"verified"`
}

func (a *api) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if req.Token == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"token": "required"}))
		return
	}

	u, err := a.loginSvc.Verify(r.Context(), req.Token)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	auth.SetSessionCookies(w, a.cookieCodec, u.ID, a.sessionTTL, a.cookieSecure)

	WriteJSON(w, http.StatusOK, verifyResponse{User: toUserResponse(u), Verified: true})
}

type logoutRequest struct {
	UserID string `json:"user_id"`
}

func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if req.UserID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"user_id": "required"}))
		return
	}

	// A vanished user still gets logged out; only store failures
	// surface as errors.
	if err := a.loginSvc.Logout(r.Context(), req.UserID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		WriteDomainError(w, err)
		return
	}

	auth.ClearSessionCookies(w, a.cookieSecure)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type deliverRequest struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// handleAuthTelegram re-sends the login link for an issued token. It
// exists for the front end's retry button and performs no store writes.
func (a *api) handleAuthTelegram(w http.ResponseWriter, r *http.Request) {
	var req deliverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	if err := a.loginSvc.DeliverLoginLink(r.Context(), req.Username, req.Token); err != nil {
		a.logger.Warn("login link delivery failed", "err", err)
		WriteDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

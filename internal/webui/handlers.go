package webui

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/domain"
)

const (
	appTitle          = "Takvim"
	uiUnavailableMsg  = "Sign-in is unavailable. Set APP_DB_DSN and restart the server."
	linkSentNotice    = "Check your Telegram for the login link. It expires in a few minutes."
	signedOutNotice   = "You have been signed out."
	invalidTokenError = "That login link is invalid or was already used. Request a new one."
	expiredTokenError = "That login link has expired. Request a new one."
)

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if a.loginSvc == nil {
		a.templates.renderLogin(w, http.StatusServiceUnavailable, loginViewData{Title: appTitle, Error: uiUnavailableMsg})
		return
	}
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	data := loginViewData{Title: appTitle}
	data.Notice = mapLoginNotice(strings.TrimSpace(r.URL.Query().Get("notice")))
	data.Error = mapLoginError(strings.TrimSpace(r.URL.Query().Get("error")))
	a.templates.renderLogin(w, http.StatusOK, data)
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	if a.loginSvc == nil {
		a.templates.renderLogin(w, http.StatusServiceUnavailable, loginViewData{Title: appTitle, Error: uiUnavailableMsg})
		return
	}
	if _, ok := a.currentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		a.templates.renderLogin(w, http.StatusBadRequest, loginViewData{Title: appTitle, Error: "Invalid form"})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		a.templates.renderLogin(w, http.StatusBadRequest, loginViewData{Title: appTitle, Error: "Telegram username is required"})
		return
	}

	if err := a.loginSvc.RequestLogin(r.Context(), username); err != nil {
		a.logger.Warn("webui: login request failed", "err", err)
		data := loginViewData{Title: appTitle, Username: username}
		switch {
		case errors.Is(err, domain.ErrForbidden):
			data.Error = "This username cannot sign in here."
		case errors.Is(err, domain.ErrDeliveryFailed):
			data.Error = "Could not reach Telegram. Try again in a moment."
		default:
			data.Error = "Something went wrong. Try again."
		}
		a.templates.renderLogin(w, statusForLoginError(err), data)
		return
	}

	http.Redirect(w, r, "/?notice=sent", http.StatusSeeOther)
}

// handleCallback is the link target from the Telegram message. It
// verifies the one-time token server-side and establishes the cookie
// session, so the raw token never reaches any page script.
func (a *app) handleCallback(w http.ResponseWriter, r *http.Request) {
	if a.loginSvc == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		http.Redirect(w, r, "/?error=invalid_token", http.StatusFound)
		return
	}

	u, err := a.loginSvc.Verify(r.Context(), token)
	if err != nil {
		a.logger.Warn("webui: verification failed", "err", err)
		if errors.Is(err, domain.ErrTokenExpired) {
			http.Redirect(w, r, "/?error=expired_token", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/?error=invalid_token", http.StatusFound)
		return
	}

	auth.SetSessionCookies(w, a.cookieCodec, u.ID, a.sessionTTL, a.cookieSecure)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (a *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := a.currentUser(r)

	plans, err := a.planSvc.List(r.Context(), u.ID)
	if err != nil {
		a.logger.Error("webui: list plans failed", "err", err)
		a.templates.renderError(w, http.StatusInternalServerError, appTitle, "Could not load your plans.")
		return
	}

	data := dashboardViewData{Title: appTitle, User: u, Days: groupByDay(plans)}
	data.Error = mapDashboardError(strings.TrimSpace(r.URL.Query().Get("error")))
	a.templates.renderDashboard(w, http.StatusOK, data)
}

// groupByDay buckets plans under their calendar day, preserving the
// store's newest-first ordering within and across days.
func groupByDay(plans []domain.Plan) []dayGroup {
	var days []dayGroup
	for _, p := range plans {
		date := p.CreatedAt.Format("Monday, 02 January 2006")
		row := planRow{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			When:        p.CreatedAt.Format("15:04"),
		}
		if n := len(days); n > 0 && days[n-1].Date == date {
			days[n-1].Plans = append(days[n-1].Plans, row)
			continue
		}
		days = append(days, dayGroup{Date: date, Plans: []planRow{row}})
	}
	return days
}

func (a *app) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := a.currentUser(r)

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?error=bad_form", http.StatusSeeOther)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))

	var occursAt *time.Time
	if raw := strings.TrimSpace(r.FormValue("occurs_at")); raw != "" {
		// datetime-local inputs come in without a zone.
		if t, err := time.ParseInLocation("2006-01-02T15:04", raw, time.Local); err == nil {
			occursAt = &t
		}
	}

	if _, err := a.planSvc.Create(r.Context(), u.ID, title, description, occursAt); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			http.Redirect(w, r, "/dashboard?error=title_required", http.StatusSeeOther)
			return
		}
		a.logger.Error("webui: create plan failed", "err", err)
		http.Redirect(w, r, "/dashboard?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (a *app) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := a.currentUser(r)

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/dashboard?error=bad_form", http.StatusSeeOther)
		return
	}

	planID := strings.TrimSpace(r.FormValue("id"))
	if planID == "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := a.planSvc.Delete(r.Context(), u.ID, planID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.logger.Error("webui: delete plan failed", "err", err)
		http.Redirect(w, r, "/dashboard?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (a *app) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	if u, ok := a.currentUser(r); ok && a.loginSvc != nil {
		if err := a.loginSvc.Logout(r.Context(), u.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("webui: logout failed", "err", err)
		}
	}
	auth.ClearSessionCookies(w, a.cookieSecure)
	http.Redirect(w, r, "/?notice=signed_out", http.StatusSeeOther)
}

func statusForLoginError(err error) int {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func mapLoginNotice(notice string) string {
	switch notice {
	case "sent":
		return linkSentNotice
	case "signed_out":
		return signedOutNotice
	default:
		return ""
	}
}

func mapLoginError(code string) string {
	switch code {
	case "invalid_token":
		return invalidTokenError
	case "expired_token":
		return expiredTokenError
	default:
		return ""
	}
}

func mapDashboardError(code string) string {
	switch code {
	case "title_required":
		return "A plan needs a title."
	case "bad_form":
		return "Invalid form submission."
	case "internal":
		return "Something went wrong. Try again."
	default:
		return ""
	}
}

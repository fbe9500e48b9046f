package webui

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/domain"
	"Takvimwebserver/internal/service"
)

type Opts struct {
	Logger *slog.Logger

	Login        *service.LoginService
	Plans        *service.PlanService
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
}

func New(opts Opts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Login == nil || opts.Plans == nil {
		logger.Warn("webui: missing services", "login", opts.Login != nil, "plans", opts.Plans != nil)
	}

	app := &app{
		logger:       logger,
		loginSvc:     opts.Login,
		planSvc:      opts.Plans,
		cookieCodec:  opts.CookieCodec,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Error("webui: parse templates failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	app.templates = t

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", app.handleLoginGet)
	mux.HandleFunc("POST /login", app.handleLoginPost)
	mux.HandleFunc("GET /auth/callback", app.handleCallback)
	mux.HandleFunc("GET /dashboard", app.requireAuth(app.handleDashboard))
	mux.HandleFunc("POST /plans", app.requireAuth(app.handlePlanCreate))
	mux.HandleFunc("POST /plans/delete", app.requireAuth(app.handlePlanDelete))
	mux.HandleFunc("POST /logout", app.handleLogoutPost)

	staticFS, err := fs.Sub(assets, "static")
	if err != nil {
		logger.Error("webui: static fs setup failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
	mux.Handle("GET /static/", static)
	mux.Handle("HEAD /static/", static)

	return mux
}

type app struct {
	logger *slog.Logger

	loginSvc *service.LoginService
	planSvc  *service.PlanService

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	templates *templates
}

// requireAuth guards the signed-in pages. Without a valid cookie pair
// (or when the user behind it is gone) the browser lands back on the
// public login page.
func (a *app) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, ok := a.currentUser(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (a *app) currentUser(r *http.Request) (domain.User, bool) {
	if a.loginSvc == nil {
		return domain.User{}, false
	}
	userID, ok := auth.SessionUserID(r, a.cookieCodec)
	if !ok {
		return domain.User{}, false
	}
	u, err := a.loginSvc.GetUserForSession(r.Context(), userID)
	if err != nil {
		return domain.User{}, false
	}
	return u, true
}

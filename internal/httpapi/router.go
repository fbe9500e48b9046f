package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Login        *service.LoginService
	Plans        *service.PlanService
	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:       logger,
		isProd:       opts.IsProd,
		dbPing:       opts.DBPing,
		loginSvc:     opts.Login,
		planSvc:      opts.Plans,
		cookieCodec:  opts.CookieCodec,
		cookieSecure: opts.CookieSecure,
		sessionTTL:   opts.SessionTTL,
		loginLimiter: newLoginLimiter(),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	if api.loginSvc == nil {
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/verify", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/telegram", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/auth/login", api.handleAuthLogin)
		apiMux.HandleFunc("POST /v1/auth/verify", api.handleAuthVerify)
		apiMux.HandleFunc("POST /v1/auth/logout", api.handleAuthLogout)
		apiMux.HandleFunc("POST /v1/auth/telegram", api.handleAuthTelegram)

		if api.planSvc != nil {
			apiMux.HandleFunc("POST /v1/plans", api.requireAuth(api.handlePlansCreate))
			apiMux.HandleFunc("GET /v1/plans", api.requireAuth(api.handlePlansList))
			apiMux.HandleFunc("GET /v1/plans/{id}", api.requireAuth(api.handlePlansGet))
			apiMux.HandleFunc("PATCH /v1/plans/{id}", api.requireAuth(api.handlePlansUpdate))
			apiMux.HandleFunc("DELETE /v1/plans/{id}", api.requireAuth(api.handlePlansDelete))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	loginSvc     *service.LoginService
	planSvc      *service.PlanService
	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	loginLimiter *loginLimiter
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}

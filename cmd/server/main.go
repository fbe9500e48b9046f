package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"Takvimwebserver/internal/auth"
	"Takvimwebserver/internal/config"
	"Takvimwebserver/internal/httpapi"
	"Takvimwebserver/internal/service"
	"Takvimwebserver/internal/store/postgres"
	"Takvimwebserver/internal/telegram"
	"Takvimwebserver/internal/webui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var (
		loginSvc *service.LoginService
		planSvc  *service.PlanService
		dbPing   func(context.Context) error
	)

	if cfg.DBDSN != "" {
		if err := postgres.Migrate(context.Background(), cfg.DBDSN); err != nil {
			logger.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		pgPool, err := postgres.Open(context.Background(), cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		users := postgres.NewUsersStore(pgPool)
		verifications := postgres.NewVerificationsStore(pgPool)
		plans := postgres.NewPlansStore(pgPool)

		var sender service.MessageSender
		if cfg.TelegramBotToken != "" {
			tg, err := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID)
			if err != nil {
				logger.Error("telegram client setup failed", "err", err)
				os.Exit(1)
			}
			sender = tg
		} else {
			logger.Warn("telegram disabled: login links are logged instead of sent")
			sender = logSender{logger: logger}
		}

		loginSvc = &service.LoginService{
			Users:    users,
			Tokens:   verifications,
			Sender:   sender,
			Allowed:  cfg.AllowedUsernames,
			BaseURL:  cfg.PublicURL,
			TokenTTL: cfg.LoginTTL,
		}
		planSvc = &service.PlanService{Plans: plans}
		dbPing = pgPool.Ping
	}

	codec := auth.NewCookieCodec([]byte(cfg.CookieSecret))

	apiRouter := httpapi.NewRouter(httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		DBPing:       dbPing,
		Login:        loginSvc,
		Plans:        planSvc,
		CookieCodec:  codec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
	})

	uiRouter := webui.New(webui.Opts{
		Logger:       logger,
		Login:        loginSvc,
		Plans:        planSvc,
		CookieCodec:  codec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
	})

	root := http.NewServeMux()
	root.Handle("/", uiRouter)
	root.Handle("/healthz", apiRouter)
	root.Handle("/v1/", apiRouter)
	root.Handle("/v1", apiRouter)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

// logSender stands in for the Telegram client in dev setups without a
// bot token. The login link ends up in the server log.
type logSender struct {
	logger *slog.Logger
}

func (s logSender) SendMessage(_ context.Context, text string) error {
	s.logger.Info("login message", "text", strings.ReplaceAll(text, "\n", " "))
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

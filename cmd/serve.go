package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/config"
	"github.com/patiponrmutl/thaimilitary/database"
	"github.com/patiponrmutl/thaimilitary/feed"
	"github.com/patiponrmutl/thaimilitary/handlers"
	"github.com/patiponrmutl/thaimilitary/identity"
	"github.com/patiponrmutl/thaimilitary/intake"
	"github.com/patiponrmutl/thaimilitary/notify"
	"github.com/patiponrmutl/thaimilitary/routes"
	"github.com/patiponrmutl/thaimilitary/store"
	"github.com/patiponrmutl/thaimilitary/triage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// ถ้า DB ยังไม่ขึ้น ให้ล้มตั้งแต่ตอนเริ่ม
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	clk := clock.Real()
	storeOpts := []store.Option{store.WithClock(clk), store.WithLogger(log)}
	listen := cfg.DBDriver == "postgres" && cfg.DBListen
	if listen {
		storeOpts = append(storeOpts, store.WithPostgresNotify())
	}
	st := store.NewGormStore(db, storeOpts...)

	if listen {
		go func() {
			if err := store.ListenPostgres(ctx, cfg.DSN(), st.Hub(), log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("postgres listener stopped", "err", err)
			}
		}()
	}

	accounts := identity.NewAccounts(db, cfg.JWTSecret, cfg.TokenTTL, identity.WithClock(clk), identity.WithLogger(log))
	defer accounts.OnAuthStateChanged(func(id *identity.Identity) {
		if id == nil {
			log.Info("admin signed out")
			return
		}
		log.Info("admin signed in", "email", id.Email)
	})()
	gate := identity.NewGate(accounts, cfg.AdminEmail, log)
	intents := triage.NewConfirmations(clk, cfg.ConfirmTTL)

	if cfg.TelegramToken != "" {
		n, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, loc, log)
		if err != nil {
			log.Error("telegram notifier disabled", "err", err)
		} else {
			f := feed.Open(ctx, st, feed.WithClock(clk), feed.WithLogger(log))
			defer f.Close()
			go n.Watch(ctx, f)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	e.Use(middleware.CORS())

	routes.Register(e, routes.Deps{
		Health:   handlers.NewHealthHandler(db),
		Auth:     handlers.NewAuthHandler(gate, log),
		Requests: handlers.NewRequestHandler(intake.NewForm(st, loc), log),
		Triage: handlers.NewTriageHandler(st, handlers.TriageOptions{
			Clock: clk, Location: loc, Intents: intents, Logger: log,
		}),
		Live: handlers.NewLiveHandler(st, st, handlers.LiveOptions{
			Clock: clk, Location: loc, Intents: intents, Refresh: cfg.RefreshInterval, Logger: log,
		}),
		Provider: accounts,
		Gate:     gate,
	})

	addr := ":" + cfg.AppPort
	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "db", cfg.DBDriver, "listen", listen)
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func requestLogger(log *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", redactURI(c.Request().URL)),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("err", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}

// token ใน query (websocket) ห้ามลง log
func redactURI(u *url.URL) string {
	q := u.Query()
	if !q.Has("token") {
		return u.RequestURI()
	}
	q.Set("token", "REDACTED")
	cp := *u
	cp.RawQuery = q.Encode()
	return cp.RequestURI()
}

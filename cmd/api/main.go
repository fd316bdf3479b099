package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"arfa/internal/auth"
	"arfa/internal/config"
	"arfa/internal/db"
	"arfa/internal/httpapi"
	"arfa/internal/logging"
	"arfa/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(nil, "info").Fatal().Err(err).Msg("load config")
	}
	log := logging.New(nil, cfg.LogLevel)

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Store:              store.NewPostgres(pool),
			JWT:                auth.NewJWT(cfg.JWTSecret, time.Duration(cfg.JWTTTLSeconds)*time.Second),
			Log:                log,
			SessionTTL:         time.Duration(cfg.SessionTTLDays) * 24 * time.Hour,
			InviteExpiry:       time.Duration(cfg.InviteExpiryDays) * 24 * time.Hour,
			InviteDailyLimit:   cfg.InviteDailyLimit,
			ResetTokenTTL:      time.Duration(cfg.ResetTokenTTLMinutes) * time.Minute,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

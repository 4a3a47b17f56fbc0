package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/content-repository/pkg/contentrepo/api"
	"github.com/tendant/content-repository/pkg/contentrepo/config"
)

// Config holds the settings that belong to the HTTP surface only. Everything
// that shapes the service itself is read by config.WithEnv.
type Config struct {
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:""`
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
}

func main() {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	serverConfig, err := config.Load(config.WithEnv(""))
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := serverConfig.BuildRuntime(ctx, logger)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	if rt.Collector != nil {
		prometheus.MustRegister(rt.Collector)
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", promhttp.Handler())

	var guard func(http.Handler) http.Handler
	if cfg.ApiKeySHA256 != "" {
		guard, err = middleware.ApiKeyMiddleware(middleware.ApiKeyConfig{
			APIKeys: map[string]string{"key1": cfg.ApiKeySHA256},
		})
		if err != nil {
			slog.Error("Failed initialize API Key middleware", "err", err)
			os.Exit(1)
		}
	}

	server.R.Route("/api/v1", func(r chi.Router) {
		mountRoutes(r, rt, serverConfig, guard, logger)
	})

	slog.Info("Content repository starting",
		"environment", serverConfig.Environment,
		"database", serverConfig.DatabaseType,
		"archive", serverConfig.ArchiveStorage.Type,
		"access", serverConfig.AccessMode)

	server.Run()
}

// mountRoutes attaches the entity API to r. Actors come from bearer tokens
// when a JWT secret is configured and from the X-Actor header otherwise.
func mountRoutes(r chi.Router, rt *config.Runtime, serverConfig *config.ServerConfig, guard func(http.Handler) http.Handler, logger *slog.Logger) {
	r.Use(api.RequestIDMiddleware)
	r.Use(api.RecoveryMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	if guard != nil {
		r.Use(guard)
	}

	if serverConfig.JWTSecret != "" {
		tokenAuth := jwtauth.New("HS256", []byte(serverConfig.JWTSecret), nil)
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator)
		r.Use(api.ActorFromToken)
	} else {
		r.Use(api.ActorFromHeader)
	}

	r.Mount("/", api.NewEntityHandler(rt.Service, logger).Routes())
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// Command seatlock-demo runs a small HTTP service demonstrating the full
// single-active-device stack: HS256 demo identity provider, Redis claim
// registry (embedded miniredis by default), the request gate middleware,
// heartbeat, and slog-backed audit.
//
// Configuration comes from a YAML file (-config flag or CONFIG_PATH) or
// environment variables; see config.go for the knobs.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	seatlock "github.com/preplabs/seatlock"
	"github.com/preplabs/seatlock/middleware"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownPeriod = 10 * time.Second

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("configuration", "err", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Env)
	log.Info("seatlock-demo", "env", cfg.Env, "addr", cfg.HTTPAddr)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Registry backend: external Redis when configured, embedded otherwise.
	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			log.Error("embedded redis", "err", err)
			os.Exit(1)
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Info("using embedded redis", "addr", redisAddr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	provider := newJWTProvider(cfg.JWTSecret, cfg.AccessTTL)
	provider.seedUser("alice@example.com", "correct-horse", "student")
	provider.seedUser("teacher@example.com", "chalk-and-talk", "teacher")

	engineCfg := engineConfig(cfg, log)
	engine, err := seatlock.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithAuthProvider(provider).
		WithAuditSink(seatlock.NewSlogSink(log)).
		Build()
	if err != nil {
		log.Error("engine build", "err", err)
		os.Exit(1)
	}
	defer engine.Close()

	if _, err := engine.RegistryPing(rootCtx); err != nil {
		log.Error("registry unreachable", "err", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: routes(engine, log),
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", "err", err)
	}
	log.Info("stopped", "audit_dropped", engine.AuditDropped())
}

func engineConfig(cfg appConfig, log *slog.Logger) seatlock.Config {
	engineCfg := seatlock.Config{
		Registry: seatlock.RegistryConfig{
			RedisPrefix: "slk",
			IdleTTL:     cfg.IdleTTL,
		},
		Gate: seatlock.GateConfig{
			RejectUnclaimed: cfg.RejectUnclaimed,
		},
		Audit: seatlock.AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: seatlock.MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Warn: func(msg string, args ...any) {
			log.Warn(msg, args...)
		},
	}
	return engineCfg
}

func routes(engine *seatlock.Engine, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", loginHandler(engine))
	mux.HandleFunc("POST /auth/register", registerHandler(engine))
	mux.HandleFunc("POST /auth/refresh", refreshHandler(engine))
	mux.HandleFunc("POST /auth/logout", logoutHandler(engine))
	mux.Handle("POST /auth/heartbeat", middleware.HeartbeatHandler(engine))

	gate := middleware.Gate(engine)
	mux.Handle("GET /api/me", gate(http.HandlerFunc(meHandler)))

	mux.HandleFunc("GET /metrics", metricsHandler(engine))

	return logRequests(log, mux)
}

func logRequests(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

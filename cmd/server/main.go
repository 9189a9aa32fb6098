package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/MatejStrlek/uni-course-management/internal/config"
	"github.com/MatejStrlek/uni-course-management/internal/db"
	"github.com/MatejStrlek/uni-course-management/internal/enrollment"
	"github.com/MatejStrlek/uni-course-management/internal/grading"
	internalhttp "github.com/MatejStrlek/uni-course-management/internal/http"
	"github.com/MatejStrlek/uni-course-management/internal/jobs"
	"github.com/MatejStrlek/uni-course-management/internal/metrics"
	"github.com/MatejStrlek/uni-course-management/internal/notify"
	"github.com/MatejStrlek/uni-course-management/internal/repository"
	"github.com/MatejStrlek/uni-course-management/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("db connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("migrations failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	var mailer notify.Mailer = notify.ConsoleMailer{}
	if cfg.SendgridAPIKey != "" {
		mailer = notify.NewSendgridMailer(cfg.SendgridAPIKey, cfg.EmailFromName, cfg.EmailFrom)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	store := repository.NewStore(pool)
	throttle := session.NewThrottle(redisClient, cfg.LoginMaxFailures, cfg.LoginFailureWindow)
	sessions := session.NewManager(store, throttle, collector, cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	ledger := enrollment.NewLedger(store)
	grades := grading.NewEngine(store, notify.NewGradeNotifier(mailer), collector)

	jobs.StartTokenSweep(ctx, store, cfg.TokenSweepInterval)

	server := internalhttp.NewServer(cfg, store, sessions, ledger, grades, collector, reg)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", slog.String("error", err.Error()))
	}
}

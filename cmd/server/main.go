package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/jadpai-enrollment/internal/config"
	"github.com/iliyamo/jadpai-enrollment/internal/database"
	"github.com/iliyamo/jadpai-enrollment/internal/handler"
	"github.com/iliyamo/jadpai-enrollment/internal/logger"
	"github.com/iliyamo/jadpai-enrollment/internal/metrics"
	"github.com/iliyamo/jadpai-enrollment/internal/middleware"
	"github.com/iliyamo/jadpai-enrollment/internal/notify"
	"github.com/iliyamo/jadpai-enrollment/internal/oauth"
	"github.com/iliyamo/jadpai-enrollment/internal/queue"
	"github.com/iliyamo/jadpai-enrollment/internal/repository"
	"github.com/iliyamo/jadpai-enrollment/internal/router"
	"github.com/iliyamo/jadpai-enrollment/internal/service"
	"github.com/iliyamo/jadpai-enrollment/internal/storage"
	"github.com/iliyamo/jadpai-enrollment/internal/utils"
)

func main() {
	// A missing .env is fine; the real environment always wins.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.OpenWithRetry(ctx,
		database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName), 10, 3*time.Second)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.RunMigrations(db); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	enrollments := repository.NewEnrollmentRepo(db)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	// Left nil when unset or unreachable; Google sign-in then answers 401.
	var google service.AssertionVerifier
	if cfg.GoogleClientID != "" {
		gctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		v, err := oauth.NewGoogle(gctx, cfg.GoogleClientID)
		cancel()
		if err != nil {
			log.Error("google sign-in disabled", "error", err)
		} else {
			google = v
		}
	}

	files, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Error("upload dir unavailable", "error", err)
		os.Exit(1)
	}

	var notifier service.Notifier
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer pub.Close()
		notifier = pub

		mailer := notify.NewMailer(cfg.SMTP, log)
		go func() {
			if err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, mailer.Handle, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", "error", err)
			}
		}()
	} else {
		log.Warn("RABBITMQ_URL not set, enrollment notifications disabled")
	}

	identity := service.NewIdentityService(users, utils.NewHasher(cfg.BcryptCost), tokens, google, rec, log)
	enrollSvc := service.NewEnrollmentService(enrollments, events, files, notifier, rec, log)

	cacheCfg := config.LoadCacheConfig()
	e := router.New(log, rec)
	router.RegisterRoutes(e, db, reg, cfg.UploadDir)
	router.RegisterUsers(e,
		handler.NewAuthHandler(identity),
		handler.NewUserHandler(users, identity),
		tokens,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	)
	router.RegisterEvents(e,
		handler.NewEventHandler(events),
		tokens,
		middleware.NewRedisCache(cacheCfg, rdb),
		middleware.InvalidateCache(cacheCfg, rdb, log),
	)
	router.RegisterEnrollments(e,
		handler.NewEnrollmentHandler(enrollments, enrollSvc),
		tokens,
		middleware.InvalidateCache(cacheCfg, rdb, log),
	)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

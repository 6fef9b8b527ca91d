package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/kbalyzer/kbalyzer-api/internal/api/http"
	"github.com/kbalyzer/kbalyzer-api/internal/api/http/handlers"
	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/config"
	"github.com/kbalyzer/kbalyzer-api/internal/events"
	"github.com/kbalyzer/kbalyzer-api/internal/observability"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
	"github.com/kbalyzer/kbalyzer-api/internal/service"
	"github.com/kbalyzer/kbalyzer-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	var denylist auth.Denylist = auth.NoopDenylist{}
	readiness := map[string]handlers.Pinger{"postgres": pg}
	if rdb != nil {
		denylist = auth.NewRedisDenylist(rdb.Client, "")
		readiness["redis"] = rdb
	}

	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to init password hasher", zap.Error(err))
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}
	totp := auth.NewTOTP(cfg.Auth.TOTPIssuer)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	userRepo := repository.NewUserRepository(pg)
	brewRepo := repository.NewBrewRepository(pg)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     hasher,
		Tokens:     tokens,
		TOTP:       totp,
		Denylist:   denylist,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	userService := service.NewUserService(userRepo, hasher, dispatcher, logger)
	otpService := service.NewOTPService(userRepo, totp, dispatcher, logger)
	brewService := service.NewBrewService(brewRepo)

	if err := service.EnsureAdmin(ctx, userService, cfg.Bootstrap, logger); err != nil {
		logger.Fatal("failed to create bootstrap admin", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.CookieSecure),
		OTP:            handlers.NewOTPHandler(otpService),
		AdminUsers:     handlers.NewAdminUsersHandler(userService),
		Brews:          handlers.NewBrewsHandler(brewService),
		Docs:           handlers.NewDocsHandler("Kombuchalyzer", "/api/openapi.json"),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, userRepo, denylist, logger),
		Metrics:        metrics,
		Pool:           pg.PoolHandle(),
		Logger:         logger,
		DevLogin:       cfg.App.IsDev(),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

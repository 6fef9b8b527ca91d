package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/api/http/handlers"
	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/observability"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	OTP            *handlers.OTPHandler
	AdminUsers     *handlers.AdminUsersHandler
	Brews          *handlers.BrewsHandler
	Docs           *handlers.DocsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	// Pool enables the per-request unit of work when set.
	Pool     persistence.Pool
	Logger   *zap.Logger
	DevLogin bool
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	if cfg.DevLogin {
		app.Get("/login", cfg.Auth.LoginPage)
	}

	api := app.Group("/api")
	if cfg.Pool != nil {
		logger := cfg.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		api.Use(unitOfWorkMiddleware(cfg.Pool, logger))
	}

	authenticated := cfg.AuthMiddleware.Handle
	admin := auth.RequireAdmin()

	authGroup := api.Group("/auth")
	authGroup.Post("/token", cfg.Auth.Token)
	authGroup.Post("/token-2fa", cfg.Auth.TokenTwoFactor)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)

	otp := authGroup.Group("/otp", authenticated)
	otp.Get("/generate", cfg.OTP.Generate)
	otp.Post("/enable", cfg.OTP.Enable)
	otp.Post("/disable", cfg.OTP.Disable)

	users := api.Group("/admin/user", authenticated, admin)
	users.Get("/", cfg.AdminUsers.Get)
	users.Post("/", cfg.AdminUsers.Create)
	users.Get("/all", cfg.AdminUsers.All)
	users.Delete("/:id", cfg.AdminUsers.Delete)

	api.Get("/brews", authenticated, admin, cfg.Brews.List)

	api.Get("/docs", authenticated, admin, cfg.Docs.SwaggerUI)
	api.Get("/openapi.json", authenticated, admin, cfg.Docs.OpenAPI)
}

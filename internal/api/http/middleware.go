package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/observability"
	"github.com/kbalyzer/kbalyzer-api/internal/persistence"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := apperrors.ToDomainError(err)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				if domainErr.HTTPStatus == fiber.StatusUnauthorized {
					c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// unitOfWorkMiddleware gives each request one lazily opened transaction. It is
// committed when the handler succeeds with a status below 400 and rolled back
// otherwise.
func unitOfWorkMiddleware(pool persistence.Pool, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, uow := persistence.BeginUnitOfWork(c.UserContext(), pool)
		c.SetUserContext(ctx)
		defer func() {
			if r := recover(); r != nil {
				if endErr := uow.End(context.WithoutCancel(ctx), false); endErr != nil {
					logger.Error("unit of work rollback failed", zap.Error(endErr))
				}
				panic(r)
			}
		}()

		err := c.Next()
		commit := err == nil && c.Response().StatusCode() < fiber.StatusBadRequest
		if endErr := uow.End(context.WithoutCancel(ctx), commit); endErr != nil {
			logger.Error("unit of work end failed", zap.Bool("commit", commit), zap.Error(endErr))
			if err == nil && commit {
				return apperrors.NewInternalError(endErr)
			}
		}
		return err
	}
}

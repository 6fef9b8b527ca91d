package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// RequireAdmin ensures the authenticated caller holds the admin role.
// It must run after AuthMiddleware.Handle.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized(apperrors.MsgCredentialsInvalid)
		}
		if !principal.User.IsAdmin() {
			return apperrors.NewForbidden(apperrors.MsgNotEnoughPerms)
		}
		return c.Next()
	}
}

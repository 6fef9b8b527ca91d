package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

const (
	principalKey = "auth_principal"

	// CookieName carries the bearer token for browser clients.
	CookieName = "access_token"
)

// Principal represents the authenticated caller.
type Principal struct {
	User  *domain.User
	Token *VerifiedToken
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	users    repository.UserRepository
	denylist Denylist
	logger   *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, denylist Denylist, logger *zap.Logger) *AuthMiddleware {
	if denylist == nil {
		denylist = NoopDenylist{}
	}
	return &AuthMiddleware{tokens: tokens, users: users, denylist: denylist, logger: logger}
}

// TokenFromRequest returns the presented token. The cookie wins over the Authorization header.
func TokenFromRequest(c *fiber.Ctx) string {
	if cookie := c.Cookies(CookieName); cookie != "" {
		return cookie
	}
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ResolveUser maps the presented token to a known user.
func (m *AuthMiddleware) ResolveUser(c *fiber.Ctx) (*Principal, error) {
	unauthorized := apperrors.NewUnauthorized(apperrors.MsgCredentialsInvalid)

	raw := TokenFromRequest(c)
	if raw == "" {
		return nil, unauthorized
	}

	verified, err := m.tokens.ParseToken(raw, domain.TokenKindBearer)
	if err != nil {
		return nil, unauthorized
	}

	revoked, err := m.denylist.IsRevoked(c.UserContext(), verified.ID)
	if err != nil {
		m.logger.Error("denylist lookup failed", zap.Error(err))
		return nil, unauthorized
	}
	if revoked {
		return nil, unauthorized
	}

	user, err := m.users.GetByEmail(c.UserContext(), verified.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized
		}
		return nil, apperrors.NewInternalError(err)
	}
	return &Principal{User: user, Token: verified}, nil
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.ResolveUser(c)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal.User != nil
}

// CurrentUser is a shortcut for PrincipalFromContext(c).User.
func CurrentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized(apperrors.MsgCredentialsInvalid)
	}
	return principal.User, nil
}

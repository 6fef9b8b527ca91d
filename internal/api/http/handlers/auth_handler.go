package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kbalyzer/kbalyzer-api/internal/api/dto"
	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/service"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

const loginPage = `<form method="post" action="/api/auth/token">
    <h1>Login</h1>
    <input name="username" type="text" placeholder="username">
    <input name="password" type="password" placeholder="password">
    <button type="submit">Login</button>
</form>
`

// AuthHandler exposes the login handshake and session endpoints.
type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: authService, cookieSecure: cookieSecure}
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var form dto.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if form.Username == "" || form.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	issued, err := h.auth.Login(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return err
	}
	if issued.Kind == domain.TokenKindBearer {
		h.setSessionCookie(c, issued.AccessToken)
	}
	return c.JSON(dto.NewToken(issued))
}

// TokenTwoFactor handles POST /api/auth/token-2fa.
func (h *AuthHandler) TokenTwoFactor(c *fiber.Ctx) error {
	var req dto.OTPFlowSubmission
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.AccessToken == "" || req.Code == "" {
		return apperrors.NewValidationError("access_token and code required", nil)
	}

	issued, err := h.auth.CompleteTwoFactor(c.UserContext(), req.AccessToken, req.Code)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, issued.AccessToken)
	return c.JSON(dto.NewToken(issued))
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserAdminView(user))
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	err := h.auth.Logout(c.UserContext(), auth.TokenFromRequest(c))
	h.clearSessionCookie(c)
	if err != nil {
		return err
	}
	return c.JSON(dto.LogoutDetails{Message: "Successfully logged out"})
}

// LoginPage handles GET /login in dev mode.
func (h *AuthHandler) LoginPage(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString(loginPage)
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

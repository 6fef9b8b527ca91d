package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kbalyzer/kbalyzer-api/internal/api/dto"
	"github.com/kbalyzer/kbalyzer-api/internal/auth"
	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/service"
)

// OTPHandler exposes TOTP enrollment for the current user.
type OTPHandler struct {
	otp *service.OTPService
}

// NewOTPHandler constructs handler.
func NewOTPHandler(otpService *service.OTPService) *OTPHandler {
	return &OTPHandler{otp: otpService}
}

// Generate handles GET /api/auth/otp/generate.
func (h *OTPHandler) Generate(c *fiber.Ctx) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	img, err := h.otp.Generate(c.UserContext(), user)
	if err != nil {
		return err
	}
	c.Type("png")
	return c.Send(img)
}

// Enable handles POST /api/auth/otp/enable.
func (h *OTPHandler) Enable(c *fiber.Ctx) error {
	return h.toggle(c, h.otp.Enable)
}

// Disable handles POST /api/auth/otp/disable.
func (h *OTPHandler) Disable(c *fiber.Ctx) error {
	return h.toggle(c, h.otp.Disable)
}

func (h *OTPHandler) toggle(c *fiber.Ctx, apply func(ctx context.Context, user *domain.User, code string) error) error {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	var req dto.OTPSubmission
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	// status only, no body
	switch err := apply(c.UserContext(), user, req.Code); {
	case errors.Is(err, service.ErrInvalidCode):
		c.Status(http.StatusUnauthorized)
		return nil
	case err != nil:
		return err
	}
	c.Status(http.StatusOK)
	return nil
}

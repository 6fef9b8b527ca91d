package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kbalyzer/kbalyzer-api/internal/api/dto"
	"github.com/kbalyzer/kbalyzer-api/internal/service"
)

// BrewsHandler lists brews.
type BrewsHandler struct {
	brews *service.BrewService
}

// NewBrewsHandler constructs handler.
func NewBrewsHandler(brews *service.BrewService) *BrewsHandler {
	return &BrewsHandler{brews: brews}
}

// List handles GET /api/brews/.
func (h *BrewsHandler) List(c *fiber.Ctx) error {
	page, err := parsePage(c)
	if err != nil {
		return err
	}
	brews, total, err := h.brews.List(c.UserContext(), page)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBrewAllResponse(brews, total))
}

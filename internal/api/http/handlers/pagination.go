package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// parsePage reads skip and limit, defaulting to the first page of 100.
func parsePage(c *fiber.Ctx) (domain.Page, error) {
	page := domain.DefaultPage()
	fields := []struct {
		key string
		dst *uint64
	}{
		{"skip", &page.Skip},
		{"limit", &page.Limit},
	}
	for _, f := range fields {
		raw := c.Query(f.key)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return domain.Page{}, apperrors.NewValidationError("invalid pagination parameter", map[string]any{
				f.key: "must be a non-negative integer",
			})
		}
		*f.dst = uint64(n)
	}
	return page, nil
}
